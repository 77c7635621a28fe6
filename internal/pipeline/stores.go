package pipeline

import (
	"context"
	"fmt"

	"github.com/arkilian/songlake/internal/config"
	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/internal/storage"
)

// Stores are the object stores a run reads from and writes to.
type Stores struct {
	Input          storage.ObjectStorage
	Output         storage.ObjectStorage
	InputLocation  storage.Location
	OutputLocation storage.Location
}

// ResolveCredentials returns the key pair for S3 locations. Runs that touch
// no S3 location, or that opt into the SDK default chain without a
// credentials file, get zero credentials.
func ResolveCredentials(cfg *config.Config) (config.Credentials, error) {
	if !cfg.UsesS3() {
		return config.Credentials{}, nil
	}
	if cfg.AWS.CredentialsFile == "" {
		if cfg.AWS.UseDefaultChain {
			return config.Credentials{}, nil
		}
		return config.Credentials{}, perrors.NewConfigError(perrors.CodeMissingCredentials,
			"no credentials file configured for s3 locations", nil)
	}

	creds, err := config.LoadCredentials(cfg.AWS.CredentialsFile)
	if err != nil {
		if cfg.AWS.UseDefaultChain {
			return config.Credentials{}, nil
		}
		return config.Credentials{}, perrors.NewConfigError(perrors.CodeMissingCredentials,
			"failed to load credentials", err)
	}
	return creds, nil
}

// S3ConfigFor builds the S3 client settings from configuration and credentials.
func S3ConfigFor(cfg *config.Config, creds config.Credentials) storage.S3Config {
	s3cfg := storage.DefaultS3Config()
	s3cfg.Region = cfg.AWS.Region
	s3cfg.Endpoint = cfg.AWS.Endpoint
	s3cfg.UsePathStyle = cfg.AWS.UsePathStyle
	s3cfg.AccessKeyID = creds.AccessKeyID
	s3cfg.SecretAccessKey = creds.SecretAccessKey
	return s3cfg
}

// OpenStores opens the input and output locations of cfg.
func OpenStores(ctx context.Context, cfg *config.Config, creds config.Credentials) (*Stores, error) {
	inLoc, err := storage.ParseLocation(cfg.Input.Location)
	if err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidLocation, "input.location", err)
	}
	outLoc, err := storage.ParseLocation(cfg.Output.Location)
	if err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidLocation, "output.location", err)
	}

	s3cfg := S3ConfigFor(cfg, creds)
	input, err := storage.OpenLocation(ctx, inLoc, s3cfg)
	if err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidLocation,
			fmt.Sprintf("open input %s", inLoc), err)
	}
	output, err := storage.OpenLocation(ctx, outLoc, s3cfg)
	if err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidLocation,
			fmt.Sprintf("open output %s", outLoc), err)
	}

	return &Stores{
		Input:          input,
		Output:         output,
		InputLocation:  inLoc,
		OutputLocation: outLoc,
	}, nil
}
