package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arkilian/songlake/internal/config"
	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/internal/storage"
)

func TestResolveCredentials(t *testing.T) {
	credsFile := filepath.Join(t.TempDir(), "dl.cfg")
	if err := os.WriteFile(credsFile, []byte("[AWS]\nAWS_ACCESS_KEY_ID=AKIATEST\nAWS_SECRET_ACCESS_KEY=secret\n"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	tests := []struct {
		name     string
		mutate   func(c *config.Config)
		wantID   string
		wantCode string
	}{
		{
			name: "local locations need no credentials",
			mutate: func(c *config.Config) {
				c.Input.Location = "/in"
				c.Output.Location = "/out"
				c.AWS.CredentialsFile = ""
			},
		},
		{
			name:   "s3 with credentials file",
			mutate: func(c *config.Config) { c.AWS.CredentialsFile = credsFile },
			wantID: "AKIATEST",
		},
		{
			name:     "s3 without credentials file",
			mutate:   func(c *config.Config) { c.AWS.CredentialsFile = "" },
			wantCode: perrors.CodeMissingCredentials,
		},
		{
			name:     "s3 with unreadable credentials file",
			mutate:   func(c *config.Config) { c.AWS.CredentialsFile = filepath.Join(t.TempDir(), "missing.cfg") },
			wantCode: perrors.CodeMissingCredentials,
		},
		{
			name: "default chain fallback",
			mutate: func(c *config.Config) {
				c.AWS.CredentialsFile = filepath.Join(t.TempDir(), "missing.cfg")
				c.AWS.UseDefaultChain = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			creds, err := ResolveCredentials(cfg)
			if tt.wantCode != "" {
				if perrors.GetCode(err) != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				if perrors.GetCategory(err) != perrors.ErrCategoryConfig {
					t.Errorf("expected CONFIG category, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCredentials failed: %v", err)
			}
			if creds.AccessKeyID != tt.wantID {
				t.Errorf("AccessKeyID = %q, want %q", creds.AccessKeyID, tt.wantID)
			}
		})
	}
}

func TestS3ConfigFor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AWS.Endpoint = "http://localhost:9000"
	cfg.AWS.UsePathStyle = true

	s3cfg := S3ConfigFor(cfg, config.Credentials{AccessKeyID: "id", SecretAccessKey: "secret"})
	if s3cfg.Region != "us-west-2" || s3cfg.Endpoint != "http://localhost:9000" || !s3cfg.UsePathStyle {
		t.Errorf("unexpected S3 config %+v", s3cfg)
	}
	if s3cfg.AccessKeyID != "id" || s3cfg.SecretAccessKey != "secret" {
		t.Error("credentials not passed through")
	}
	if s3cfg.MultipartConfig.PartSize <= 0 {
		t.Error("multipart defaults missing")
	}
}

func TestOpenStores_Local(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.Location = filepath.Join(t.TempDir(), "in")
	cfg.Output.Location = filepath.Join(t.TempDir(), "out")

	stores, err := OpenStores(context.Background(), cfg, config.Credentials{})
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	if _, ok := stores.Input.(*storage.LocalStorage); !ok {
		t.Errorf("input store is %T", stores.Input)
	}
	if stores.OutputLocation.Path != filepath.Clean(cfg.Output.Location) {
		t.Errorf("output location = %+v", stores.OutputLocation)
	}
}

func TestOpenStores_InvalidLocation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Location = "ftp://nowhere/x"

	_, err := OpenStores(context.Background(), cfg, config.Credentials{})
	if perrors.GetCode(err) != perrors.CodeInvalidLocation {
		t.Errorf("expected INVALID_LOCATION, got %v", err)
	}
}
