package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Location schemes.
const (
	SchemeS3   = "s3"
	SchemeFile = "file"
)

// Location identifies the root of a dataset in an object store or on local disk.
type Location struct {
	Scheme string
	Bucket string
	Prefix string
	// Path is the local directory for file locations.
	Path string
}

// ParseLocation parses s3://bucket/prefix, s3a://bucket/prefix, file:///dir or a plain path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Path: filepath.Clean(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location %q: %w", raw, err)
	}

	switch u.Scheme {
	case "s3", "s3a", "s3n":
		if u.Host == "" {
			return Location{}, fmt.Errorf("location %q has no bucket", raw)
		}
		return Location{
			Scheme: SchemeS3,
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	case "file":
		if u.Path == "" {
			return Location{}, fmt.Errorf("location %q has no path", raw)
		}
		return Location{Scheme: SchemeFile, Path: filepath.Clean(filepath.FromSlash(u.Path))}, nil
	default:
		return Location{}, fmt.Errorf("unsupported location scheme %q", u.Scheme)
	}
}

// IsS3 reports whether the location lives in S3.
func (l Location) IsS3() bool {
	return l.Scheme == SchemeS3
}

// String renders the location in canonical form.
func (l Location) String() string {
	if l.IsS3() {
		if l.Prefix == "" {
			return "s3://" + l.Bucket + "/"
		}
		return "s3://" + l.Bucket + "/" + l.Prefix + "/"
	}
	return l.Path
}

// OpenLocation returns an ObjectStorage rooted at the location.
func OpenLocation(ctx context.Context, loc Location, cfg S3Config) (ObjectStorage, error) {
	switch loc.Scheme {
	case SchemeS3:
		return NewS3Storage(ctx, loc.Bucket, loc.Prefix, cfg)
	case SchemeFile:
		return NewLocalStorage(loc.Path)
	default:
		return nil, fmt.Errorf("unsupported location scheme %q", loc.Scheme)
	}
}
