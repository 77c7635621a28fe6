// Package storage provides object storage abstractions for pipeline inputs and outputs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts object storage rooted at a location.
// All object paths are slash-separated and relative to that root.
// Implementations include S3 and the local filesystem.
type ObjectStorage interface {
	// Upload uploads a local file to objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// UploadMultipart uploads using multipart for large files.
	// Returns the ETag of the uploaded object.
	UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error)

	// Download copies objectPath to localPath.
	Download(ctx context.Context, objectPath, localPath string) error

	// Open streams the object's content. The caller closes the reader.
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths below the directory prefix, sorted.
	// An empty prefix lists the whole root.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// BatchDeleter is implemented by stores that can remove many objects in one
// call. DeletePrefix uses it when available.
type BatchDeleter interface {
	DeleteObjects(ctx context.Context, objectPaths []string) error
}

// MultipartUploadConfig holds configuration for multipart uploads.
type MultipartUploadConfig struct {
	// PartSize is the size of each part in bytes (default: 5MB).
	PartSize int64
	// Concurrency is the number of concurrent part uploads (default: 5).
	Concurrency int
}

// DefaultMultipartConfig returns the default multipart upload configuration.
func DefaultMultipartConfig() MultipartUploadConfig {
	return MultipartUploadConfig{
		PartSize:    5 * 1024 * 1024, // 5MB
		Concurrency: 5,
	}
}

// DeletePrefix removes every object under prefix and returns how many were deleted.
func DeletePrefix(ctx context.Context, store ObjectStorage, prefix string) (int, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: list %s: %v", ErrDeleteFailed, prefix, err)
	}
	if len(objects) == 0 {
		return 0, nil
	}
	if bd, ok := store.(BatchDeleter); ok {
		if err := bd.DeleteObjects(ctx, objects); err != nil {
			return 0, err
		}
		return len(objects), nil
	}
	for i, obj := range objects {
		if err := store.Delete(ctx, obj); err != nil {
			return i, err
		}
	}
	return len(objects), nil
}

// JoinPath joins object path segments with single slashes.
func JoinPath(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
