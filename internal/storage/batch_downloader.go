package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchDownloader coordinates parallel downloads from object storage into a
// local directory, skipping objects already present there.
type BatchDownloader struct {
	storage     ObjectStorage
	concurrency int
	cacheDir    string
}

// BatchResult contains the outcome of a batch download operation.
type BatchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	CacheHits  int
	Downloads  int
}

// Err returns the first download error in object path order, or nil.
func (r *BatchResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	var first string
	for p := range r.Errors {
		if first == "" || p < first {
			first = p
		}
	}
	return fmt.Errorf("download %s: %w", first, r.Errors[first])
}

// NewBatchDownloader creates a new batch downloader.
// cacheDir is required; object paths keep their directory structure below it.
func NewBatchDownloader(storage ObjectStorage, concurrency int, cacheDir string) *BatchDownloader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchDownloader{
		storage:     storage,
		concurrency: concurrency,
		cacheDir:    cacheDir,
	}
}

// Download fetches objectPaths in parallel.
// Failed objects are reported in BatchResult.Errors; the returned error is
// reserved for invalid requests.
func (b *BatchDownloader) Download(ctx context.Context, objectPaths []string) (*BatchResult, error) {
	result := &BatchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}
	if len(objectPaths) == 0 {
		return result, nil
	}
	if b.cacheDir == "" {
		return nil, fmt.Errorf("batch downloader has no cache directory")
	}

	var queue []string
	for _, p := range objectPaths {
		local, err := b.localPath(p)
		if err != nil {
			result.Errors[p] = err
			continue
		}
		if _, err := os.Stat(local); err == nil {
			result.LocalPaths[p] = local
			result.CacheHits++
			continue
		}
		queue = append(queue, p)
	}

	sem := semaphore.NewWeighted(int64(b.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, p := range queue {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[p] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		local, _ := b.localPath(p)
		wg.Add(1)
		go func(path, local string) {
			defer sem.Release(1)
			defer wg.Done()

			if err := b.storage.Download(ctx, path, local); err != nil {
				// Drop partial files so a retry does not count them as cached.
				_ = os.Remove(local)
				mu.Lock()
				result.Errors[path] = err
				mu.Unlock()
				return
			}

			mu.Lock()
			result.LocalPaths[path] = local
			result.Downloads++
			mu.Unlock()
		}(p, local)
	}

	wg.Wait()

	return result, nil
}

// localPath maps an object path below the cache directory.
func (b *BatchDownloader) localPath(objectPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object path %q escapes cache directory", objectPath)
	}
	return filepath.Join(b.cacheDir, clean), nil
}
