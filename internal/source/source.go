// Package source reads the raw song and event-log records of a pipeline run.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/internal/storage"
	"github.com/arkilian/songlake/pkg/types"
)

// SnappySuffix marks snappy-framed input objects.
const SnappySuffix = ".sz"

const (
	defaultConcurrency = 16
	maxLineSize        = 64 * 1024 * 1024
)

// Option configures a read.
type Option func(o *options)

type options struct {
	concurrency int
	logger      *zap.Logger
}

// OptConcurrency bounds the number of objects fetched and decoded at once.
func OptConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// OptLogger sets the logger used for per-object progress.
func OptLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{concurrency: defaultConcurrency, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadSongs loads every song record from objects matching pattern.
func ReadSongs(ctx context.Context, store storage.ObjectStorage, pattern string, opts ...Option) ([]types.SongRecord, error) {
	return readRecords[types.SongRecord](ctx, store, pattern, buildOptions(opts), nil)
}

// ReadLogs loads the song-play events from objects matching pattern.
// Events whose page is not NextSong are dropped.
func ReadLogs(ctx context.Context, store storage.ObjectStorage, pattern string, opts ...Option) ([]types.LogEvent, error) {
	return readRecords[types.LogEvent](ctx, store, pattern, buildOptions(opts), types.LogEvent.IsSongPlay)
}

// MatchObjects lists the objects of store whose path matches pattern.
// A trailing .sz is ignored when matching.
func MatchObjects(ctx context.Context, store storage.ObjectStorage, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidConfig,
			fmt.Sprintf("invalid input pattern %q", pattern), err)
	}

	objects, err := store.ListObjects(ctx, staticPrefix(pattern))
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDownloadFailed,
			fmt.Sprintf("list input objects for %q", pattern), err)
	}

	var matched []string
	for _, obj := range objects {
		ok, _ := path.Match(pattern, strings.TrimSuffix(obj, SnappySuffix))
		if ok {
			matched = append(matched, obj)
		}
	}
	return matched, nil
}

// staticPrefix returns the leading directories of pattern that contain no
// wildcard, so listing can be narrowed.
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var fixed []string
	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, `*?[\`) {
			break
		}
		fixed = append(fixed, seg)
	}
	return strings.Join(fixed, "/")
}

func readRecords[T any](ctx context.Context, store storage.ObjectStorage, pattern string, o options, keep func(T) bool) ([]T, error) {
	objects, err := MatchObjects(ctx, store, pattern)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, perrors.NewInputError(perrors.CodeNoInput,
			fmt.Sprintf("no input objects match %q", pattern), nil)
	}

	o.logger.Debug("reading input objects",
		zap.String("pattern", pattern),
		zap.Int("objects", len(objects)))

	perObject := make([][]T, len(objects))
	var mu sync.Mutex
	var total int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			rows, err := readObject(gctx, store, obj, keep)
			if err != nil {
				return err
			}
			perObject[i] = rows
			mu.Lock()
			total += len(rows)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, total)
	for _, rows := range perObject {
		out = append(out, rows...)
	}
	return out, nil
}

func readObject[T any](ctx context.Context, store storage.ObjectStorage, objectPath string, keep func(T) bool) ([]T, error) {
	rc, err := store.Open(ctx, objectPath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		// Listed but gone by the time it was opened.
		return nil, perrors.NewStorageError(perrors.CodeObjectNotFound, objectPath, err)
	}
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDownloadFailed,
			fmt.Sprintf("open %s", objectPath), err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(objectPath, SnappySuffix) {
		r = snappy.NewReader(rc)
	}

	rows, err := decodeLines(r, objectPath, keep)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// decodeLines decodes one JSON object per non-blank line.
func decodeLines[T any](r io.Reader, objectPath string, keep func(T) bool) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows []T
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, perrors.NewInputError(perrors.CodeMalformedRecord,
				fmt.Sprintf("%s:%d: malformed record", objectPath, line), err).
				WithDetails(map[string]interface{}{"object": objectPath, "line": line})
		}
		if keep != nil && !keep(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, perrors.NewInputError(perrors.CodeMalformedRecord,
			fmt.Sprintf("%s: read failed", objectPath), err)
	}
	return rows, nil
}
