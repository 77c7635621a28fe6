// Package sink writes tables as Hive-partitioned Parquet datasets to object
// storage and reads them back.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/internal/partition"
	"github.com/arkilian/songlake/internal/storage"
	"github.com/arkilian/songlake/pkg/types"
)

// SuccessMarker is written last into every table directory.
const SuccessMarker = "_SUCCESS"

// Config controls part file sizing and upload parallelism.
type Config struct {
	// RowsPerFile caps the rows of one part file.
	RowsPerFile int
	// UploadConcurrency bounds concurrent encode+upload jobs per table.
	UploadConcurrency int
	// StagingDir holds part files between encoding and upload.
	StagingDir string
}

// Writer writes tables below the root of an object store.
type Writer struct {
	store  storage.ObjectStorage
	cfg    Config
	logger *zap.Logger
}

// WrittenFile describes one uploaded part file.
type WrittenFile struct {
	Table         types.TableName
	PartitionPath string
	ObjectPath    string
	RowCount      int64
	SizeBytes     int64
	ETag          string
	CreatedAt     time.Time
}

// TableResult summarizes a table write.
type TableResult struct {
	Table      types.TableName
	Rows       int64
	Partitions int
	Deleted    int
	Files      []WrittenFile
}

// NewWriter creates a table writer.
func NewWriter(store storage.ObjectStorage, cfg Config, logger *zap.Logger) *Writer {
	if cfg.RowsPerFile <= 0 {
		cfg.RowsPerFile = 100000
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 1
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, cfg: cfg, logger: logger}
}

// chunk is one part file to produce.
type chunk[T types.Row] struct {
	index         int
	partitionPath string
	rows          []T
}

// WriteTable replaces the table's directory with rows. Existing objects
// under the table prefix are deleted first, then rows are grouped by
// partition, split into part files, encoded and uploaded. A _SUCCESS marker
// is written after every part file is in place.
func WriteTable[T types.Row](ctx context.Context, w *Writer, table types.TableName, rows []T) (*TableResult, error) {
	log := w.logger.With(zap.String("table", string(table)))

	deleted, err := storage.DeletePrefix(ctx, w.store, string(table))
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDeleteFailed,
			fmt.Sprintf("clear previous output of %s", table), err)
	}
	if deleted > 0 {
		log.Debug("removed previous output", zap.Int("objects", deleted))
	}

	groups, err := partition.RouteRows(partition.NewRouter(table), rows)
	if err != nil {
		return nil, perrors.NewInternalError(fmt.Sprintf("route %s rows", table), err)
	}

	var chunks []chunk[T]
	for _, g := range groups {
		for lo := 0; lo < len(g.Rows); lo += w.cfg.RowsPerFile {
			hi := min(lo+w.cfg.RowsPerFile, len(g.Rows))
			chunks = append(chunks, chunk[T]{index: len(chunks), partitionPath: g.Path, rows: g.Rows[lo:hi]})
		}
	}

	jobID := uuid.New().String()
	builder := partition.NewBuilder(filepath.Join(w.cfg.StagingDir, string(table)+"-"+jobID))
	defer os.RemoveAll(builder.OutputDir())

	files := make([]WrittenFile, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.UploadConcurrency)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			f, err := writeChunk(gctx, w, builder, table, jobID, c)
			if err != nil {
				return err
			}
			files[c.index] = *f
			log.Debug("part file written",
				zap.String("object", f.ObjectPath),
				zap.Int64("rows", f.RowCount),
				zap.Int64("bytes", f.SizeBytes))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := writeSuccessMarker(ctx, w.store, builder.OutputDir(), table); err != nil {
		return nil, err
	}

	result := &TableResult{
		Table:      table,
		Rows:       int64(len(rows)),
		Partitions: len(groups),
		Deleted:    deleted,
		Files:      files,
	}
	log.Info("table written",
		zap.Int64("rows", result.Rows),
		zap.Int("partitions", result.Partitions),
		zap.Int("files", len(files)))
	return result, nil
}

func writeChunk[T types.Row](ctx context.Context, w *Writer, builder *partition.Builder, table types.TableName, jobID string, c chunk[T]) (*WrittenFile, error) {
	name := partition.PartFileName(c.index, jobID)
	info, err := partition.Build(ctx, builder, c.rows, name)
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeEncodeFailed,
			fmt.Sprintf("encode %s part %d", table, c.index), err)
	}
	defer os.Remove(info.LocalPath)

	objectPath := storage.JoinPath(string(table), c.partitionPath, name)
	etag, err := w.store.UploadMultipart(ctx, info.LocalPath, objectPath)
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeUploadFailed,
			fmt.Sprintf("upload %s", objectPath), err)
	}

	return &WrittenFile{
		Table:         table,
		PartitionPath: c.partitionPath,
		ObjectPath:    objectPath,
		RowCount:      info.RowCount,
		SizeBytes:     info.SizeBytes,
		ETag:          etag,
		CreatedAt:     info.CreatedAt,
	}, nil
}

func writeSuccessMarker(ctx context.Context, store storage.ObjectStorage, stagingDir string, table types.TableName) error {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return perrors.NewStorageError(perrors.CodeUploadFailed, "create staging directory", err)
	}
	marker := filepath.Join(stagingDir, SuccessMarker)
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		return perrors.NewStorageError(perrors.CodeUploadFailed, "create success marker", err)
	}
	objectPath := storage.JoinPath(string(table), SuccessMarker)
	if err := store.Upload(ctx, marker, objectPath); err != nil {
		return perrors.NewStorageError(perrors.CodeUploadFailed,
			fmt.Sprintf("upload %s", objectPath), err)
	}
	return nil
}
