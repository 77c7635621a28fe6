// Package partition routes table rows to Hive-style partition directories and
// encodes them as Snappy-compressed Parquet part files.
package partition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/arkilian/songlake/pkg/types"
)

// PartSuffix is the file name suffix of every part file.
const PartSuffix = ".snappy.parquet"

// parallelism is the number of goroutines parquet-go uses to encode or decode.
const parallelism = 4

// PartInfo contains metadata about a part file built on local disk.
type PartInfo struct {
	FileName  string
	LocalPath string
	RowCount  int64
	SizeBytes int64
	CreatedAt time.Time
}

// Builder writes part files into a local staging directory.
type Builder struct {
	outputDir string
}

// NewBuilder creates a new part file builder.
func NewBuilder(outputDir string) *Builder {
	return &Builder{outputDir: outputDir}
}

// OutputDir returns the staging directory.
func (b *Builder) OutputDir() string {
	return b.outputDir
}

// PartFileName formats the name of the index-th part file of a write job.
func PartFileName(index int, jobID string) string {
	return fmt.Sprintf("part-%05d-%s%s", index, jobID, PartSuffix)
}

// Build encodes rows into a Parquet file named fileName below the staging directory.
func Build[T types.Row](ctx context.Context, b *Builder, rows []T, fileName string) (*PartInfo, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("partition: cannot build part file with empty rows")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("partition: failed to create output directory: %w", err)
	}
	localPath := filepath.Join(b.outputDir, fileName)

	fw, err := local.NewLocalFileWriter(localPath)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to create %s: %w", localPath, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(T), parallelism)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("partition: failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range rows {
		if err := pw.Write(row); err != nil {
			fw.Close()
			return nil, fmt.Errorf("partition: failed to write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return nil, fmt.Errorf("partition: failed to finalize parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("partition: failed to close %s: %w", localPath, err)
	}

	stat, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to stat part file: %w", err)
	}

	return &PartInfo{
		FileName:  fileName,
		LocalPath: localPath,
		RowCount:  int64(len(rows)),
		SizeBytes: stat.Size(),
		CreatedAt: time.Now(),
	}, nil
}

// ReadFile decodes every row of a Parquet part file.
func ReadFile[T types.Row](localPath string) ([]T, error) {
	fr, err := local.NewLocalFileReader(localPath)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to open %s: %w", localPath, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), parallelism)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]T, int(pr.GetNumRows()))
	if len(rows) == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("partition: failed to read %s: %w", localPath, err)
	}
	return rows, nil
}
