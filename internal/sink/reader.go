package sink

import (
	"context"
	"fmt"
	"path"
	"strings"

	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/internal/partition"
	"github.com/arkilian/songlake/internal/storage"
	"github.com/arkilian/songlake/pkg/types"
)

// TableData is a table reloaded from its part files.
type TableData[T types.Row] struct {
	Rows       []T
	Files      []string
	Partitions []string
	Complete   bool // _SUCCESS marker present
}

// ReadTable downloads every part file of table into cacheDir and decodes it.
// Rows are returned in object path order. Each row's partition values must
// agree with the directory its file lives in.
func ReadTable[T types.Row](ctx context.Context, store storage.ObjectStorage, table types.TableName, cacheDir string, concurrency int) (*TableData[T], error) {
	objects, err := store.ListObjects(ctx, string(table))
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDownloadFailed,
			fmt.Sprintf("list %s", table), err)
	}

	data := &TableData[T]{}
	for _, obj := range objects {
		if strings.HasSuffix(obj, partition.PartSuffix) {
			data.Files = append(data.Files, obj)
		}
	}

	data.Complete, err = store.Exists(ctx, storage.JoinPath(string(table), SuccessMarker))
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDownloadFailed,
			fmt.Sprintf("check %s marker", table), err)
	}

	downloader := storage.NewBatchDownloader(store, concurrency, cacheDir)
	result, err := downloader.Download(ctx, data.Files)
	if err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDownloadFailed,
			fmt.Sprintf("download %s", table), err)
	}
	if err := result.Err(); err != nil {
		return nil, perrors.NewStorageError(perrors.CodeDownloadFailed,
			fmt.Sprintf("download %s", table), err)
	}

	columns := table.PartitionColumns()
	partitions := make(map[string]bool)
	for _, obj := range data.Files {
		partitionPath := strings.TrimPrefix(path.Dir(obj), string(table))
		partitionPath = strings.TrimPrefix(partitionPath, "/")
		values, err := partition.ParsePath(partitionPath)
		if err != nil || len(values) != len(columns) {
			return nil, perrors.NewStorageError(perrors.CodeDecodeFailed,
				fmt.Sprintf("%s is not in a %s partition directory", obj, table), err)
		}
		if !partitions[partitionPath] {
			partitions[partitionPath] = true
			data.Partitions = append(data.Partitions, partitionPath)
		}

		rows, err := partition.ReadFile[T](result.LocalPaths[obj])
		if err != nil {
			return nil, perrors.NewStorageError(perrors.CodeDecodeFailed,
				fmt.Sprintf("decode %s", obj), err)
		}
		for _, row := range rows {
			for i, v := range row.PartitionValues() {
				if values[columns[i]] != v {
					return nil, perrors.NewStorageError(perrors.CodeDecodeFailed,
						fmt.Sprintf("%s holds a row with %s=%q", obj, columns[i], v), nil)
				}
			}
		}
		data.Rows = append(data.Rows, rows...)
	}

	return data, nil
}
