// Package pipeline runs the songlake job: read raw records, build the five
// tables and write them to the output location.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arkilian/songlake/internal/config"
	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/internal/manifest"
	"github.com/arkilian/songlake/internal/observability"
	"github.com/arkilian/songlake/internal/sink"
	"github.com/arkilian/songlake/internal/source"
	"github.com/arkilian/songlake/internal/transform"
	"github.com/arkilian/songlake/pkg/types"
)

// Runner executes pipeline runs.
type Runner struct {
	cfg     *config.Config
	stores  *Stores
	catalog manifest.Catalog
	logger  *zap.Logger

	ownsCatalog bool
}

// Report describes a finished run.
type Report struct {
	RunID   string
	Tables  map[types.TableName]*sink.TableResult
	Summary observability.Summary
}

// NewRunner creates a runner over already opened stores and manifest.
func NewRunner(cfg *config.Config, stores *Stores, catalog manifest.Catalog, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		stores:  stores,
		catalog: catalog,
		logger:  logger.With(zap.String("component", "pipeline")),
	}
}

// Open resolves credentials and opens the stores and manifest described by cfg.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	creds, err := ResolveCredentials(cfg)
	if err != nil {
		return nil, err
	}
	stores, err := OpenStores(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	catalog, err := manifest.NewCatalog(cfg.ManifestPath())
	if err != nil {
		return nil, err
	}

	r := NewRunner(cfg, stores, catalog, logger)
	r.ownsCatalog = true
	return r, nil
}

// Close releases the manifest when the runner opened it.
func (r *Runner) Close() error {
	if r.ownsCatalog {
		return r.catalog.Close()
	}
	return nil
}

// Run executes one run and records it in the manifest. A failed run is
// recorded as failed; its partial output must be replaced by a new run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := newRunID()
	log := r.logger.With(zap.String("run_id", runID))

	run := &manifest.RunRecord{
		RunID:          runID,
		InputLocation:  r.stores.InputLocation.String(),
		OutputLocation: r.stores.OutputLocation.String(),
	}
	if err := r.catalog.BeginRun(ctx, run); err != nil {
		return nil, err
	}
	log.Info("run started",
		zap.String("input", run.InputLocation),
		zap.String("output", run.OutputLocation))

	stats := observability.NewRunStats()
	tables, err := r.execute(ctx, runID, stats, log)

	tableRows := make(map[string]int64, len(tables))
	for name, res := range tables {
		tableRows[string(name)] = res.Rows
	}
	summary := stats.Summarize(runID, tableRows)

	// Record the outcome even when ctx was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		if ferr := r.catalog.FinishRun(finishCtx, runID, manifest.RunStatusFailed, err, summary.JSON()); ferr != nil {
			log.Warn("failed to record run failure", zap.Error(ferr))
		}
		return nil, err
	}

	if err := r.catalog.FinishRun(finishCtx, runID, manifest.RunStatusSucceeded, nil, summary.JSON()); err != nil {
		return nil, err
	}
	summary.Log(log)
	return &Report{RunID: runID, Tables: tables, Summary: summary}, nil
}

func (r *Runner) execute(ctx context.Context, runID string, stats *observability.RunStats, log *zap.Logger) (map[types.TableName]*sink.TableResult, error) {
	loc, err := r.cfg.Location()
	if err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidConfig, "transform.timezone", err)
	}
	cal := transform.NewCalendar(loc)
	opts := transform.Options{
		ShufflePartitions: r.cfg.Transform.ShufflePartitions,
		IDPartitions:      r.cfg.Transform.IDPartitions,
	}

	readOpts := []source.Option{
		source.OptConcurrency(r.cfg.Input.ReadConcurrency),
		source.OptLogger(log.With(zap.String("component", "source"))),
	}

	var records []types.SongRecord
	var events []types.LogEvent
	rg, rctx := errgroup.WithContext(ctx)
	rg.Go(func() error {
		return stats.Time("read_songs", func() (int, error) {
			var err error
			records, err = source.ReadSongs(rctx, r.stores.Input, r.cfg.Input.SongPattern, readOpts...)
			return len(records), err
		})
	})
	rg.Go(func() error {
		return stats.Time("read_logs", func() (int, error) {
			var err error
			events, err = source.ReadLogs(rctx, r.stores.Input, r.cfg.Input.LogPattern, readOpts...)
			return len(events), err
		})
	})
	if err := rg.Wait(); err != nil {
		return nil, err
	}
	log.Info("input loaded",
		zap.Int("song_records", len(records)),
		zap.Int("song_plays", len(events)))

	writer := sink.NewWriter(r.stores.Output, sink.Config{
		RowsPerFile:       r.cfg.Output.RowsPerFile,
		UploadConcurrency: r.cfg.Output.UploadConcurrency,
		StagingDir:        r.cfg.StagingDir,
	}, log.With(zap.String("component", "sink")))

	j := &jobs{
		runID:   runID,
		writer:  writer,
		catalog: r.catalog,
		stats:   stats,
		results: make(map[types.TableName]*sink.TableResult),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return buildAndWrite(gctx, j, types.TableSongs, func() ([]types.Song, error) {
			return transform.BuildSongs(records, opts), nil
		})
	})
	g.Go(func() error {
		return buildAndWrite(gctx, j, types.TableArtists, func() ([]types.Artist, error) {
			return transform.BuildArtists(records, opts), nil
		})
	})
	g.Go(func() error {
		return buildAndWrite(gctx, j, types.TableUsers, func() ([]types.User, error) {
			return transform.BuildUsers(events, opts), nil
		})
	})
	g.Go(func() error {
		return buildAndWrite(gctx, j, types.TableTime, func() ([]types.TimeRow, error) {
			return transform.BuildTime(events, cal, opts), nil
		})
	})
	g.Go(func() error {
		return buildAndWrite(gctx, j, types.TableSongplays, func() ([]types.Songplay, error) {
			return transform.BuildSongplays(events, records, cal, opts)
		})
	})
	err = g.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results, err
}

// jobs holds what the concurrent table jobs of one run share.
type jobs struct {
	runID   string
	writer  *sink.Writer
	catalog manifest.Catalog
	stats   *observability.RunStats

	mu      sync.Mutex
	results map[types.TableName]*sink.TableResult
}

func buildAndWrite[T types.Row](ctx context.Context, j *jobs, table types.TableName, build func() ([]T, error)) error {
	var rows []T
	if err := j.stats.Time("build_"+string(table), func() (int, error) {
		var err error
		rows, err = build()
		return len(rows), err
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var result *sink.TableResult
	if err := j.stats.Time("write_"+string(table), func() (int, error) {
		var err error
		result, err = sink.WriteTable(ctx, j.writer, table, rows)
		if err != nil {
			return 0, err
		}
		return int(result.Rows), nil
	}); err != nil {
		return err
	}

	for _, f := range result.Files {
		j.stats.RecordFile("write_"+string(table), f.SizeBytes)
		if err := j.catalog.RegisterFile(ctx, &manifest.FileRecord{
			RunID:         j.runID,
			Table:         string(table),
			PartitionPath: f.PartitionPath,
			ObjectPath:    f.ObjectPath,
			RowCount:      f.RowCount,
			SizeBytes:     f.SizeBytes,
			ETag:          f.ETag,
			CreatedAt:     f.CreatedAt,
		}); err != nil {
			return fmt.Errorf("register %s: %w", f.ObjectPath, err)
		}
	}

	j.mu.Lock()
	j.results[table] = result
	j.mu.Unlock()
	return nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
