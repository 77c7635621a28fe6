// Package observability tracks per-stage statistics of a pipeline run.
package observability

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunStats collects row counts, file counts and durations per stage.
// It is safe for concurrent use by the stages of one run.
type RunStats struct {
	mu      sync.RWMutex
	started time.Time
	stages  map[string]*StageStats
}

// StageStats holds statistics for one stage, e.g. "read_logs" or "write_songplays".
type StageStats struct {
	Stage    string        `json:"stage"`
	Rows     int64         `json:"rows"`
	Files    int64         `json:"files,omitempty"`
	Bytes    int64         `json:"bytes,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Order    int           `json:"-"`
}

// Summary is the serializable snapshot of a run's statistics.
type Summary struct {
	RunID   string           `json:"run_id"`
	Elapsed time.Duration    `json:"elapsed_ns"`
	Stages  []StageStats     `json:"stages"`
	Tables  map[string]int64 `json:"table_rows"`
}

// NewRunStats creates a new tracker whose clock starts now.
func NewRunStats() *RunStats {
	return &RunStats{
		started: time.Now(),
		stages:  make(map[string]*StageStats),
	}
}

func (r *RunStats) stage(name string) *StageStats {
	s, ok := r.stages[name]
	if !ok {
		s = &StageStats{Stage: name, Order: len(r.stages)}
		r.stages[name] = s
	}
	return s
}

// RecordStage adds rows and elapsed time to a stage.
func (r *RunStats) RecordStage(name string, rows int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stage(name)
	s.Rows += int64(rows)
	s.Duration += elapsed
}

// RecordFile adds one written file to a stage.
func (r *RunStats) RecordFile(name string, sizeBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stage(name)
	s.Files++
	s.Bytes += sizeBytes
}

// Time runs fn and records its duration and row count under name.
func (r *RunStats) Time(name string, fn func() (int, error)) error {
	start := time.Now()
	rows, err := fn()
	if err != nil {
		return err
	}
	r.RecordStage(name, rows, time.Since(start))
	return nil
}

// Stage returns a copy of one stage's statistics.
func (r *RunStats) Stage(name string) (StageStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stages[name]
	if !ok {
		return StageStats{}, false
	}
	return *s, true
}

// Stages returns copies of all stages in the order they were first recorded.
func (r *RunStats) Stages() []StageStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]StageStats, 0, len(r.stages))
	for _, s := range r.stages {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Order < stats[j].Order })
	return stats
}

// Summarize snapshots the statistics. tableRows maps table names to the rows written.
func (r *RunStats) Summarize(runID string, tableRows map[string]int64) Summary {
	return Summary{
		RunID:   runID,
		Elapsed: time.Since(r.started),
		Stages:  r.Stages(),
		Tables:  tableRows,
	}
}

// JSON encodes the summary for the run manifest.
func (s Summary) JSON() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// Log writes one line per stage and a final run line.
func (s Summary) Log(logger *zap.Logger) {
	for _, st := range s.Stages {
		logger.Info("stage finished",
			zap.String("stage", st.Stage),
			zap.Int64("rows", st.Rows),
			zap.Int64("files", st.Files),
			zap.Int64("bytes", st.Bytes),
			zap.Duration("duration", st.Duration))
	}
	logger.Info("run statistics",
		zap.String("run_id", s.RunID),
		zap.Duration("elapsed", s.Elapsed),
		zap.Any("table_rows", s.Tables))
}
