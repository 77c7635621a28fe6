package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	perrors "github.com/arkilian/songlake/internal/errors"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = perrors.New(perrors.ErrCategoryManifest, perrors.CodeRunNotFound, "run not found")

// Catalog records pipeline runs and their part files.
type Catalog interface {
	// BeginRun records a new run in the running state.
	BeginRun(ctx context.Context, run *RunRecord) error

	// RegisterFile records a part file written by a run.
	RegisterFile(ctx context.Context, file *FileRecord) error

	// FinishRun moves a run to a terminal state.
	FinishRun(ctx context.Context, runID string, status RunStatus, runErr error, summaryJSON string) error

	// GetRun retrieves a single run.
	GetRun(ctx context.Context, runID string) (*RunRecord, error)

	// LatestRun returns the most recently started run with the given status.
	// An empty status matches any run.
	LatestRun(ctx context.Context, status RunStatus) (*RunRecord, error)

	// ListFiles returns the files of a run, optionally restricted to one table.
	ListFiles(ctx context.Context, runID, table string) ([]*FileRecord, error)

	// Close closes the catalog database connection.
	Close() error
}

// RunRecord represents a run in the manifest.
type RunRecord struct {
	RunID          string
	InputLocation  string
	OutputLocation string
	Status         RunStatus
	StartedAt      time.Time
	FinishedAt     *time.Time
	Error          string
	SummaryJSON    string
}

// FileRecord represents a part file in the manifest.
type FileRecord struct {
	RunID         string
	Table         string
	PartitionPath string
	ObjectPath    string
	RowCount      int64
	SizeBytes     int64
	ETag          string
	CreatedAt     time.Time
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // Serializes writers

	insertFileStmt *sql.Stmt
}

// NewCatalog opens (creating if needed) the manifest at dbPath.
func NewCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to open database", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	catalog := &SQLiteCatalog{
		db:     db,
		dbPath: dbPath,
	}

	if err := catalog.initSchema(); err != nil {
		db.Close()
		return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to initialize schema", err)
	}

	insertStmt, err := db.Prepare(`
		INSERT INTO files (
			object_path, run_id, table_name, partition_path,
			row_count, size_bytes, etag, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to prepare insert statement", err)
	}
	catalog.insertFileStmt = insertStmt

	return catalog, nil
}

// initSchema creates all required tables and indexes.
func (c *SQLiteCatalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (c *SQLiteCatalog) Path() string {
	return c.dbPath
}

// BeginRun records a new run in the running state.
func (c *SQLiteCatalog) BeginRun(ctx context.Context, run *RunRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunStatusRunning

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, input_location, output_location, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.InputLocation, run.OutputLocation, string(run.Status), run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return perrors.NewManifestError(perrors.CodeWriteFailed, "failed to insert run", err)
	}
	return nil
}

// RegisterFile records a part file written by a run.
func (c *SQLiteCatalog) RegisterFile(ctx context.Context, file *FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}

	_, err := c.insertFileStmt.ExecContext(ctx,
		file.ObjectPath, file.RunID, file.Table, file.PartitionPath,
		file.RowCount, file.SizeBytes, file.ETag, file.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return perrors.NewManifestError(perrors.CodeWriteFailed,
			fmt.Sprintf("failed to register file %s", file.ObjectPath), err)
	}
	return nil
}

// FinishRun moves a run to a terminal state.
func (c *SQLiteCatalog) FinishRun(ctx context.Context, runID string, status RunStatus, runErr error, summaryJSON string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	var summary sql.NullString
	if summaryJSON != "" {
		summary = sql.NullString{String: summaryJSON, Valid: true}
	}

	res, err := c.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ?, summary_json = ? WHERE run_id = ?`,
		string(status), time.Now().UnixMilli(), errText, summary, runID,
	)
	if err != nil {
		return perrors.NewManifestError(perrors.CodeWriteFailed, "failed to finish run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return perrors.NewManifestError(perrors.CodeWriteFailed, "failed to finish run", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const selectRunSQL = `SELECT run_id, input_location, output_location, status, started_at,
	finished_at, error, summary_json FROM runs`

// GetRun retrieves a single run.
func (c *SQLiteCatalog) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := c.db.QueryRowContext(ctx, selectRunSQL+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// LatestRun returns the most recently started run with the given status.
func (c *SQLiteCatalog) LatestRun(ctx context.Context, status RunStatus) (*RunRecord, error) {
	query := selectRunSQL
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT 1`

	run, err := scanRun(c.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func scanRun(row *sql.Row) (*RunRecord, error) {
	var run RunRecord
	var status string
	var startedAt int64
	var finishedAt sql.NullInt64
	var errText, summary sql.NullString

	if err := row.Scan(&run.RunID, &run.InputLocation, &run.OutputLocation, &status,
		&startedAt, &finishedAt, &errText, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to scan run", err)
	}

	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		run.FinishedAt = &t
	}
	run.Error = errText.String
	run.SummaryJSON = summary.String
	return &run, nil
}

// ListFiles returns the files of a run ordered by table and object path.
func (c *SQLiteCatalog) ListFiles(ctx context.Context, runID, table string) ([]*FileRecord, error) {
	query := `SELECT object_path, run_id, table_name, partition_path, row_count, size_bytes,
		etag, created_at FROM files WHERE run_id = ?`
	args := []interface{}{runID}
	if table != "" {
		query += ` AND table_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY table_name, object_path`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to list files", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		var f FileRecord
		var etag sql.NullString
		var createdAt int64
		if err := rows.Scan(&f.ObjectPath, &f.RunID, &f.Table, &f.PartitionPath,
			&f.RowCount, &f.SizeBytes, &etag, &createdAt); err != nil {
			return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to scan file", err)
		}
		f.ETag = etag.String
		f.CreatedAt = time.UnixMilli(createdAt)
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewManifestError(perrors.CodeWriteFailed, "failed to list files", err)
	}
	return files, nil
}

// Close closes the catalog database connection.
func (c *SQLiteCatalog) Close() error {
	if c.insertFileStmt != nil {
		c.insertFileStmt.Close()
	}
	return c.db.Close()
}
