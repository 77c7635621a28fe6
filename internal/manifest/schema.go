// Package manifest provides the run manifest, a SQLite catalog of pipeline
// runs and the part files each run wrote.
package manifest

// CreateRunsTableSQL creates the runs table. One row per pipeline run.
const CreateRunsTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    input_location TEXT NOT NULL,
    output_location TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    error TEXT,
    summary_json TEXT
)`

// CreateFilesTableSQL creates the files table. One row per uploaded part file.
const CreateFilesTableSQL = `
CREATE TABLE IF NOT EXISTS files (
    object_path TEXT NOT NULL,
    run_id TEXT NOT NULL,
    table_name TEXT NOT NULL,
    partition_path TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL,
    etag TEXT,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (run_id, object_path),
    FOREIGN KEY (run_id) REFERENCES runs(run_id)
)`

// CreateIndexesSQL creates the lookup indexes.
var CreateIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_files_table ON files(run_id, table_name, partition_path)`,
}

// AllSchemaSQL returns all SQL statements needed to initialize the manifest.
func AllSchemaSQL() []string {
	statements := []string{
		CreateRunsTableSQL,
		CreateFilesTableSQL,
	}
	statements = append(statements, CreateIndexesSQL...)
	return statements
}
