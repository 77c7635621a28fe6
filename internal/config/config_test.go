package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.StagingDir != filepath.Join(cfg.DataDir, "staging") {
		t.Errorf("unexpected staging dir %q", cfg.StagingDir)
	}
	if cfg.ManifestPath() != filepath.Join(cfg.DataDir, "manifest.db") {
		t.Errorf("unexpected manifest path %q", cfg.ManifestPath())
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no input", func(c *Config) { c.Input.Location = "" }, "input.location"},
		{"no output", func(c *Config) { c.Output.Location = "" }, "output.location"},
		{"bad timezone", func(c *Config) { c.Transform.Timezone = "Mars/Olympus" }, "transform.timezone"},
		{"zero shuffle", func(c *Config) { c.Transform.ShufflePartitions = 0 }, "shuffle_partitions"},
		{"too many id partitions", func(c *Config) { c.Transform.IDPartitions = 1025 }, "id_partitions"},
		{"zero rows per file", func(c *Config) { c.Output.RowsPerFile = 0 }, "rows_per_file"},
		{"s3 without credentials", func(c *Config) { c.AWS.CredentialsFile = "" }, "credentials_file"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_LocalWithoutCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Location = "/data/in"
	cfg.Output.Location = "file:///data/out"
	cfg.AWS.CredentialsFile = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("local locations need no credentials: %v", err)
	}
	if cfg.UsesS3() {
		t.Error("UsesS3 should be false for local locations")
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songlake.yaml")
	content := `
data_dir: /tmp/songlake
input:
  location: s3a://udacity-dend/
  read_concurrency: 4
output:
  location: s3://my-lake/output
transform:
  timezone: America/New_York
log:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.DataDir != "/tmp/songlake" {
		t.Errorf("data_dir: got %q", cfg.DataDir)
	}
	if cfg.Input.ReadConcurrency != 4 {
		t.Errorf("read_concurrency: got %d", cfg.Input.ReadConcurrency)
	}
	if cfg.Output.Location != "s3://my-lake/output" {
		t.Errorf("output.location: got %q", cfg.Output.Location)
	}
	if cfg.Transform.Timezone != "America/New_York" {
		t.Errorf("timezone: got %q", cfg.Transform.Timezone)
	}
	// Unset keys keep their defaults
	if cfg.Input.SongPattern != "song_data/*/*/*/*.json" {
		t.Errorf("song_pattern default lost: %q", cfg.Input.SongPattern)
	}
	if cfg.Transform.ShufflePartitions != 8 {
		t.Errorf("shuffle_partitions default lost: %d", cfg.Transform.ShufflePartitions)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songlake.json")
	content := `{"output": {"location": "/tmp/out", "rows_per_file": 10}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Output.RowsPerFile != 10 || cfg.Output.Location != "/tmp/out" {
		t.Errorf("unexpected output config %+v", cfg.Output)
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songlake.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SONGLAKE_INPUT", "/data/in")
	t.Setenv("SONGLAKE_OUTPUT", "/data/out")
	t.Setenv("SONGLAKE_TIMEZONE", "Europe/Berlin")
	t.Setenv("SONGLAKE_SHUFFLE_PARTITIONS", "32")
	t.Setenv("SONGLAKE_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Input.Location != "/data/in" || cfg.Output.Location != "/data/out" {
		t.Errorf("locations not applied: %q %q", cfg.Input.Location, cfg.Output.Location)
	}
	if cfg.Transform.Timezone != "Europe/Berlin" {
		t.Errorf("timezone not applied: %q", cfg.Transform.Timezone)
	}
	if cfg.Transform.ShufflePartitions != 32 {
		t.Errorf("shuffle partitions not applied: %d", cfg.Transform.ShufflePartitions)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level not applied: %q", cfg.Log.Level)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "songlake")
	cfg.Resolve()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(cfg.StagingDir); err != nil {
		t.Errorf("staging dir not created: %v", err)
	}
}
