// Package config provides configuration for the songlake job.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration of a run.
type Config struct {
	// DataDir is the base directory for local working files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Input configuration
	Input InputConfig `json:"input" yaml:"input"`

	// Output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Transform configuration
	Transform TransformConfig `json:"transform" yaml:"transform"`

	// AWS configuration shared by input and output S3 locations
	AWS AWSConfig `json:"aws" yaml:"aws"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`

	// StagingDir holds parquet files before upload; derived from DataDir when empty
	StagingDir string `json:"staging_dir" yaml:"staging_dir"`
}

// InputConfig describes where raw JSON records are read from.
type InputConfig struct {
	// Location is the input root: s3://bucket/prefix, s3a://bucket/prefix, file:///path or a path
	Location string `json:"location" yaml:"location"`

	// SongPattern matches song-metadata objects relative to Location
	SongPattern string `json:"song_pattern" yaml:"song_pattern"`

	// LogPattern matches event-log objects relative to Location
	LogPattern string `json:"log_pattern" yaml:"log_pattern"`

	// ReadConcurrency is the number of objects fetched in parallel per reader
	ReadConcurrency int `json:"read_concurrency" yaml:"read_concurrency"`
}

// OutputConfig describes where tables are written.
type OutputConfig struct {
	// Location is the output root; one sub-path per table
	Location string `json:"location" yaml:"location"`

	// RowsPerFile caps the rows in a single parquet part file
	RowsPerFile int `json:"rows_per_file" yaml:"rows_per_file"`

	// UploadConcurrency is the number of part files uploaded in parallel per table
	UploadConcurrency int `json:"upload_concurrency" yaml:"upload_concurrency"`
}

// TransformConfig holds transformation settings.
type TransformConfig struct {
	// Timezone is the IANA zone used to derive calendar fields. Defaults to UTC,
	// where ts 1542242481796 falls on day 15, hour 0; a UTC-2 zone such as
	// Etc/GMT+2 places it on day 14, hour 22.
	Timezone string `json:"timezone" yaml:"timezone"`

	// ShufflePartitions is the number of hash buckets used for deduplication
	ShufflePartitions int `json:"shuffle_partitions" yaml:"shuffle_partitions"`

	// IDPartitions is the number of songplay id generators (1-1024)
	IDPartitions int `json:"id_partitions" yaml:"id_partitions"`
}

// AWSConfig holds S3 client settings.
type AWSConfig struct {
	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (MinIO, LocalStack)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`

	// CredentialsFile holds AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`

	// UseDefaultChain falls back to the SDK default credential chain when no file is set
	UseDefaultChain bool `json:"use_default_chain" yaml:"use_default_chain"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is json or console
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/songlake",
		Input: InputConfig{
			Location:        "s3a://udacity-dend/",
			SongPattern:     "song_data/*/*/*/*.json",
			LogPattern:      "log_data/*.json",
			ReadConcurrency: 16,
		},
		Output: OutputConfig{
			Location:          "s3a://udacity-data-lake-output/",
			RowsPerFile:       100000,
			UploadConcurrency: 4,
		},
		Transform: TransformConfig{
			Timezone:          "UTC",
			ShufflePartitions: 8,
			IDPartitions:      4,
		},
		AWS: AWSConfig{
			Region:          "us-west-2",
			CredentialsFile: "dl.cfg",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Resolve fills derived paths from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/songlake"
	}
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join(c.DataDir, "staging")
	}
}

// ManifestPath returns the path to the run manifest database.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, "manifest.db")
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Transform.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid transform.timezone %q: %w", c.Transform.Timezone, err)
	}
	return loc, nil
}

// UsesS3 reports whether the input or the output lives in S3.
func (c *Config) UsesS3() bool {
	return isS3(c.Input.Location) || isS3(c.Output.Location)
}

func isS3(location string) bool {
	return strings.HasPrefix(location, "s3://") || strings.HasPrefix(location, "s3a://") || strings.HasPrefix(location, "s3n://")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Input.Location == "" {
		return fmt.Errorf("input.location is required")
	}
	if c.Output.Location == "" {
		return fmt.Errorf("output.location is required")
	}
	if c.Input.SongPattern == "" || c.Input.LogPattern == "" {
		return fmt.Errorf("input.song_pattern and input.log_pattern are required")
	}
	if c.Input.ReadConcurrency < 1 {
		return fmt.Errorf("input.read_concurrency must be at least 1, got %d", c.Input.ReadConcurrency)
	}

	if c.Output.RowsPerFile < 1 {
		return fmt.Errorf("output.rows_per_file must be at least 1, got %d", c.Output.RowsPerFile)
	}
	if c.Output.UploadConcurrency < 1 {
		return fmt.Errorf("output.upload_concurrency must be at least 1, got %d", c.Output.UploadConcurrency)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Transform.ShufflePartitions < 1 {
		return fmt.Errorf("transform.shuffle_partitions must be at least 1, got %d", c.Transform.ShufflePartitions)
	}
	if c.Transform.IDPartitions < 1 || c.Transform.IDPartitions > 1024 {
		return fmt.Errorf("transform.id_partitions must be between 1 and 1024, got %d", c.Transform.IDPartitions)
	}

	if c.UsesS3() && c.AWS.CredentialsFile == "" && !c.AWS.UseDefaultChain {
		return fmt.Errorf("aws.credentials_file is required for s3 locations unless aws.use_default_chain is set")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format: %s (must be json or console)", c.Log.Format)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv applies environment overrides.
// Environment variables use the SONGLAKE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SONGLAKE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Input configuration
	if v := os.Getenv("SONGLAKE_INPUT"); v != "" {
		cfg.Input.Location = v
	}
	if v := os.Getenv("SONGLAKE_SONG_PATTERN"); v != "" {
		cfg.Input.SongPattern = v
	}
	if v := os.Getenv("SONGLAKE_LOG_PATTERN"); v != "" {
		cfg.Input.LogPattern = v
	}
	if v := os.Getenv("SONGLAKE_READ_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Input.ReadConcurrency)
	}

	// Output configuration
	if v := os.Getenv("SONGLAKE_OUTPUT"); v != "" {
		cfg.Output.Location = v
	}
	if v := os.Getenv("SONGLAKE_ROWS_PER_FILE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Output.RowsPerFile)
	}

	// Transform configuration
	if v := os.Getenv("SONGLAKE_TIMEZONE"); v != "" {
		cfg.Transform.Timezone = v
	}
	if v := os.Getenv("SONGLAKE_SHUFFLE_PARTITIONS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Transform.ShufflePartitions)
	}

	// AWS configuration
	if v := os.Getenv("SONGLAKE_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("SONGLAKE_AWS_ENDPOINT"); v != "" {
		cfg.AWS.Endpoint = v
	}
	if v := os.Getenv("SONGLAKE_CREDENTIALS_FILE"); v != "" {
		cfg.AWS.CredentialsFile = v
	}

	// Log configuration
	if v := os.Getenv("SONGLAKE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SONGLAKE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// EnsureDirectories creates all required local directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.StagingDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
