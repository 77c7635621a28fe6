package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arkilian/songlake/internal/config"
	perrors "github.com/arkilian/songlake/internal/errors"
)

// globalFlags are the flags shared by every subcommand. Values set on the
// command line take priority over the config file and the environment.
type globalFlags struct {
	configFile string
	dataDir    string
	input      string
	output     string
	timezone   string
	logLevel   string
	logFormat  string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configFile, "config", "c", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&g.dataDir, "data-dir", "", "Base directory for local working files")
	fs.StringVar(&g.input, "input", "", "Input root (s3://bucket/prefix or a local path)")
	fs.StringVar(&g.output, "output", "", "Output root (s3://bucket/prefix or a local path)")
	fs.StringVar(&g.timezone, "timezone", "", "IANA zone used for calendar fields")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&g.logFormat, "log-format", "", "Log format: json or console")
}

// load builds the configuration: file or defaults, then SONGLAKE_* env
// overrides, then flags.
func (g *globalFlags) load(fs *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	if g.configFile != "" {
		loaded, err := config.LoadFromFile(g.configFile)
		if err != nil {
			return nil, perrors.NewConfigError(perrors.CodeInvalidConfig, "failed to load config file", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if fs.Changed("data-dir") {
		cfg.DataDir = g.dataDir
	}
	if fs.Changed("input") {
		cfg.Input.Location = g.input
	}
	if fs.Changed("output") {
		cfg.Output.Location = g.output
	}
	if fs.Changed("timezone") {
		cfg.Transform.Timezone = g.timezone
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, perrors.NewConfigError(perrors.CodeInvalidConfig, "invalid configuration", err)
	}
	return cfg, nil
}

// NewRootCommand creates the top level command with every subcommand attached.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	rc := &cobra.Command{
		Use:   "songlake",
		Short: "songlake - song play analytics tables from raw event logs",
		Long: `Reads song metadata and application event logs, derives the songs,
artists, users, time and songplays tables and writes them as
Hive-partitioned Parquet to a local directory or S3.

Version: ` + version + ` (commit: ` + commit + ")\n",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(rc.PersistentFlags())

	rc.AddCommand(newRunCommand(flags, stdout))
	rc.AddCommand(newInspectCommand(flags, stdout))
	rc.AddCommand(newVersionCommand(stdout))
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}
