package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkilian/songlake/internal/logging"
	"github.com/arkilian/songlake/internal/pipeline"
	"github.com/arkilian/songlake/pkg/types"
)

func newRunCommand(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Read the raw inputs and write all five tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner, err := pipeline.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := runner.Close(); cerr != nil {
					logger.Warn("failed to close runner", zap.Error(cerr))
				}
			}()

			report, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			return printReport(stdout, report)
		},
	}
}

func printReport(w io.Writer, report *pipeline.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s finished in %s\n", report.RunID, report.Summary.Elapsed)
	fmt.Fprintln(tw, "TABLE\tROWS\tPARTITIONS\tFILES\tREPLACED")
	for _, table := range types.AllTables() {
		res, ok := report.Tables[table]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", table, res.Rows, res.Partitions, len(res.Files), res.Deleted)
	}
	return tw.Flush()
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
