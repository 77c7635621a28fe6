// Command songlake builds the songs, artists, users, time and songplays
// tables from raw song metadata and event logs.
package main

import (
	"fmt"
	"os"

	_ "time/tzdata"

	perrors "github.com/arkilian/songlake/internal/errors"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if perrors.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "the failure is transient; rerunning the job overwrites any partial output")
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error category to the process exit status.
func exitCode(err error) int {
	switch perrors.GetCategory(err) {
	case perrors.ErrCategoryConfig:
		return 2
	case perrors.ErrCategoryInput:
		return 3
	case perrors.ErrCategoryStorage, perrors.ErrCategoryManifest:
		return 4
	default:
		return 1
	}
}
