package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()

	// Logging level is a flag, so the context logger is finalized in the
	// command's PersistentPreRun once flags are parsed.
	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reroot",
		Short: "Re-root a source tree under a new base path and identifier scheme",
		Long: `reroot copies or updates a directory tree from a source root to a target
root, rewriting embedded path references and textual identifiers according
to ordered declarative rules. Runs are dry-run by default; --apply executes
the plan and --syncback runs the same transformation in reverse.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd)
		},
		RunE: runSync,
	}
	addRootFlags(cmd)
	return cmd
}
