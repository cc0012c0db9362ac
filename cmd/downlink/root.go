package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/downlink/internal/cliutil"
)

// version and commit are set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// newRootCommand builds the downlink command tree: a SilenceErrors,
// DisableAutoGenTag root with per-subcommand files registering themselves
// via AddCommand.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "downlink",
		Short:   "Decode and manipulate CCSDS spacecraft downlink telemetry",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: setupLogging,
	}

	cmd.AddCommand(newMergeCommand())
	cmd.AddCommand(newInfoCommand())
	cmd.AddCommand(newFilterCommand())
	cmd.AddCommand(newFrameCommand())
	cmd.AddCommand(newSyncCommand())
	cmd.AddCommand(newSpacecraftCommand())

	return cmd
}

// setupLogging configures the default slog.Logger from CCSDS_LOG before any
// subcommand runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	cfg, err := cliutil.ParseLogLevel(os.Getenv("CCSDS_LOG"))
	if err != nil {
		return fmt.Errorf("downlink: %w", err)
	}
	slog.SetDefault(cliutil.NewLogger(cfg, os.Stderr))
	return nil
}

// Execute runs the root command against os.Args.
func Execute() error {
	return newRootCommand().Execute()
}
