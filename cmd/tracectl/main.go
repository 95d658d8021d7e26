package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracectl",
		Short: "Trace hub command line client",
		Long:  "Inspect log worker health, list and export debug traces, and emit test events into the ingest pipeline.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newRecentCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newEmitCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tracectl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// envOr returns the environment value for key, or fallback when unset.
// Flags still override; env fills the gap for scripted use.
func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func execute(cmd *cobra.Command) int {
	// Ctrl-C cancels long-running commands like watch via the context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
