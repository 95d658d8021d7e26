package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tracehub/internal/models"
	"tracehub/internal/worker"
)

func newRecentCmd() *cobra.Command {
	var (
		workerURL string
		timeout   time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently seen traces",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := worker.NewClient(workerURL, timeout)
			traces, err := client.RecentTraces(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printTraces(cmd, traces)
			return nil
		},
	}

	cmd.Flags().StringVar(&workerURL, "worker-url", envOr("WORKER_URL", ""), "log worker base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 8*time.Second, "request timeout")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum traces to list")
	return cmd
}

func printTraces(cmd *cobra.Command, traces []models.TraceSummary) {
	out := cmd.OutOrStdout()
	if len(traces) == 0 {
		fmt.Fprintln(out, "no traces")
		return
	}
	fmt.Fprintf(out, "%-40s %6s  %-24s %s\n", "TRACE", "LOGS", "SYSTEMS", "LAST SEEN")
	for _, t := range traces {
		lastSeen := ""
		if !t.Timestamp.IsZero() {
			lastSeen = t.Timestamp.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%-40s %6d  %-24s %s\n",
			t.TraceID, t.LogCount, strings.Join(t.Systems, ","), lastSeen)
	}
}
