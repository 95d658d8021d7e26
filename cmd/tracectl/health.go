package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracehub/internal/worker"
)

func newHealthCmd() *cobra.Command {
	var (
		workerURL string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show log worker health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := worker.NewClient(workerURL, timeout)
			health, err := client.FetchHealth(cmd.Context())
			if err != nil {
				return err
			}
			printHealth(cmd, health)
			return nil
		},
	}

	cmd.Flags().StringVar(&workerURL, "worker-url", envOr("WORKER_URL", ""), "log worker base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 8*time.Second, "request timeout")
	return cmd
}

func printHealth(cmd *cobra.Command, health *worker.Health) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", health.Status)
	if health.RedisAssumed {
		fmt.Fprintln(out, "redis:  connected (assumed, worker omitted the field)")
	} else if health.RedisConnected {
		fmt.Fprintln(out, "redis:  connected")
	} else {
		fmt.Fprintln(out, "redis:  DISCONNECTED")
	}
}
