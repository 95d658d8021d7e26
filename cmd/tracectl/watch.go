package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"tracehub/internal/poller"
	"tracehub/internal/utils"
	"tracehub/internal/worker"
)

func newWatchCmd() *cobra.Command {
	var (
		workerURL string
		timeout   time.Duration
		interval  time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously watch worker health and recent traces",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client := worker.NewClient(workerURL, timeout)

			p := poller.New(client, interval, limit,
				utils.NewWriterLogger("watch", io.Discard, utils.Error),
				func(s poller.Snapshot) {
					// Clear screen.
					fmt.Fprint(out, "\033[2J\033[H")
					fmt.Fprintf(out, "tracehub watch — %s\n\n", s.At.Format(time.TimeOnly))
					if s.Err != nil {
						fmt.Fprintf(out, "poll failed: %v\n", s.Err)
						return
					}
					printHealth(cmd, s.Health)
					fmt.Fprintln(out)
					printTraces(cmd, s.Traces)
				})

			p.Start(cmd.Context())
			defer p.Stop()

			// Ctrl-C cancels the command context.
			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&workerURL, "worker-url", envOr("WORKER_URL", ""), "log worker base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 8*time.Second, "request timeout")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "refresh interval")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum traces to list")
	return cmd
}
