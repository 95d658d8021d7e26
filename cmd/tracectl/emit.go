package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tracehub/internal/capture"
	"tracehub/internal/models"
	"tracehub/internal/trace"
	"tracehub/internal/utils"
)

func newEmitCmd() *cobra.Command {
	var (
		ingestURL string
		system    string
		level     string
		traceID   string
		userID    string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "emit <message>",
		Short: "Emit a test log event into the ingest pipeline",
		Long:  "Sends one log event through the capture shim, tagged with a trace id. Useful for verifying the pipeline end to end.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ingestURL == "" {
				return fmt.Errorf("--ingest-url (or INGEST_URL) is required")
			}
			sys := models.System(system)
			if !sys.Valid() {
				return fmt.Errorf("unknown system %q", system)
			}

			identity := trace.NewIdentity()
			if userID != "" {
				identity.SetUserID(userID)
			}
			identity.SetTraceID(traceID)

			shim := capture.NewShim(
				utils.NewWriterLogger("emit", cmd.OutOrStdout(), utils.Debug),
				utils.NewWriterLogger("emit-diag", cmd.ErrOrStderr(), utils.Error),
				identity,
				capture.Config{IngestURL: ingestURL, System: sys, Timeout: timeout},
			)

			message := strings.Join(args, " ")
			switch models.Level(level) {
			case models.LevelDebug:
				shim.Debug(message)
			case models.LevelWarn:
				shim.Warn(message)
			case models.LevelError:
				shim.Error(message)
			case models.LevelInfo:
				shim.Info(message)
			default:
				return fmt.Errorf("unknown level %q", level)
			}

			if !shim.Flush(timeout) {
				return fmt.Errorf("event delivery timed out after %s", timeout)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "emitted to %s (trace %s)\n", ingestURL, identity.TraceID())
			return nil
		},
	}

	cmd.Flags().StringVar(&ingestURL, "ingest-url", envOr("INGEST_URL", ""), "ingest endpoint URL")
	cmd.Flags().StringVar(&system, "system", "manual", "originating system tag")
	cmd.Flags().StringVar(&level, "level", "info", "event level: debug, info, warn, or error")
	cmd.Flags().StringVar(&traceID, "trace", "", "reuse an existing trace id instead of generating one")
	cmd.Flags().StringVar(&userID, "user", "", "user id to associate with the event")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "delivery timeout")
	return cmd
}
