package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"tracehub/internal/correlate"
	"tracehub/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		serverURL  string
		formatName string
		outDir     string
		gzipOut    bool
		s3Archive  bool
		s3Bucket   string
		s3Region   string
		s3Prefix   string
	)

	cmd := &cobra.Command{
		Use:   "export <trace-id>",
		Short: "Export a debug session to a file",
		Long:  "Fetches all correlated events for a trace from the hub and writes them as JSON, markdown, or an analysis-ready transcript. Optionally archives the export to S3.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traceID := args[0]

			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}

			session, err := fetchSession(cmd, serverURL, traceID)
			if err != nil {
				return err
			}

			data, err := export.Export(session, format)
			if err != nil {
				return err
			}

			path, err := export.WriteFile(outDir, traceID, format, data, gzipOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d events)\n", path, session.LogCount)

			if s3Archive {
				archiver, err := export.NewS3Archiver(cmd.Context(), s3Bucket, s3Region, s3Prefix)
				if err != nil {
					return err
				}
				key, err := archiver.Archive(cmd.Context(), traceID, format, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived to s3://%s/%s\n", s3Bucket, key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", envOr("TRACEHUB_URL", "http://localhost:8080"), "trace hub base URL")
	cmd.Flags().StringVarP(&formatName, "format", "f", "json", "export format: json, markdown, or claude")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&gzipOut, "gzip", false, "gzip-compress the output file")
	cmd.Flags().BoolVar(&s3Archive, "s3", false, "also archive the export to S3")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", envOr("EXPORT_S3_BUCKET", ""), "S3 bucket for archival")
	cmd.Flags().StringVar(&s3Region, "s3-region", envOr("EXPORT_S3_REGION", "us-east-1"), "S3 region")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", envOr("EXPORT_S3_PREFIX", "debug-sessions/"), "S3 key prefix")
	return cmd
}

// fetchSession pulls the correlated session from the hub API.
func fetchSession(cmd *cobra.Command, serverURL, traceID string) (*correlate.Session, error) {
	endpoint := fmt.Sprintf("%s/api/traces/%s", serverURL, url.PathEscape(traceID))

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach trace hub: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no events found for trace %s", traceID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trace hub returned status %d", resp.StatusCode)
	}

	var session correlate.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("invalid session payload: %w", err)
	}
	return &session, nil
}
