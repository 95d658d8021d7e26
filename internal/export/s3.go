package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tracehub/internal/utils"
)

// S3Archiver uploads session exports to S3 for sharing outside the
// dashboard.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Archiver creates an archiver using the default AWS credential chain.
func NewS3Archiver(ctx context.Context, bucket, region, prefix string) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: utils.NewLogger("s3-archiver"),
	}, nil
}

// Archive uploads one export. The key is date-partitioned ahead of the
// deterministic filename: <prefix>2026/08/28/debug-session-<id>.json
func (a *S3Archiver) Archive(ctx context.Context, traceID string, format Format, data []byte) (string, error) {
	now := time.Now().UTC()
	key := fmt.Sprintf("%s%04d/%02d/%02d/%s",
		a.prefix, now.Year(), now.Month(), now.Day(), Filename(traceID, format))

	contentType := "application/json"
	if format != FormatJSON {
		contentType = "text/markdown"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export to S3: %w", err)
	}

	a.logger.Info("Archived session export", "key", key, "bytes", len(data))
	return key, nil
}
