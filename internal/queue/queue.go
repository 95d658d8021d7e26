// Package queue provides the buffer between the ingest HTTP handler and the
// event store writer, with two backends:
//
//   - Memory queue (channel-based): no persistence, zero external
//     dependencies, suitable for standalone deployments and tests.
//   - Redis queue (list-based): persistent across restarts, shared by
//     distributed writers.
//
// Failed batches are retried with backoff; items that keep failing land in
// a dead-letter queue so ingestion never silently drops events.
package queue

import (
	"context"
	"time"
)

// Queue is the ingest buffer interface.
type Queue interface {
	// Enqueue adds an item to the queue.
	Enqueue(ctx context.Context, item any) error

	// Dequeue retrieves up to maxItems, blocking until at least one item
	// is available or the context is cancelled.
	Dequeue(ctx context.Context, maxItems int) ([]any, error)

	// DequeueWithTimeout retrieves up to maxItems, returning an empty
	// slice if nothing arrives before the timeout.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]any, error)

	// Length returns the current queue depth. Feeds the health
	// aggregator's queue-depth signal.
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue.
	Close() error
}

// DeadLetterQueue holds items that exhausted their retries.
type DeadLetterQueue interface {
	Add(ctx context.Context, item any, err error) error
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)
	Remove(ctx context.Context, id string) error
	Close() error
}

// DeadLetterItem is a failed item with its failure context.
type DeadLetterItem struct {
	ID        string
	Item      any
	Error     string
	Timestamp time.Time
	Retries   int
}

// Config holds queue tuning.
type Config struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	UseRedis      bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueName string
}

// DefaultConfig returns the stock tuning for a named queue.
func DefaultConfig(queueName string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		QueueName:    queueName,
	}
}
