package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tracehub/internal/models"
	"tracehub/internal/queue"
	"tracehub/internal/utils"
)

// EventWriter is the subset of the repository the ingest worker needs.
type EventWriter interface {
	Insert(ctx context.Context, event *models.LogEvent) error
	InsertBatch(ctx context.Context, events []*models.LogEvent) error
}

// IngestWorker drains the ingest queue and writes log events to the store
// in batches. Batches that fail fall back to per-item inserts with retries;
// items that keep failing go to the dead letter queue.
type IngestWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	repo        EventWriter
	config      *queue.Config
	logger      *utils.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewIngestWorker creates a worker over the given queue and repository.
func NewIngestWorker(q queue.Queue, dlq queue.DeadLetterQueue, repo EventWriter, config *queue.Config) *IngestWorker {
	if config == nil {
		config = queue.DefaultConfig("ingest")
	}
	return &IngestWorker{
		queue:       q,
		dlq:         dlq,
		repo:        repo,
		config:      config,
		logger:      utils.NewLogger("ingest-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *IngestWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop shuts the worker down and waits for the loop to exit.
func (w *IngestWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

func (w *IngestWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Ingest worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Ingest worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

func (w *IngestWorker) processBatch(ctx context.Context) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Failed to dequeue log events", "error", err)
		time.Sleep(1 * time.Second) // back off on error
		return
	}
	if len(items) == 0 {
		return
	}

	events := make([]*models.LogEvent, 0, len(items))
	for _, item := range items {
		event, err := decodeEvent(item)
		if err != nil {
			w.logger.Error("Failed to decode log event", "error", err)
			if w.dlq != nil {
				_ = w.dlq.Add(ctx, item, err)
			}
			continue
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return
	}

	batchErr := w.repo.InsertBatch(ctx, events)
	if batchErr == nil {
		w.logger.Debug("Stored log event batch", "count", len(events))
		return
	}
	w.logger.Error("Batch insert failed, retrying per event", "error", batchErr)

	for _, event := range events {
		w.insertWithRetry(ctx, event)
	}
}

// insertWithRetry tries a single event with backoff, dead-lettering it when
// retries run out.
func (w *IngestWorker) insertWithRetry(ctx context.Context, event *models.LogEvent) {
	backoff := w.config.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
		}
		if lastErr = w.repo.Insert(ctx, event); lastErr == nil {
			return
		}
	}

	w.logger.Error("Dead-lettering log event", "event_id", event.ID, "error", lastErr)
	if w.dlq != nil {
		_ = w.dlq.Add(ctx, event, lastErr)
	}
}

func decodeEvent(item any) (*models.LogEvent, error) {
	switch v := item.(type) {
	case *models.LogEvent:
		return v, nil
	case models.LogEvent:
		return &v, nil
	case json.RawMessage:
		var event models.LogEvent
		if err := json.Unmarshal(v, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log event: %w", err)
		}
		return &event, nil
	case []byte:
		var event models.LogEvent
		if err := json.Unmarshal(v, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log event: %w", err)
		}
		return &event, nil
	default:
		return nil, fmt.Errorf("unexpected queue item type %T", item)
	}
}
