// Package poller periodically refreshes worker health and recent traces.
package poller

import (
	"context"
	"sync"
	"time"

	"tracehub/internal/models"
	"tracehub/internal/utils"
	"tracehub/internal/worker"
)

// Snapshot is one polling round's result. Err is set when the round failed
// entirely; Health and Traces are nil in that case.
type Snapshot struct {
	Health *worker.Health
	Traces []models.TraceSummary
	At     time.Time
	Err    error
}

// Poller drives a worker client on a fixed interval and hands each round's
// snapshot to a callback. Rounds never overlap.
type Poller struct {
	client   *worker.Client
	interval time.Duration
	limit    int
	logger   *utils.Logger
	onUpdate func(Snapshot)

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a poller. onUpdate is called once per round, including the
// immediate round fired on Start.
func New(client *worker.Client, interval time.Duration, limit int, logger *utils.Logger, onUpdate func(Snapshot)) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if limit <= 0 {
		limit = 10
	}
	return &Poller{
		client:   client,
		interval: interval,
		limit:    limit,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// Start begins polling until Stop is called or ctx is cancelled. Calling
// Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = make(chan struct{})

	go p.run(ctx, p.stopped)
	p.logger.Info("poller started", "interval", p.interval)
}

// Stop halts polling and waits for the in-flight round to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, stopped := p.cancel, p.stopped
	p.cancel, p.stopped = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
	p.logger.Info("poller stopped")
}

func (p *Poller) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	snapshot := Snapshot{At: time.Now()}

	health, err := p.client.FetchHealth(ctx)
	if err != nil {
		snapshot.Err = err
		p.logger.Debug("health poll failed", "error", err)
		p.onUpdate(snapshot)
		return
	}
	snapshot.Health = health

	traces, err := p.client.RecentTraces(ctx, p.limit)
	if err != nil {
		p.logger.Debug("recent traces poll failed", "error", err)
	} else {
		snapshot.Traces = traces
	}

	p.onUpdate(snapshot)
}
