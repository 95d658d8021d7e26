// Package ratelimit maintains the sliding-window ingestion counters and the
// cumulative cost estimate. Counters live in Redis so concurrent emitters
// share one window with atomic increments; no counts are lost to racing
// writers.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tracehub/internal/models"
)

// Config holds meter parameters. Window and limit are externally supplied.
type Config struct {
	Window        time.Duration
	GlobalLimit   int64
	CostPerWrite  float64
	BudgetCeiling float64
}

// Meter tracks per-window rate counters and the monthly write counter.
//
// All counters for a window are keyed by the window's start epoch, so the
// reset at window expiry is implicit: once the clock crosses the boundary
// every reader computes a new key and sees zeroed counters. Repeated update
// calls after expiry land on the same fresh window, which makes the reset
// idempotent. Stale keys age out via TTL.
type Meter struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time
}

// NewMeter creates a meter backed by the given Redis client.
func NewMeter(client *redis.Client, cfg Config) *Meter {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &Meter{client: client, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source. Test use.
func (m *Meter) SetClock(now func() time.Time) { m.now = now }

func (m *Meter) windowStart(t time.Time) time.Time {
	return t.Truncate(m.cfg.Window)
}

func (m *Meter) globalKey(ws time.Time) string {
	return fmt.Sprintf("rate:%d:global", ws.Unix())
}

func (m *Meter) systemsKey(ws time.Time) string {
	return fmt.Sprintf("rate:%d:systems", ws.Unix())
}

func (m *Meter) tracesKey(ws time.Time) string {
	return fmt.Sprintf("rate:%d:traces", ws.Unix())
}

func (m *Meter) costKey(t time.Time) string {
	return fmt.Sprintf("cost:writes:%04d-%02d", t.Year(), int(t.Month()))
}

// Record registers one ingested event against the current window and the
// monthly cost counter. Increments are atomic on the Redis side.
func (m *Meter) Record(ctx context.Context, system models.System, traceID string) error {
	now := m.now()
	ws := m.windowStart(now)
	ttl := 2 * m.cfg.Window

	pipe := m.client.Pipeline()
	pipe.Incr(ctx, m.globalKey(ws))
	pipe.HIncrBy(ctx, m.systemsKey(ws), string(system), 1)
	pipe.HIncrBy(ctx, m.tracesKey(ws), traceID, 1)
	pipe.Expire(ctx, m.globalKey(ws), ttl)
	pipe.Expire(ctx, m.systemsKey(ws), ttl)
	pipe.Expire(ctx, m.tracesKey(ws), ttl)
	// Monthly write counter, kept for two months.
	pipe.Incr(ctx, m.costKey(now))
	pipe.Expire(ctx, m.costKey(now), 60*24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Snapshot returns a read-only view of the current window's counters.
func (m *Meter) Snapshot(ctx context.Context) (models.RateWindowState, error) {
	now := m.now()
	ws := m.windowStart(now)

	state := models.RateWindowState{
		Global:            models.GlobalRate{Limit: m.cfg.GlobalLimit},
		PerSystem:         map[string]int64{},
		PerTrace:          map[string]int64{},
		WindowRemainingMs: ws.Add(m.cfg.Window).Sub(now).Milliseconds(),
	}

	global, err := m.client.Get(ctx, m.globalKey(ws)).Int64()
	if err != nil && err != redis.Nil {
		return state, fmt.Errorf("failed to read global counter: %w", err)
	}
	state.Global.Current = global

	systems, err := m.client.HGetAll(ctx, m.systemsKey(ws)).Result()
	if err != nil {
		return state, fmt.Errorf("failed to read system counters: %w", err)
	}
	for system, raw := range systems {
		if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			state.PerSystem[system] = n
		}
	}

	traces, err := m.client.HGetAll(ctx, m.tracesKey(ws)).Result()
	if err != nil {
		return state, fmt.Errorf("failed to read trace counters: %w", err)
	}
	for traceID, raw := range traces {
		if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			state.PerTrace[traceID] = n
		}
	}

	return state, nil
}

// Update forces a reset check and returns the resulting state. Counters for
// an expired window are gone from the snapshot the moment the boundary
// passes; Update additionally deletes the previous window's keys rather
// than waiting for TTL. Safe to call repeatedly.
func (m *Meter) Update(ctx context.Context) (models.RateWindowState, error) {
	prev := m.windowStart(m.now()).Add(-m.cfg.Window)
	// Best effort: TTL would reclaim these anyway.
	m.client.Del(ctx, m.globalKey(prev), m.systemsKey(prev), m.tracesKey(prev))

	return m.Snapshot(ctx)
}

// CostMetrics derives the month-to-date cost estimate from the write
// counter. budgetUsedPercent is recomputed on every read.
func (m *Meter) CostMetrics(ctx context.Context) (models.CostMetrics, error) {
	metrics := models.CostMetrics{BudgetCeiling: m.cfg.BudgetCeiling}

	writes, err := m.client.Get(ctx, m.costKey(m.now())).Int64()
	if err != nil && err != redis.Nil {
		return metrics, fmt.Errorf("failed to read write counter: %w", err)
	}

	metrics.TotalWrites = writes
	metrics.EstimatedCost = float64(writes) * m.cfg.CostPerWrite
	if m.cfg.BudgetCeiling > 0 {
		metrics.BudgetUsedPercent = metrics.EstimatedCost / m.cfg.BudgetCeiling * 100
	}
	return metrics, nil
}
