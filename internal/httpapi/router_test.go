package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tracehub/internal/correlate"
	"tracehub/internal/health"
	"tracehub/internal/models"
	"tracehub/internal/queue"
	"tracehub/internal/ratelimit"
	"tracehub/internal/utils"
	"tracehub/internal/worker"
)

// fakeEventStore backs the correlate service and the EventStore reads in
// handler tests.
type fakeEventStore struct {
	events    []models.LogEvent
	recent    []models.TraceSummary
	storageMB float64
	err       error
}

func (f *fakeEventStore) ListByTrace(_ context.Context, traceID string, systems []models.System) ([]models.LogEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var matched []models.LogEvent
	for _, event := range f.events {
		if event.TraceID != traceID {
			continue
		}
		if len(systems) > 0 && !containsSystem(systems, event.System) {
			continue
		}
		matched = append(matched, event)
	}
	return matched, nil
}

func (f *fakeEventStore) RecentTraces(_ context.Context, limit int) ([]models.TraceSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeEventStore) EstimatedStorageMB(_ context.Context) (float64, error) {
	return f.storageMB, f.err
}

func containsSystem(systems []models.System, s models.System) bool {
	for _, candidate := range systems {
		if candidate == s {
			return true
		}
	}
	return false
}

type testHarness struct {
	mux   *http.ServeMux
	deps  *Dependencies
	store *fakeEventStore
	redis *miniredis.Miniredis
}

type harnessOption func(*testHarness)

func withWorkerURL(url string) harnessOption {
	return func(h *testHarness) {
		h.deps.Worker = worker.NewClient(url, time.Second)
	}
}

func withGlobalLimit(limit int64) harnessOption {
	return func(h *testHarness) {
		h.deps.Meter = ratelimit.NewMeter(
			redis.NewClient(&redis.Options{Addr: h.redis.Addr()}),
			ratelimit.Config{
				Window:        time.Hour,
				GlobalLimit:   limit,
				CostPerWrite:  0.001,
				BudgetCeiling: 10,
			})
	}
}

func newHarness(t miniredis.Tester, opts ...harnessOption) *testHarness {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := &fakeEventStore{}
	h := &testHarness{
		deps: &Dependencies{
			Logger: utils.NewWriterLogger("httpapi", &bytes.Buffer{}, utils.Debug),
			Meter: ratelimit.NewMeter(client, ratelimit.Config{
				Window:        time.Hour,
				GlobalLimit:   1000,
				CostPerWrite:  0.001,
				BudgetCeiling: 10,
			}),
			Queue:      queue.NewMemoryQueue(queue.DefaultConfig("test")),
			Worker:     worker.NewClient("", time.Second),
			Correlate:  correlate.NewService(store),
			Events:     store,
			Thresholds: health.DefaultThresholds(),
		},
		store: store,
		redis: mr,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux = http.NewServeMux()
	registerRoutes(h.mux, h.deps)
	return h
}
