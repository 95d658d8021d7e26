package poller

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracehub/internal/utils"
	"tracehub/internal/worker"
)

func testLogger() *utils.Logger {
	return utils.NewWriterLogger("poller", &bytes.Buffer{}, utils.Debug)
}

func TestPollerDeliversSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"healthy","redis_connected":true}`))
		case "/traces/recent":
			w.Write([]byte(`{"traces":[{"traceId":"trace_1_a","logCount":3,"systems":["browser"]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	snapshots := make(chan Snapshot, 16)
	p := New(worker.NewClient(server.URL, time.Second), 20*time.Millisecond, 5, testLogger(), func(s Snapshot) {
		snapshots <- s
	})

	p.Start(context.Background())
	defer p.Stop()

	var first Snapshot
	select {
	case first = <-snapshots:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	require.NoError(t, first.Err)
	require.NotNil(t, first.Health)
	assert.True(t, first.Health.RedisConnected)
	require.Len(t, first.Traces, 1)
	assert.Equal(t, "trace_1_a", first.Traces[0].TraceID)

	// Ticker keeps delivering.
	select {
	case <-snapshots:
	case <-time.After(2 * time.Second):
		t.Fatal("no second snapshot delivered")
	}
}

func TestPollerReportsErrors(t *testing.T) {
	snapshots := make(chan Snapshot, 16)
	p := New(worker.NewClient("", time.Second), 20*time.Millisecond, 5, testLogger(), func(s Snapshot) {
		snapshots <- s
	})

	p.Start(context.Background())
	defer p.Stop()

	select {
	case s := <-snapshots:
		assert.ErrorIs(t, s.Err, worker.ErrNotConfigured)
		assert.Nil(t, s.Health)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestPollerStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy","redis_connected":true}`))
	}))
	defer server.Close()

	var rounds atomic.Int64
	p := New(worker.NewClient(server.URL, time.Second), 10*time.Millisecond, 5, testLogger(), func(Snapshot) {
		rounds.Add(1)
	})

	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	after := rounds.Load()
	assert.Greater(t, after, int64(0))

	// No rounds run once stopped.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, rounds.Load())

	// Stop is idempotent.
	p.Stop()
}
