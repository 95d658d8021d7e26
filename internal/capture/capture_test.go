package capture

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracehub/internal/models"
	"tracehub/internal/trace"
	"tracehub/internal/utils"
)

type eventSink struct {
	mu     sync.Mutex
	events []models.LogEvent
}

func (s *eventSink) handler(w http.ResponseWriter, r *http.Request) {
	var event models.LogEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *eventSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *eventSink) get(i int) models.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[i]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestShim(t *testing.T, ingestURL string) (*Shim, *trace.Identity, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var localBuf, diagBuf bytes.Buffer
	identity := trace.NewIdentity()
	shim := NewShim(
		utils.NewWriterLogger("app", &localBuf, utils.Debug),
		utils.NewWriterLogger("capture", &diagBuf, utils.Debug),
		identity,
		Config{IngestURL: ingestURL, System: models.SystemBrowser, Timeout: 2 * time.Second},
	)
	return shim, identity, &localBuf, &diagBuf
}

func TestShimForwardsEvents(t *testing.T) {
	sink := &eventSink{}
	server := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer server.Close()

	shim, identity, localBuf, _ := newTestShim(t, server.URL)
	identity.SetUserID("user_42")

	shim.Info("page loaded", "route", "/dashboard")
	shim.Error("fetch failed")

	// Local output is synchronous, present before the forward lands.
	assert.Contains(t, localBuf.String(), "page loaded")
	assert.Contains(t, localBuf.String(), "fetch failed")

	waitFor(t, 2*time.Second, func() bool { return sink.len() == 2 })

	for i := 0; i < 2; i++ {
		event := sink.get(i)
		assert.Equal(t, identity.TraceID(), event.TraceID)
		assert.Equal(t, "user_42", event.UserID)
		assert.Equal(t, models.SystemBrowser, event.System)
	}
	byMessage := map[string]models.LogEvent{}
	for i := 0; i < 2; i++ {
		byMessage[sink.get(i).Message] = sink.get(i)
	}
	require.Contains(t, byMessage, "page loaded")
	assert.Equal(t, models.LevelInfo, byMessage["page loaded"].Level)
	assert.Equal(t, "/dashboard", byMessage["page loaded"].Context["route"])
	assert.Equal(t, models.LevelError, byMessage["fetch failed"].Level)
	assert.Nil(t, byMessage["fetch failed"].Context)
}

func TestShimFlush(t *testing.T) {
	sink := &eventSink{}
	server := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer server.Close()

	shim, _, _, _ := newTestShim(t, server.URL)
	for i := 0; i < 5; i++ {
		shim.Info("burst")
	}

	require.True(t, shim.Flush(2*time.Second))
	assert.Equal(t, 5, sink.len())
}

func TestShimDisabled(t *testing.T) {
	t.Run("no ingest URL", func(t *testing.T) {
		shim, _, localBuf, diagBuf := newTestShim(t, "")
		shim.Info("still logged")
		assert.Contains(t, localBuf.String(), "still logged")
		assert.Empty(t, diagBuf.String())
	})

	t.Run("capture toggled off", func(t *testing.T) {
		sink := &eventSink{}
		server := httptest.NewServer(http.HandlerFunc(sink.handler))
		defer server.Close()

		shim, identity, localBuf, _ := newTestShim(t, server.URL)
		identity.SetEnabled(false)

		shim.Warn("local only")
		assert.Contains(t, localBuf.String(), "local only")

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, sink.len())
	})
}

func TestShimSwallowsForwardFailures(t *testing.T) {
	t.Run("unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		shim, _, localBuf, diagBuf := newTestShim(t, server.URL)
		shim.Info("survives outage")

		assert.Contains(t, localBuf.String(), "survives outage")
		waitFor(t, 2*time.Second, func() bool {
			return strings.Contains(diagBuf.String(), "capture forward failed")
		})
	})

	t.Run("rejected by endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		shim, _, localBuf, diagBuf := newTestShim(t, server.URL)
		shim.Error("rate limited upstream")

		assert.Contains(t, localBuf.String(), "rate limited upstream")
		waitFor(t, 2*time.Second, func() bool {
			return strings.Contains(diagBuf.String(), "capture forward rejected")
		})
	})

	t.Run("nil diag logger", func(t *testing.T) {
		var localBuf bytes.Buffer
		shim := NewShim(
			utils.NewWriterLogger("app", &localBuf, utils.Debug),
			nil,
			trace.NewIdentity(),
			Config{IngestURL: "http://127.0.0.1:1", Timeout: time.Second},
		)
		shim.Info("no diag configured")
		assert.Contains(t, localBuf.String(), "no diag configured")
		time.Sleep(50 * time.Millisecond)
	})
}
