package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracehub/internal/correlate"
	"tracehub/internal/models"
	"tracehub/internal/utils"
)

func seedTrace(h *testHarness) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	h.store.events = []models.LogEvent{
		{ID: uuid.New(), Timestamp: base.Add(2 * time.Second), System: models.SystemConvex, TraceID: "trace_1_a", UserID: "user_42", Level: models.LevelError, Message: "mutation failed"},
		{ID: uuid.New(), Timestamp: base, System: models.SystemBrowser, TraceID: "trace_1_a", Level: models.LevelInfo, Message: "page loaded"},
		{ID: uuid.New(), Timestamp: base.Add(time.Second), System: models.SystemWorker, TraceID: "trace_2_b", Level: models.LevelInfo, Message: "unrelated"},
	}
}

func get(h *testHarness, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRecentTraces(t *testing.T) {
	h := newHarness(t)
	h.store.recent = []models.TraceSummary{
		{TraceID: "trace_2_b", LogCount: 1, Systems: []string{"worker"}},
		{TraceID: "trace_1_a", LogCount: 2, Systems: []string{"browser", "convex"}},
	}

	t.Run("lists with no-cache headers", func(t *testing.T) {
		rec := get(h, "/api/traces/recent")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

		var resp struct {
			Traces []models.TraceSummary `json:"traces"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Traces, 2)
		assert.Equal(t, "trace_2_b", resp.Traces[0].TraceID)
	})

	t.Run("honors limit", func(t *testing.T) {
		rec := get(h, "/api/traces/recent?limit=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Traces []models.TraceSummary `json:"traces"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Traces, 1)
	})

	t.Run("rejects a bad limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(h, "/api/traces/recent?limit=zero").Code)
		assert.Equal(t, http.StatusBadRequest, get(h, "/api/traces/recent?limit=-1").Code)
	})

	t.Run("empty store yields an empty list", func(t *testing.T) {
		h := newHarness(t)
		rec := get(h, "/api/traces/recent")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"traces":[]}`, rec.Body.String())
	})
}

func TestGetTrace(t *testing.T) {
	h := newHarness(t)
	seedTrace(h)

	t.Run("reconstructs the session", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_1_a")
		require.Equal(t, http.StatusOK, rec.Code)

		var session correlate.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
		assert.Equal(t, "trace_1_a", session.TraceID)
		assert.Equal(t, "user_42", session.UserID)
		assert.Equal(t, 2, session.LogCount)
		assert.Equal(t, 1, session.ErrorCount)
		assert.Equal(t, []string{"browser", "convex"}, session.Systems)
		// Events come back in timestamp order regardless of storage order.
		assert.Equal(t, "page loaded", session.Events[0].Message)
	})

	t.Run("filters by system", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_1_a?systems=browser")
		require.Equal(t, http.StatusOK, rec.Code)

		var session correlate.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
		assert.Equal(t, 1, session.LogCount)
		assert.Equal(t, []string{"browser"}, session.Systems)
	})

	t.Run("rejects an unknown system", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_1_a?systems=mainframe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown trace is a 404", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_9_z")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp utils.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "trace_9_z")
		assert.NotEmpty(t, resp.Hint)
	})

	t.Run("unconfigured store is a 503", func(t *testing.T) {
		h := newHarness(t)
		h.deps.Correlate = correlate.NewService(nil)
		assert.Equal(t, http.StatusServiceUnavailable, get(h, "/api/traces/trace_1_a").Code)
	})
}

func TestExportTrace(t *testing.T) {
	h := newHarness(t)
	seedTrace(h)

	t.Run("json by default", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_1_a/export")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="debug-session-1_a.json"`, rec.Header().Get("Content-Disposition"))

		var session correlate.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
		assert.Equal(t, 2, session.LogCount)
	})

	t.Run("markdown", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_1_a/export?format=markdown")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "debug-session-1_a.md")
		assert.Contains(t, rec.Body.String(), "## Timeline")
	})

	t.Run("claude transcript", func(t *testing.T) {
		rec := get(h, "/api/traces/trace_1_a/export?format=claude")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "debug-session-1_a.claude.md")
		assert.Contains(t, rec.Body.String(), "root causes")
	})

	t.Run("rejects an unknown format", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(h, "/api/traces/trace_1_a/export?format=pdf").Code)
	})

	t.Run("unknown trace is a 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(h, "/api/traces/trace_9_z/export").Code)
	})
}
