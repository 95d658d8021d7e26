package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tracehub/internal/models"
	"tracehub/internal/utils"
)

const maxIngestBody = 1 << 20 // 1 MiB

// handleIngest accepts one event or a batch, validates, meters, and queues
// for async persistence. The response is 202: acceptance means queued, not
// stored.
func (deps *Dependencies) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	events, err := decodeIngestBody(body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(events) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Request contains no events")
		return
	}

	for i := range events {
		if err := validateEvent(&events[i]); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	// One snapshot per request; the batch is all-or-nothing against the
	// global limit.
	snapshot, err := deps.Meter.Snapshot(r.Context())
	if err != nil {
		deps.Logger.Error("rate snapshot failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Rate limiter unavailable")
		return
	}
	if snapshot.Global.Limit > 0 && snapshot.Global.Current+int64(len(events)) > snapshot.Global.Limit {
		utils.RespondWithErrorHint(w, http.StatusTooManyRequests,
			"Rate limit exceeded",
			fmt.Sprintf("window resets in %dms", snapshot.WindowRemainingMs))
		return
	}

	now := time.Now().UTC()
	for i := range events {
		if events[i].ID == uuid.Nil {
			events[i].ID = uuid.New()
		}
		if events[i].Timestamp.IsZero() {
			events[i].Timestamp = now
		}
		events[i].ReceivedAt = now
		if events[i].UserID == "" {
			events[i].UserID = models.AnonymousUser
		}

		if err := deps.Queue.Enqueue(r.Context(), &events[i]); err != nil {
			deps.Logger.Error("enqueue failed", "error", err, "trace_id", events[i].TraceID)
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Ingest queue unavailable")
			return
		}
		if err := deps.Meter.Record(r.Context(), events[i].System, events[i].TraceID); err != nil {
			// The event is already queued; losing a counter tick is
			// preferable to losing the event.
			deps.Logger.Warn("rate record failed", "error", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusAccepted, map[string]any{"accepted": len(events)})
}

func decodeIngestBody(body []byte) ([]models.LogEvent, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}

	if trimmed[0] == '[' {
		var events []models.LogEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("invalid event batch: %v", err)
		}
		return events, nil
	}

	var event models.LogEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, fmt.Errorf("invalid event: %v", err)
	}
	return []models.LogEvent{event}, nil
}

func validateEvent(event *models.LogEvent) error {
	if !event.System.Valid() {
		return fmt.Errorf("unknown system %q", event.System)
	}
	if event.TraceID == "" {
		return fmt.Errorf("trace_id is required")
	}
	if event.Message == "" {
		return fmt.Errorf("message is required")
	}
	switch event.Level {
	case models.LevelDebug, models.LevelInfo, models.LevelWarn, models.LevelError:
	case "":
		event.Level = models.LevelInfo
	default:
		return fmt.Errorf("unknown level %q", event.Level)
	}
	return nil
}
