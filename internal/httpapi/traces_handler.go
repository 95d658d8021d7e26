package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tracehub/internal/correlate"
	"tracehub/internal/export"
	"tracehub/internal/models"
	"tracehub/internal/utils"
)

const defaultRecentLimit = 20

// handleRecentTraces lists recently seen traces from the local store.
func (deps *Dependencies) handleRecentTraces(w http.ResponseWriter, r *http.Request) {
	utils.NoCache(w)

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	traces, err := deps.Events.RecentTraces(r.Context(), limit)
	if err != nil {
		deps.Logger.Error("recent traces query failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list recent traces")
		return
	}
	if traces == nil {
		traces = []models.TraceSummary{}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"traces": traces})
}

// handleTrace reconstructs one trace session, optionally filtered to a
// subset of systems via ?systems=browser,convex.
func (deps *Dependencies) handleTrace(w http.ResponseWriter, r *http.Request) {
	traceID := r.PathValue("id")

	systems, err := parseSystems(r.URL.Query().Get("systems"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := deps.fetchSession(w, r, traceID, systems)
	if err != nil {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, session)
}

// handleTraceExport renders one trace session in the requested format and
// serves it as a download.
func (deps *Dependencies) handleTraceExport(w http.ResponseWriter, r *http.Request) {
	traceID := r.PathValue("id")

	format := export.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		var err error
		format, err = export.ParseFormat(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	systems, err := parseSystems(r.URL.Query().Get("systems"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := deps.fetchSession(w, r, traceID, systems)
	if err != nil {
		return
	}

	data, err := export.Export(session, format)
	if err != nil {
		deps.Logger.Error("export failed", "error", err, "trace_id", traceID)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if format == export.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(traceID, format)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// fetchSession resolves a trace or writes the appropriate error response.
// On error the response has already been written.
func (deps *Dependencies) fetchSession(w http.ResponseWriter, r *http.Request, traceID string, systems []models.System) (*correlate.Session, error) {
	session, err := deps.Correlate.FetchTrace(r.Context(), traceID, systems)
	if err != nil {
		switch {
		case errors.Is(err, correlate.ErrTraceNotFound):
			utils.RespondWithErrorHint(w, http.StatusNotFound,
				fmt.Sprintf("No events found for trace %q", traceID),
				"the trace may have expired or never reached the store")
		case errors.Is(err, correlate.ErrNotConfigured):
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Event store is not configured")
		default:
			deps.Logger.Error("trace lookup failed", "error", err, "trace_id", traceID)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load trace")
		}
		return nil, err
	}
	return session, nil
}

func parseSystems(raw string) ([]models.System, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	systems := make([]models.System, 0, len(parts))
	for _, part := range parts {
		system := models.System(strings.TrimSpace(part))
		if !system.Valid() {
			return nil, fmt.Errorf("unknown system %q", system)
		}
		systems = append(systems, system)
	}
	return systems, nil
}
