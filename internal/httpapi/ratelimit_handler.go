package httpapi

import (
	"net/http"

	"tracehub/internal/utils"
)

// handleRateLimit returns the current window's counters.
func (deps *Dependencies) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	utils.NoCache(w)

	snapshot, err := deps.Meter.Snapshot(r.Context())
	if err != nil {
		deps.Logger.Error("rate snapshot failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Rate limiter unavailable")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snapshot)
}

// handleRateLimitUpdate forces a window rollover and returns the fresh
// state. Safe to call repeatedly; an expired window resets exactly once.
func (deps *Dependencies) handleRateLimitUpdate(w http.ResponseWriter, r *http.Request) {
	state, err := deps.Meter.Update(r.Context())
	if err != nil {
		deps.Logger.Error("rate update failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Rate limiter unavailable")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// handleCostMetrics returns the running monthly cost estimate.
func (deps *Dependencies) handleCostMetrics(w http.ResponseWriter, r *http.Request) {
	utils.NoCache(w)

	metrics, err := deps.Meter.CostMetrics(r.Context())
	if err != nil {
		deps.Logger.Error("cost metrics failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Cost meter unavailable")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, metrics)
}
