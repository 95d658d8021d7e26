package httpapi

import (
	"errors"
	"net/http"

	"tracehub/internal/health"
	"tracehub/internal/utils"
	"tracehub/internal/worker"
)

// systemHealthResponse is the aggregated dashboard health payload.
type systemHealthResponse struct {
	Status         health.Status `json:"status"`
	RedisConnected bool          `json:"redis_connected"`
	RedisAssumed   bool          `json:"redis_assumed,omitempty"`
	Issues         []string      `json:"issues"`
	Warnings       []string      `json:"warnings"`
	Signals        health.Input  `json:"signals"`
}

// handleSystemHealth combines the worker's health report with local rate,
// budget, storage, and queue signals into one verdict.
func (deps *Dependencies) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	utils.NoCache(w)

	workerHealth, err := deps.Worker.FetchHealth(r.Context())
	if err != nil {
		if errors.Is(err, worker.ErrNotConfigured) {
			// A missing worker URL is an operator error, reported
			// distinctly from connectivity failures.
			utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]any{
				"status":          "error",
				"redis_connected": false,
				"error":           worker.ErrNotConfigured.Error(),
			})
			return
		}
		utils.RespondWithErrorHint(w, http.StatusBadGateway,
			"Failed to connect to log worker",
			"check that the worker is running and WORKER_URL is reachable")
		return
	}

	input := health.Input{}

	snapshot, err := deps.Meter.Snapshot(r.Context())
	if err != nil {
		deps.Logger.Warn("rate snapshot failed during health check", "error", err)
	} else {
		input.RateCurrent = snapshot.Global.Current
		input.RateLimit = snapshot.Global.Limit
	}

	cost, err := deps.Meter.CostMetrics(r.Context())
	if err != nil {
		deps.Logger.Warn("cost metrics failed during health check", "error", err)
	} else {
		input.BudgetUsedPercent = cost.BudgetUsedPercent
	}

	storageMB, err := deps.Events.EstimatedStorageMB(r.Context())
	if err != nil {
		deps.Logger.Warn("storage estimate failed during health check", "error", err)
	} else {
		input.EstimatedStorageMB = storageMB
	}

	depth, err := deps.Queue.Length(r.Context())
	if err != nil {
		deps.Logger.Warn("queue length failed during health check", "error", err)
	} else {
		input.QueueDepth = int64(depth)
	}

	verdict := health.Evaluate(input, deps.Thresholds)
	if !workerHealth.RedisConnected {
		verdict.Issues = append(verdict.Issues, "Log worker Redis connection is down")
		verdict.Status = health.StatusCritical
	}

	utils.RespondWithJSON(w, http.StatusOK, systemHealthResponse{
		Status:         verdict.Status,
		RedisConnected: workerHealth.RedisConnected,
		RedisAssumed:   workerHealth.RedisAssumed,
		Issues:         verdict.Issues,
		Warnings:       verdict.Warnings,
		Signals:        input,
	})
}
