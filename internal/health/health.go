// Package health computes the aggregated health verdict the debug dashboard
// displays. Evaluate is a pure function of its inputs so repeated calls with
// identical state produce identical output, including ordering.
package health

// Status is the overall health classification.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Thresholds is the policy for turning raw signals into issues and
// warnings. All values are configuration, not hardcoded business logic.
type Thresholds struct {
	RateCriticalPct   float64 `yaml:"rateCriticalPct" json:"rate_critical_pct"`
	RateWarningPct    float64 `yaml:"rateWarningPct" json:"rate_warning_pct"`
	BudgetCriticalPct float64 `yaml:"budgetCriticalPct" json:"budget_critical_pct"`
	BudgetWarningPct  float64 `yaml:"budgetWarningPct" json:"budget_warning_pct"`
	StorageCriticalMB float64 `yaml:"storageCriticalMB" json:"storage_critical_mb"`
	StorageWarningMB  float64 `yaml:"storageWarningMB" json:"storage_warning_mb"`
	QueueWarningDepth int64   `yaml:"queueWarningDepth" json:"queue_warning_depth"`
}

// DefaultThresholds returns the stock policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RateCriticalPct:   95,
		RateWarningPct:    80,
		BudgetCriticalPct: 95,
		BudgetWarningPct:  80,
		StorageCriticalMB: 40,
		StorageWarningMB:  25,
		QueueWarningDepth: 5000,
	}
}

// Input carries the signals the verdict is derived from.
type Input struct {
	RateCurrent        int64   `json:"rate_current"`
	RateLimit          int64   `json:"rate_limit"`
	BudgetUsedPercent  float64 `json:"budget_used_percent"`
	EstimatedStorageMB float64 `json:"estimated_storage_mb"`
	QueueDepth         int64   `json:"queue_depth"`
}

// Verdict is the computed health state. Ephemeral: recomputed on every
// check, never persisted.
type Verdict struct {
	Status   Status   `json:"status"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// Severity messages. Signal order is fixed (rate, budget, storage, queue) so
// output is deterministic for a given input.
const (
	MsgRateCritical    = "Rate limiting at critical levels"
	MsgRateWarning     = "Rate limiting approaching limits"
	MsgBudgetCritical  = "Monthly budget nearly exhausted"
	MsgBudgetWarning   = "Monthly budget usage is high"
	MsgStorageCritical = "Storage usage at critical levels"
	MsgStorageWarning  = "Storage usage is high"
	MsgQueueWarning    = "Ingest queue depth is high"
)

// Evaluate derives a Verdict from the current signals under the given
// thresholds.
func Evaluate(in Input, th Thresholds) Verdict {
	issues := []string{}
	warnings := []string{}

	if in.RateLimit > 0 {
		usagePct := float64(in.RateCurrent) / float64(in.RateLimit) * 100
		switch {
		case usagePct >= th.RateCriticalPct:
			issues = append(issues, MsgRateCritical)
		case usagePct >= th.RateWarningPct:
			warnings = append(warnings, MsgRateWarning)
		}
	}

	switch {
	case in.BudgetUsedPercent >= th.BudgetCriticalPct:
		issues = append(issues, MsgBudgetCritical)
	case in.BudgetUsedPercent >= th.BudgetWarningPct:
		warnings = append(warnings, MsgBudgetWarning)
	}

	switch {
	case in.EstimatedStorageMB >= th.StorageCriticalMB:
		issues = append(issues, MsgStorageCritical)
	case in.EstimatedStorageMB >= th.StorageWarningMB:
		warnings = append(warnings, MsgStorageWarning)
	}

	// Queue depth only ever warns; a deep queue is recoverable.
	if in.QueueDepth >= th.QueueWarningDepth {
		warnings = append(warnings, MsgQueueWarning)
	}

	status := StatusHealthy
	if len(warnings) > 0 {
		status = StatusWarning
	}
	if len(issues) > 0 {
		status = StatusCritical
	}

	return Verdict{Status: status, Issues: issues, Warnings: warnings}
}
