package models

import (
	"time"

	"github.com/google/uuid"
)

// AnonymousUser is the user id applied when no user has been associated.
const AnonymousUser = "anonymous"

// System identifies the subsystem that emitted a log event.
type System string

const (
	SystemBrowser System = "browser"
	SystemConvex  System = "convex"
	SystemWorker  System = "worker"
	SystemManual  System = "manual"
)

// KnownSystems lists every accepted originating system.
var KnownSystems = []System{SystemBrowser, SystemConvex, SystemWorker, SystemManual}

// Valid reports whether s is one of the known systems.
func (s System) Valid() bool {
	for _, known := range KnownSystems {
		if s == known {
			return true
		}
	}
	return false
}

// Level is the severity of a log event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LogEvent is a single captured log line, tagged with the trace and user
// identity active at emission time. Immutable once stored.
type LogEvent struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Timestamp  time.Time `json:"timestamp" db:"recorded_at"`
	ReceivedAt time.Time `json:"received_at,omitempty" db:"received_at"`
	System     System    `json:"system" db:"system"`
	TraceID    string    `json:"trace_id" db:"trace_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Level      Level     `json:"level" db:"level"`
	Message    string    `json:"message" db:"message"`
	Context    JSONB     `json:"context,omitempty" db:"context"`
}

// TraceSummary is the lightweight view of a trace used by the recent-traces
// listing. Derived from stored events, never persisted on its own.
type TraceSummary struct {
	TraceID   string    `json:"trace_id" db:"trace_id"`
	LogCount  int       `json:"log_count" db:"log_count"`
	Systems   []string  `json:"systems"`
	Timestamp time.Time `json:"timestamp" db:"last_seen"`
}

// GlobalRate is the global counter of a rate window.
type GlobalRate struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// RateWindowState is a read-only snapshot of the sliding-window counters.
type RateWindowState struct {
	Global            GlobalRate       `json:"global"`
	PerSystem         map[string]int64 `json:"per_system"`
	PerTrace          map[string]int64 `json:"per_trace"`
	WindowRemainingMs int64            `json:"window_remaining_ms"`
}

// CostMetrics is the running cost estimate for the current billing month.
type CostMetrics struct {
	TotalWrites       int64   `json:"total_writes"`
	EstimatedCost     float64 `json:"estimated_cost"`
	BudgetUsedPercent float64 `json:"budget_used_percent"`
	BudgetCeiling     float64 `json:"budget_ceiling"`
}
