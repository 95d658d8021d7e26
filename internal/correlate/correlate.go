// Package correlate reconstructs debug sessions: all log events sharing a
// trace id, across systems, with derived statistics. Sessions are computed
// fresh per query, never persisted.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tracehub/internal/models"
)

var (
	// ErrNotConfigured means no event source is wired; distinct from a
	// trace that simply has no events.
	ErrNotConfigured = errors.New("no log event source configured")

	// ErrTraceNotFound means the source answered but holds zero events
	// for the trace id.
	ErrTraceNotFound = errors.New("no log events found for trace")
)

// EventSource is where correlated events come from. Implemented by the
// storage repository.
type EventSource interface {
	ListByTrace(ctx context.Context, traceID string, systems []models.System) ([]models.LogEvent, error)
}

// Session is a correlated view of one trace.
type Session struct {
	TraceID      string            `json:"trace_id"`
	UserID       string            `json:"user_id"`
	CreatedAt    time.Time         `json:"created_at"`
	DurationMs   int64             `json:"duration_ms"`
	Systems      []string          `json:"systems"`
	LogCount     int               `json:"log_count"`
	ErrorCount   int               `json:"error_count"`
	LevelCounts  map[string]int    `json:"level_counts"`
	SystemCounts map[string]int    `json:"system_counts"`
	Events       []models.LogEvent `json:"events"`
}

// Service builds sessions from an event source.
type Service struct {
	source EventSource
}

// NewService creates a correlation service. A nil source is allowed and
// reported as ErrNotConfigured on use.
func NewService(source EventSource) *Service {
	return &Service{source: source}
}

// FetchTrace returns the correlated session for a trace id, optionally
// restricted to the given systems (empty = all).
func (s *Service) FetchTrace(ctx context.Context, traceID string, systems []models.System) (*Session, error) {
	if s == nil || s.source == nil {
		return nil, ErrNotConfigured
	}

	events, err := s.source.ListByTrace(ctx, traceID, systems)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for trace %s: %w", traceID, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("trace %s: %w", traceID, ErrTraceNotFound)
	}

	return BuildSession(traceID, events), nil
}

// BuildSession assembles a Session from raw events. Events are re-sorted by
// timestamp (ties broken by system name): emitters on different machines
// deliver out of order and their clocks are best-effort, so stored arrival
// order is not trusted.
func BuildSession(traceID string, events []models.LogEvent) *Session {
	sorted := make([]models.LogEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].System < sorted[j].System
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	session := &Session{
		TraceID:      traceID,
		UserID:       models.AnonymousUser,
		LogCount:     len(sorted),
		LevelCounts:  map[string]int{},
		SystemCounts: map[string]int{},
		Events:       sorted,
	}

	for _, event := range sorted {
		session.LevelCounts[string(event.Level)]++
		session.SystemCounts[string(event.System)]++
		if event.Level == models.LevelError {
			session.ErrorCount++
		}
		if session.UserID == models.AnonymousUser && event.UserID != "" {
			session.UserID = event.UserID
		}
	}

	session.CreatedAt = sorted[0].Timestamp
	last := sorted[len(sorted)-1].Timestamp
	session.DurationMs = last.Sub(session.CreatedAt).Milliseconds()

	session.Systems = make([]string, 0, len(session.SystemCounts))
	for system := range session.SystemCounts {
		session.Systems = append(session.Systems, system)
	}
	sort.Strings(session.Systems)

	return session
}
