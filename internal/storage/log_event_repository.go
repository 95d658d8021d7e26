package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tracehub/internal/models"
)

// LogEventRepository handles log event persistence and trace-scoped reads.
type LogEventRepository struct {
	db *DB
}

// NewLogEventRepository creates a new repository.
func NewLogEventRepository(db *DB) *LogEventRepository {
	return &LogEventRepository{db: db}
}

// Insert stores a single event.
func (r *LogEventRepository) Insert(ctx context.Context, event *models.LogEvent) error {
	return r.InsertBatch(ctx, []*models.LogEvent{event})
}

// InsertBatch stores events in one transaction. Events without an id or
// receive time get them assigned here; everything else is stored as given.
func (r *LogEventRepository) InsertBatch(ctx context.Context, events []*models.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO log_events (id, recorded_at, received_at, system, trace_id, user_id, level, message, context)
		VALUES (:id, :recorded_at, :received_at, :system, :trace_id, :user_id, :level, :message, :context)`

	for _, event := range events {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.ReceivedAt.IsZero() {
			event.ReceivedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
			return fmt.Errorf("failed to insert log event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log events: %w", err)
	}
	return nil
}

// ListByTrace returns all events for a trace, optionally restricted to the
// given systems (empty filter = all systems). Ordered by event timestamp
// ascending with ties broken by system name, so output is stable across
// arrival reordering.
func (r *LogEventRepository) ListByTrace(ctx context.Context, traceID string, systems []models.System) ([]models.LogEvent, error) {
	query := `
		SELECT id, recorded_at, received_at, system, trace_id, user_id, level, message, context
		FROM log_events
		WHERE trace_id = $1`
	args := []any{traceID}

	if len(systems) > 0 {
		names := make([]string, len(systems))
		for i, s := range systems {
			names[i] = string(s)
		}
		query += ` AND system = ANY($2)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY recorded_at ASC, system ASC`

	var events []models.LogEvent
	if err := r.db.conn.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events for trace %s: %w", traceID, err)
	}
	return events, nil
}

type traceSummaryRow struct {
	TraceID  string         `db:"trace_id"`
	LogCount int            `db:"log_count"`
	Systems  pq.StringArray `db:"systems"`
	LastSeen time.Time      `db:"last_seen"`
}

// RecentTraces returns summaries of the most recently active traces.
func (r *LogEventRepository) RecentTraces(ctx context.Context, limit int) ([]models.TraceSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT trace_id,
		       COUNT(*)                      AS log_count,
		       array_agg(DISTINCT system)    AS systems,
		       MAX(recorded_at)              AS last_seen
		FROM log_events
		GROUP BY trace_id
		ORDER BY MAX(recorded_at) DESC
		LIMIT $1`

	var rows []traceSummaryRow
	if err := r.db.conn.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent traces: %w", err)
	}

	summaries := make([]models.TraceSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.TraceSummary{
			TraceID:   row.TraceID,
			LogCount:  row.LogCount,
			Systems:   []string(row.Systems),
			Timestamp: row.LastSeen,
		})
	}
	return summaries, nil
}

// CountEvents returns the total number of stored events.
func (r *LogEventRepository) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM log_events`); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// EstimatedStorageMB returns the on-disk size of the event table in MB.
func (r *LogEventRepository) EstimatedStorageMB(ctx context.Context) (float64, error) {
	var bytes int64
	const query = `SELECT COALESCE(pg_total_relation_size('log_events'), 0)`
	if err := r.db.conn.GetContext(ctx, &bytes, query); err != nil {
		return 0, fmt.Errorf("failed to estimate storage: %w", err)
	}
	return float64(bytes) / (1024 * 1024), nil
}

// DeleteOlderThan removes events recorded before the cutoff and returns how
// many were deleted. Used by the retention job.
func (r *LogEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM log_events WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return deleted, nil
}
