package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ActivityLog = (*ActivityLogRepo)(nil)

// ActivityLogRepo appends audit entries to the activity_log table. It is
// a best-effort sink: callers log and swallow its errors.
type ActivityLogRepo struct {
	db *DB
}

// NewActivityLogRepo creates an ActivityLogRepo backed by the given DB.
func NewActivityLogRepo(db *DB) *ActivityLogRepo {
	return &ActivityLogRepo{db: db}
}

// Record appends one audit entry. A zero entry ID gets a fresh UUID and a
// zero timestamp gets the current time.
func (r *ActivityLogRepo) Record(ctx context.Context, entry model.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.ActorID == "" {
		entry.ActorID = "system"
	}

	_, err := r.db.Writer.ExecContext(ctx,
		`INSERT INTO activity_log (id, actor_id, action, target, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ActorID, string(entry.Action), entry.Target, entry.Outcome, entry.Detail,
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record activity %s/%s: %w", entry.Action, entry.Target, err)
	}
	return nil
}

// ListRecent returns the newest entries up to limit. Used by tests and
// operational tooling, not by the allocation path.
func (r *ActivityLogRepo) ListRecent(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	const query = `SELECT id, actor_id, action, target, outcome, detail, created_at
		FROM activity_log ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		var action, createdAt string
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.Target, &e.Outcome, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		e.Action = model.ActivityAction(action)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse activity created_at: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entries: %w", err)
	}
	return out, nil
}
