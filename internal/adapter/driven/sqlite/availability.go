package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AvailabilityReader = (*AvailabilityRepo)(nil)

// AvailabilityRepo answers free-slot counts by aggregating committed pool
// state on demand. Expired credentials are filtered out at read time, so
// a count can be stale-low right after an expiry boundary but never
// overstates the truly allocatable slots.
type AvailabilityRepo struct {
	db *DB
}

// NewAvailabilityRepo creates an AvailabilityRepo backed by the given DB.
func NewAvailabilityRepo(db *DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

// CountFree returns the number of unclaimed slots across non-expired
// credentials of one (platform, account type) pair.
func (r *AvailabilityRepo) CountFree(ctx context.Context, platform model.Platform, accountType model.AccountType, now time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM profiles p
		JOIN credentials c ON c.id = p.credential_id
		WHERE p.used = 0 AND c.platform = ? AND c.account_type = ? AND c.expires_at > ?`

	var count int
	err := r.db.Reader.QueryRowContext(ctx, query,
		string(platform), string(accountType), formatTime(now),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count free slots %s/%s: %w", platform, accountType, err)
	}
	return count, nil
}

// Summary returns one row per (platform, account type) pair with at least
// one non-expired credential, in stable order.
func (r *AvailabilityRepo) Summary(ctx context.Context, now time.Time) ([]model.PoolAvailability, error) {
	const query = `
		SELECT c.platform, c.account_type,
		       COUNT(DISTINCT c.id),
		       COALESCE(SUM(CASE WHEN p.used = 0 THEN 1 ELSE 0 END), 0)
		FROM credentials c
		LEFT JOIN profiles p ON p.credential_id = c.id
		WHERE c.expires_at > ?
		GROUP BY c.platform, c.account_type
		ORDER BY c.platform, c.account_type`

	rows, err := r.db.Reader.QueryContext(ctx, query, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("availability summary: %w", err)
	}
	defer rows.Close()

	var out []model.PoolAvailability
	for rows.Next() {
		var pa model.PoolAvailability
		var platform, accountType string
		if err := rows.Scan(&platform, &accountType, &pa.Credentials, &pa.FreeSlots); err != nil {
			return nil, fmt.Errorf("scan availability row: %w", err)
		}
		pa.Platform = model.Platform(platform)
		pa.AccountType = model.AccountType(accountType)
		out = append(out, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability rows: %w", err)
	}
	return out, nil
}
