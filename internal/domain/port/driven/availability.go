package driven

import (
	"context"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// AvailabilityReader answers "how many free profiles of pool X exist"
// from committed state. Expiry is filtered at read time, so a returned
// count is never larger than the true number of unclaimed, non-expired
// slots.
type AvailabilityReader interface {
	// CountFree returns the number of free slots for one pool at now.
	CountFree(ctx context.Context, platform model.Platform, accountType model.AccountType, now time.Time) (int, error)

	// Summary returns one row per (platform, account type) pair that has
	// at least one non-expired credential.
	Summary(ctx context.Context, now time.Time) ([]model.PoolAvailability, error)
}
