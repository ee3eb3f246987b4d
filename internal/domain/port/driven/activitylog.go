package driven

import (
	"context"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// ActivityLog is the audit-trail sink. Callers treat it as best-effort:
// a Record failure is logged and swallowed, never propagated to the
// operation being audited.
type ActivityLog interface {
	Record(ctx context.Context, entry model.ActivityEntry) error
}
