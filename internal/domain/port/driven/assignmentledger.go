package driven

import (
	"context"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// AssignmentLedger is the append-mostly record of which customer received
// which profile. Read projections reflect only committed assignments.
type AssignmentLedger interface {
	// IsCustomerLive reports whether the customer identifier holds an
	// assignment whose expiry is after now.
	IsCustomerLive(ctx context.Context, customerIdentifier string, now time.Time) (bool, error)

	// GetByID returns the assignment or model.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Assignment, error)

	ListByCustomer(ctx context.Context, customerIdentifier string) ([]model.Assignment, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Assignment, error)
	ListByOperator(ctx context.Context, operatorID string) ([]model.Assignment, error)

	// CreateManual writes an admin-created assignment with an explicit
	// expiry, issuing its ID. It bypasses allocation and claims no
	// profile.
	CreateManual(ctx context.Context, a model.Assignment) (*model.Assignment, error)

	// Update applies an administrative correction. It never touches the
	// claimed profile's used flag.
	Update(ctx context.Context, id string, upd model.AssignmentUpdate) error

	// Delete removes the ledger row, freeing the customer identifier for
	// reassignment. The originally claimed profile stays used: its pin
	// may already be known to the past customer.
	Delete(ctx context.Context, id string) error
}
