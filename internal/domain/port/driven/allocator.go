package driven

import (
	"context"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// Allocator runs the allocation transaction: find a credential of the
// requested pool with a free profile, claim one slot, record the
// assignment, and re-derive the credential's status — all atomically.
//
// Failure modes: *model.DuplicateCustomerError when the customer already
// holds a live assignment, *model.PoolExhaustedError when no non-expired
// credential has a free slot, model.ErrUnavailable after transient
// storage contention exhausts its retry budget. No partial state is ever
// observable: a failed allocation leaves no claimed slot and no ledger
// row.
type Allocator interface {
	Allocate(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error)
}
