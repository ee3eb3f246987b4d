// Package application wires the domain ports into operator-facing use
// cases. Services depend only on port interfaces.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// defaultAllocTimeout bounds one allocation attempt when no timeout is
// configured, so an abandoned request cannot hold the writer forever.
const defaultAllocTimeout = 5 * time.Second

// AllocationService runs operator allocation requests and audits their
// outcomes. The audit trail is best-effort: a failed Record is logged and
// never fails the allocation itself.
type AllocationService struct {
	allocator driven.Allocator
	activity  driven.ActivityLog
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAllocationService creates an AllocationService. timeout bounds each
// allocation, retries included; zero selects the default.
func NewAllocationService(allocator driven.Allocator, activity driven.ActivityLog, timeout time.Duration, logger *slog.Logger) *AllocationService {
	if timeout <= 0 {
		timeout = defaultAllocTimeout
	}
	return &AllocationService{
		allocator: allocator,
		activity:  activity,
		timeout:   timeout,
		logger:    logger,
	}
}

// RequestAccount allocates one profile for the customer and returns the
// revealed credential material. Business rejections pass through verbatim
// so the caller can render a specific reason.
func (s *AllocationService) RequestAccount(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error) {
	if req.OperatorID == "" {
		req.OperatorID = "system"
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	alloc, err := s.allocator.Allocate(ctx, req)
	if err != nil {
		s.audit(ctx, model.ActivityEntry{
			ActorID: req.OperatorID,
			Action:  model.ActionAssign,
			Target:  fmt.Sprintf("%s/%s", req.Platform, req.AccountType),
			Outcome: outcomeFor(err),
			Detail:  fmt.Sprintf("customer %s: %v", req.CustomerIdentifier, err),
		})
		return nil, err
	}

	s.audit(ctx, model.ActivityEntry{
		ActorID: req.OperatorID,
		Action:  model.ActionAssign,
		Target:  alloc.Assignment.CredentialID,
		Outcome: "success",
		Detail:  fmt.Sprintf("assignment %s: %s -> %s", alloc.Assignment.ID, req.CustomerIdentifier, alloc.ProfileName),
	})

	s.logger.Info("allocation committed",
		"assignment_id", alloc.Assignment.ID,
		"credential_id", alloc.Assignment.CredentialID,
		"profile", alloc.ProfileName,
		"platform", req.Platform,
		"account_type", req.AccountType,
		"operator_id", req.OperatorID,
	)
	return alloc, nil
}

// audit records an activity entry, swallowing failures.
func (s *AllocationService) audit(ctx context.Context, entry model.ActivityEntry) {
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn("activity log write failed",
			"action", entry.Action,
			"target", entry.Target,
			"error", err,
		)
	}
}

// outcomeFor condenses an allocation error into an audit outcome label.
func outcomeFor(err error) string {
	var exhausted *model.PoolExhaustedError
	var dup *model.DuplicateCustomerError
	switch {
	case errors.As(err, &exhausted):
		return "rejected: pool exhausted"
	case errors.As(err, &dup):
		return "rejected: duplicate customer"
	case errors.Is(err, model.ErrUnavailable):
		return "failed: storage unavailable"
	default:
		return "failed"
	}
}
