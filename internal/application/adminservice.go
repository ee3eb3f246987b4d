package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// AdminService covers the operator correction paths that bypass the
// allocation transaction: manual assignment creation, ledger edits, and
// ledger deletion. None of them ever reclaim a profile slot.
type AdminService struct {
	ledger   driven.AssignmentLedger
	activity driven.ActivityLog
	logger   *slog.Logger
}

// NewAdminService creates an AdminService with the required dependencies.
func NewAdminService(ledger driven.AssignmentLedger, activity driven.ActivityLog, logger *slog.Logger) *AdminService {
	return &AdminService{
		ledger:   ledger,
		activity: activity,
		logger:   logger,
	}
}

// CreateManualAssignment writes an admin assignment with an explicit
// expiry. The customer uniqueness rule still applies.
func (s *AdminService) CreateManualAssignment(ctx context.Context, a model.Assignment) (*model.Assignment, error) {
	created, err := s.ledger.CreateManual(ctx, a)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, model.ActivityEntry{
		ActorID: created.OperatorID,
		Action:  model.ActionAssign,
		Target:  created.CredentialID,
		Outcome: "success",
		Detail:  fmt.Sprintf("manual assignment %s for %s", created.ID, created.CustomerIdentifier),
	})
	return created, nil
}

// UpdateAssignment applies an administrative correction to a ledger row.
func (s *AdminService) UpdateAssignment(ctx context.Context, id string, operatorID string, upd model.AssignmentUpdate) error {
	if err := s.ledger.Update(ctx, id, upd); err != nil {
		return err
	}

	s.audit(ctx, model.ActivityEntry{
		ActorID: operatorID,
		Action:  model.ActionEdit,
		Target:  id,
		Outcome: "success",
	})
	return nil
}

// DeleteAssignment removes a ledger row. The customer identifier becomes
// assignable again; the originally claimed profile stays used.
func (s *AdminService) DeleteAssignment(ctx context.Context, id string, operatorID string) error {
	if err := s.ledger.Delete(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, model.ActivityEntry{
		ActorID: operatorID,
		Action:  model.ActionDelete,
		Target:  id,
		Outcome: "success",
	})
	return nil
}

func (s *AdminService) audit(ctx context.Context, entry model.ActivityEntry) {
	if entry.ActorID == "" {
		entry.ActorID = "system"
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn("activity log write failed",
			"action", entry.Action,
			"target", entry.Target,
			"error", err,
		)
	}
}
