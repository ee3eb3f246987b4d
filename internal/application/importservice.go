package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// ImportBatch describes one bulk delivery of purchased accounts. All
// credentials in a batch share a platform, account type, and expiry.
type ImportBatch struct {
	Platform    model.Platform
	AccountType model.AccountType
	ExpiresAt   time.Time
	// Secrets carries one opaque login per credential to create.
	Secrets []string
	// SlotCount overrides the account type's pool size for this batch
	// when positive. Once created, a pool is never resized.
	SlotCount  int
	OperatorID string
}

// ImportService creates credential rows with fresh profile pools,
// bypassing allocation.
type ImportService struct {
	credentials driven.CredentialStore
	activity    driven.ActivityLog
	logger      *slog.Logger
}

// NewImportService creates an ImportService with the required dependencies.
func NewImportService(credentials driven.CredentialStore, activity driven.ActivityLog, logger *slog.Logger) *ImportService {
	return &ImportService{
		credentials: credentials,
		activity:    activity,
		logger:      logger,
	}
}

// Import creates one credential per secret in the batch, in a single
// transaction, and returns them with issued IDs.
func (s *ImportService) Import(ctx context.Context, batch ImportBatch) ([]model.Credential, error) {
	if len(batch.Secrets) == 0 {
		return nil, fmt.Errorf("import batch has no secrets")
	}
	if !batch.ExpiresAt.After(time.Now().UTC()) {
		return nil, fmt.Errorf("import batch expiry %s is not in the future", batch.ExpiresAt.Format(time.RFC3339))
	}

	slotCount := batch.AccountType.SlotCount()
	if batch.SlotCount > 0 {
		slotCount = batch.SlotCount
	}

	creds := make([]model.Credential, 0, len(batch.Secrets))
	for _, secret := range batch.Secrets {
		creds = append(creds, model.Credential{
			Platform:    batch.Platform,
			AccountType: batch.AccountType,
			Secret:      secret,
			Profiles:    model.NewProfilePool(slotCount),
			ExpiresAt:   batch.ExpiresAt,
		})
	}

	created, err := s.credentials.CreateBatch(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("import %d credentials: %w", len(creds), err)
	}

	actor := batch.OperatorID
	if actor == "" {
		actor = "system"
	}
	if err := s.activity.Record(ctx, model.ActivityEntry{
		ActorID: actor,
		Action:  model.ActionImport,
		Target:  fmt.Sprintf("%s/%s", batch.Platform, batch.AccountType),
		Outcome: "success",
		Detail:  fmt.Sprintf("%d credentials, %d slots each", len(created), slotCount),
	}); err != nil {
		s.logger.Warn("activity log write failed", "action", model.ActionImport, "error", err)
	}

	s.logger.Info("credentials imported",
		"platform", batch.Platform,
		"account_type", batch.AccountType,
		"count", len(created),
		"slots_each", slotCount,
	)
	return created, nil
}
