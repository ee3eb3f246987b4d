// Package driven defines the port interfaces the application core depends
// on. Adapters under internal/adapter/driven implement them.
package driven

import (
	"context"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// CredentialStore persists credentials and their profile pools.
type CredentialStore interface {
	// CreateBatch inserts the given credentials and their profile pools in
	// one transaction, issuing an ID for each from the credential counter.
	// The returned slice carries the issued IDs. Any failure rolls back
	// the whole batch.
	CreateBatch(ctx context.Context, creds []model.Credential) ([]model.Credential, error)

	// GetByID loads a credential with its full profile pool.
	// Returns model.ErrNotFound if no such credential exists.
	GetByID(ctx context.Context, id string) (*model.Credential, error)

	// ListByPool returns the credentials of one (platform, account type)
	// pair ordered by creation time, profiles included.
	ListByPool(ctx context.Context, platform model.Platform, accountType model.AccountType) ([]model.Credential, error)
}
