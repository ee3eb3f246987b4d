package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pakin-dev/poold/internal/domain/model"
)

func TestCredentialRepo_CreateBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, NewIDIssuer())
	ctx := context.Background()

	expiry := futureExpiry()
	batch := []model.Credential{
		{
			Platform:    model.PlatformNetflix,
			AccountType: model.AccountTypePrivate,
			Secret:      "alice@example.com:pw1",
			Profiles:    model.NewProfilePool(model.AccountTypePrivate.SlotCount()),
			ExpiresAt:   expiry,
		},
		{
			Platform:    model.PlatformSpotify,
			AccountType: model.AccountTypeVIP,
			Secret:      "bob@example.com:pw2",
			Profiles:    model.NewProfilePool(model.AccountTypeVIP.SlotCount()),
			ExpiresAt:   expiry,
		},
	}

	created, err := repo.CreateBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "ACC-0001", created[0].ID)
	assert.Equal(t, "ACC-0002", created[1].ID)
	assert.Equal(t, model.StatusAvailable, created[0].Status)

	got, err := repo.GetByID(ctx, "ACC-0001")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformNetflix, got.Platform)
	assert.Equal(t, model.AccountTypePrivate, got.AccountType)
	assert.Equal(t, "alice@example.com:pw1", got.Secret)
	assert.Len(t, got.Profiles, 8)
	assert.Len(t, got.FreeSlots(), 8)
	assert.WithinDuration(t, expiry, got.ExpiresAt, time.Second)
}

func TestCredentialRepo_CreateBatch_SlotCountOverride(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, NewIDIssuer())
	ctx := context.Background()

	// A bulk import may override the pool size per batch; once stored the
	// pool is immutable.
	created, err := repo.CreateBatch(ctx, []model.Credential{{
		Platform:    model.PlatformHBO,
		AccountType: model.AccountTypeSharing,
		Secret:      "carol@example.com:pw",
		Profiles:    model.NewProfilePool(12),
		ExpiresAt:   futureExpiry(),
	}})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.Profiles, 12)
}

func TestCredentialRepo_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, NewIDIssuer())

	_, err := repo.GetByID(context.Background(), "ACC-9999")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCredentialRepo_ListByPool(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, NewIDIssuer())
	ctx := context.Background()

	first := seedCredential(t, db, model.PlatformNetflix, model.AccountTypeVIP, futureExpiry())
	second := seedCredential(t, db, model.PlatformNetflix, model.AccountTypeVIP, futureExpiry())
	seedCredential(t, db, model.PlatformNetflix, model.AccountTypePrivate, futureExpiry())
	seedCredential(t, db, model.PlatformDisney, model.AccountTypeVIP, futureExpiry())

	creds, err := repo.ListByPool(ctx, model.PlatformNetflix, model.AccountTypeVIP)
	require.NoError(t, err)
	require.Len(t, creds, 2)

	// Stable creation-time order, profiles loaded.
	assert.Equal(t, first.ID, creds[0].ID)
	assert.Equal(t, second.ID, creds[1].ID)
	assert.Len(t, creds[0].Profiles, 6)
}
