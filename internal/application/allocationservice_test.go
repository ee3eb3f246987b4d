package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// fakeAllocator returns a canned allocation or error.
type fakeAllocator struct {
	alloc *model.Allocation
	err   error
	got   model.AllocationRequest
}

func (f *fakeAllocator) Allocate(_ context.Context, req model.AllocationRequest) (*model.Allocation, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.alloc, nil
}

// fakeActivityLog records entries and optionally fails every write.
type fakeActivityLog struct {
	entries []model.ActivityEntry
	err     error
}

func (f *fakeActivityLog) Record(_ context.Context, entry model.ActivityEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleAllocation() *model.Allocation {
	return &model.Allocation{
		Assignment: model.Assignment{
			ID:                 "ASG-0001",
			CustomerIdentifier: "0812000001",
			CredentialID:       "ACC-0001",
			ProfileName:        "Profile-1",
			Platform:           model.PlatformNetflix,
			AccountType:        model.AccountTypePrivate,
			OperatorID:         "op-1",
			CreatedAt:          time.Now().UTC(),
			ExpiresAt:          time.Now().UTC().AddDate(0, 1, 0),
		},
		Secret:      "login:pw",
		ProfileName: "Profile-1",
		Pin:         "0420",
	}
}

func TestAllocationService_RequestAccount(t *testing.T) {
	allocator := &fakeAllocator{alloc: sampleAllocation()}
	activity := &fakeActivityLog{}
	svc := NewAllocationService(allocator, activity, 0, testLogger())

	alloc, err := svc.RequestAccount(context.Background(), model.AllocationRequest{
		Platform:           model.PlatformNetflix,
		AccountType:        model.AccountTypePrivate,
		CustomerIdentifier: "0812000001",
		OperatorID:         "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ASG-0001", alloc.Assignment.ID)

	require.Len(t, activity.entries, 1)
	entry := activity.entries[0]
	assert.Equal(t, model.ActionAssign, entry.Action)
	assert.Equal(t, "ACC-0001", entry.Target)
	assert.Equal(t, "success", entry.Outcome)
	assert.Equal(t, "op-1", entry.ActorID)
}

func TestAllocationService_DefaultsOperatorToSystem(t *testing.T) {
	allocator := &fakeAllocator{alloc: sampleAllocation()}
	svc := NewAllocationService(allocator, &fakeActivityLog{}, 0, testLogger())

	_, err := svc.RequestAccount(context.Background(), model.AllocationRequest{
		Platform:           model.PlatformNetflix,
		AccountType:        model.AccountTypePrivate,
		CustomerIdentifier: "0812000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "system", allocator.got.OperatorID)
}

func TestAllocationService_RejectionPassesThroughAndIsAudited(t *testing.T) {
	allocErr := &model.PoolExhaustedError{
		Platform:    model.PlatformNetflix,
		AccountType: model.AccountTypePrivate,
	}
	allocator := &fakeAllocator{err: allocErr}
	activity := &fakeActivityLog{}
	svc := NewAllocationService(allocator, activity, 0, testLogger())

	_, err := svc.RequestAccount(context.Background(), model.AllocationRequest{
		Platform:           model.PlatformNetflix,
		AccountType:        model.AccountTypePrivate,
		CustomerIdentifier: "0812000001",
	})

	var exhausted *model.PoolExhaustedError
	require.ErrorAs(t, err, &exhausted)

	require.Len(t, activity.entries, 1)
	assert.Equal(t, "rejected: pool exhausted", activity.entries[0].Outcome)
}

func TestAllocationService_AuditFailureDoesNotFailAllocation(t *testing.T) {
	allocator := &fakeAllocator{alloc: sampleAllocation()}
	activity := &fakeActivityLog{err: errors.New("disk full")}
	svc := NewAllocationService(allocator, activity, 0, testLogger())

	alloc, err := svc.RequestAccount(context.Background(), model.AllocationRequest{
		Platform:           model.PlatformNetflix,
		AccountType:        model.AccountTypePrivate,
		CustomerIdentifier: "0812000001",
	})
	require.NoError(t, err)
	assert.NotNil(t, alloc)
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, "rejected: pool exhausted",
		outcomeFor(&model.PoolExhaustedError{Platform: model.PlatformHBO, AccountType: model.AccountTypeVIP}))
	assert.Equal(t, "rejected: duplicate customer",
		outcomeFor(&model.DuplicateCustomerError{CustomerIdentifier: "x"}))
	assert.Equal(t, "failed: storage unavailable", outcomeFor(model.ErrUnavailable))
	assert.Equal(t, "failed", outcomeFor(errors.New("boom")))
}
