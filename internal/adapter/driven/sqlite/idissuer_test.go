package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pakin-dev/poold/internal/domain/model"
)

func TestIDIssuer_Issue(t *testing.T) {
	db := setupTestDB(t)
	issuer := NewIDIssuer()
	ctx := context.Background()

	id, err := issuer.Issue(ctx, db.Writer, model.EntityAssignment)
	require.NoError(t, err)
	assert.Equal(t, "ASG-0001", id)

	id, err = issuer.Issue(ctx, db.Writer, model.EntityAssignment)
	require.NoError(t, err)
	assert.Equal(t, "ASG-0002", id)

	// Counters are independent per entity type.
	id, err = issuer.Issue(ctx, db.Writer, model.EntityCredential)
	require.NoError(t, err)
	assert.Equal(t, "ACC-0001", id)
}

func TestIDIssuer_UnknownEntityType(t *testing.T) {
	db := setupTestDB(t)
	issuer := NewIDIssuer()

	_, err := issuer.Issue(context.Background(), db.Writer, model.EntityType("invoice"))
	require.Error(t, err)

	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestIDIssuer_RollsBackWithTransaction(t *testing.T) {
	db := setupTestDB(t)
	issuer := NewIDIssuer()
	ctx := context.Background()

	tx, err := db.Writer.BeginTx(ctx, nil)
	require.NoError(t, err)

	id, err := issuer.Issue(ctx, tx, model.EntityAssignment)
	require.NoError(t, err)
	assert.Equal(t, "ASG-0001", id)
	require.NoError(t, tx.Rollback())

	// The aborted increment left no trace: the next issuance reuses the
	// value instead of burning it.
	id, err = issuer.Issue(ctx, db.Writer, model.EntityAssignment)
	require.NoError(t, err)
	assert.Equal(t, "ASG-0001", id)
}

func TestIDIssuer_ConcurrentIssuancesAreDistinct(t *testing.T) {
	db := setupTestDB(t)
	issuer := NewIDIssuer()
	ctx := context.Background()

	const n = 200

	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = issuer.Issue(ctx, db.Writer, model.EntityAssignment)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "duplicate ID %s", ids[i])
		seen[ids[i]] = true
	}
	assert.Len(t, seen, n)
}
