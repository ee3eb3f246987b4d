package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// allocRetries is the number of retries after the first attempt when the
// database reports transient contention.
const allocRetries = 2

// Compile-time interface satisfaction check.
var _ driven.Allocator = (*Allocator)(nil)

// Allocator implements the allocation transaction on the single writer
// connection. One call is one SQLite transaction: the duplicate-customer
// check, candidate scan, slot claim, status re-derivation, ID issuance,
// and ledger insert either all commit or all roll back. The writer's
// one-connection pool serializes concurrent allocations, so two requests
// can never claim the same profile or both pass the uniqueness check.
type Allocator struct {
	db     *DB
	issuer *IDIssuer
	now    func() time.Time
}

// NewAllocator creates an Allocator backed by the given DB.
func NewAllocator(db *DB, issuer *IDIssuer) *Allocator {
	return &Allocator{db: db, issuer: issuer, now: time.Now}
}

// Allocate runs the allocation transaction, retrying transient
// SQLITE_BUSY/LOCKED contention with jittered backoff before surfacing
// model.ErrUnavailable. Business rejections are returned on the first
// attempt.
func (a *Allocator) Allocate(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error) {
	if req.OperatorID == "" {
		req.OperatorID = "system"
	}

	var result *model.Allocation
	op := func() error {
		alloc, err := a.tryAllocate(ctx, req)
		if err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = alloc
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, allocRetries), ctx))
	if err != nil {
		if isBusy(err) {
			return nil, fmt.Errorf("allocation contention not resolved after %d attempts: %w", allocRetries+1, model.ErrUnavailable)
		}
		return nil, err
	}
	return result, nil
}

// tryAllocate is one attempt: a single transaction on the writer.
func (a *Allocator) tryAllocate(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error) {
	now := a.now().UTC()

	tx, err := a.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin allocation tx: %w", err)
	}
	defer tx.Rollback()

	// Step 1: customer uniqueness, inside the same transaction as the
	// ledger write below.
	live, err := customerLiveTx(ctx, tx, req.CustomerIdentifier, now)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, &model.DuplicateCustomerError{CustomerIdentifier: req.CustomerIdentifier}
	}

	// Step 2: candidate scan. Oldest available, non-expired credential of
	// the pool that still has a free slot, lowest slot first.
	const candidateQuery = `
		SELECT c.id, c.secret, c.expires_at, p.slot, p.name, p.pin
		FROM credentials c
		JOIN profiles p ON p.credential_id = c.id AND p.used = 0
		WHERE c.platform = ? AND c.account_type = ? AND c.status = ? AND c.expires_at > ?
		ORDER BY c.created_at, c.id, p.slot
		LIMIT 1`

	var (
		credentialID, secret, expiresAtRaw string
		slot                               int
		profileName, pin                   string
	)
	err = tx.QueryRowContext(ctx, candidateQuery,
		string(req.Platform), string(req.AccountType), string(model.StatusAvailable), formatTime(now),
	).Scan(&credentialID, &secret, &expiresAtRaw, &slot, &profileName, &pin)

	if errors.Is(err, sql.ErrNoRows) {
		// Step 3: no candidate. Correct any credential whose cached
		// status says available but whose pool is exhausted, so the
		// availability read path stays honest without a full rescan.
		_, corrErr := tx.ExecContext(ctx, `
			UPDATE credentials SET status = ?
			WHERE platform = ? AND account_type = ? AND status = ?
			  AND NOT EXISTS (SELECT 1 FROM profiles p WHERE p.credential_id = credentials.id AND p.used = 0)`,
			string(model.StatusUnavailable),
			string(req.Platform), string(req.AccountType), string(model.StatusAvailable),
		)
		if corrErr != nil {
			return nil, fmt.Errorf("correct stale statuses: %w", corrErr)
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, fmt.Errorf("commit status correction: %w", commitErr)
		}
		return nil, &model.PoolExhaustedError{Platform: req.Platform, AccountType: req.AccountType}
	}
	if err != nil {
		return nil, fmt.Errorf("candidate scan: %w", err)
	}

	expiresAt, err := parseTime(expiresAtRaw)
	if err != nil {
		return nil, fmt.Errorf("parse candidate expires_at: %w", err)
	}

	// Step 4: claim the slot. The used = 0 guard makes a double claim
	// impossible even if the scan above ever went stale.
	claim, err := tx.ExecContext(ctx,
		`UPDATE profiles SET used = 1 WHERE credential_id = ? AND slot = ? AND used = 0`,
		credentialID, slot,
	)
	if err != nil {
		return nil, fmt.Errorf("claim %s slot %d: %w", credentialID, slot, err)
	}
	claimed, err := claim.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim %s slot %d: %w", credentialID, slot, err)
	}
	if claimed != 1 {
		return nil, fmt.Errorf("claim %s slot %d: %w", credentialID, slot, model.ErrProfileAlreadyUsed)
	}

	// Step 5: re-derive the credential's status from the updated pool.
	_, err = tx.ExecContext(ctx, `
		UPDATE credentials SET status = CASE
			WHEN EXISTS (SELECT 1 FROM profiles p WHERE p.credential_id = credentials.id AND p.used = 0)
			THEN ? ELSE ? END
		WHERE id = ?`,
		string(model.StatusAvailable), string(model.StatusUnavailable), credentialID,
	)
	if err != nil {
		return nil, fmt.Errorf("re-derive status of %s: %w", credentialID, err)
	}

	// Step 6: issue the assignment ID and write the ledger row.
	assignmentID, err := a.issuer.Issue(ctx, tx, model.EntityAssignment)
	if err != nil {
		return nil, err
	}

	assignment := model.Assignment{
		ID:                 assignmentID,
		CustomerIdentifier: req.CustomerIdentifier,
		CredentialID:       credentialID,
		ProfileName:        profileName,
		Platform:           req.Platform,
		AccountType:        req.AccountType,
		OperatorID:         req.OperatorID,
		CreatedAt:          now,
		ExpiresAt:          expiresAt,
	}
	if err := insertAssignment(ctx, tx, assignment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit allocation: %w", err)
	}

	return &model.Allocation{
		Assignment:  assignment,
		Secret:      secret,
		ProfileName: profileName,
		Pin:         pin,
	}, nil
}

// isBusy reports whether err is transient SQLite contention worth a retry.
func isBusy(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
