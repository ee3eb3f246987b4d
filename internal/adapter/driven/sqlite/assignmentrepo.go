package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AssignmentLedger = (*AssignmentRepo)(nil)

// AssignmentRepo is the SQLite implementation of the AssignmentLedger port.
// Reads go to the reader pool and see only committed rows; admin writes go
// to the writer and never touch the profiles table.
type AssignmentRepo struct {
	db     *DB
	issuer *IDIssuer
}

// NewAssignmentRepo creates an AssignmentRepo backed by the given DB.
func NewAssignmentRepo(db *DB, issuer *IDIssuer) *AssignmentRepo {
	return &AssignmentRepo{db: db, issuer: issuer}
}

const assignmentColumns = `id, customer_identifier, credential_id, profile_name,
	platform, account_type, operator_id, created_at, expires_at`

// IsCustomerLive reports whether the customer identifier holds an
// assignment whose expiry is after now.
func (r *AssignmentRepo) IsCustomerLive(ctx context.Context, customerIdentifier string, now time.Time) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM assignments WHERE customer_identifier = ? AND expires_at > ?)`

	var live int
	err := r.db.Reader.QueryRowContext(ctx, query, customerIdentifier, formatTime(now)).Scan(&live)
	if err != nil {
		return false, fmt.Errorf("check live customer %q: %w", customerIdentifier, err)
	}
	return live != 0, nil
}

// GetByID returns the assignment or model.ErrNotFound.
func (r *AssignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = ?`

	a, err := scanAssignment(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return a, nil
}

// ListByCustomer returns every assignment ever recorded for the customer,
// newest first.
func (r *AssignmentRepo) ListByCustomer(ctx context.Context, customerIdentifier string) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments WHERE customer_identifier = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, customerIdentifier)
}

// ListByDateRange returns assignments created in [from, to), oldest first.
func (r *AssignmentRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`
	return r.list(ctx, query, formatTime(from), formatTime(to))
}

// ListByOperator returns assignments recorded by one operator, newest first.
func (r *AssignmentRepo) ListByOperator(ctx context.Context, operatorID string) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments WHERE operator_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, operatorID)
}

func (r *AssignmentRepo) list(ctx context.Context, query string, args ...any) ([]model.Assignment, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

// CreateManual writes an admin-created assignment with an explicit expiry,
// issuing its ID in the same transaction. No profile is claimed.
func (r *AssignmentRepo) CreateManual(ctx context.Context, a model.Assignment) (*model.Assignment, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin manual assignment tx: %w", err)
	}
	defer tx.Rollback()

	live, err := customerLiveTx(ctx, tx, a.CustomerIdentifier, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if live {
		return nil, &model.DuplicateCustomerError{CustomerIdentifier: a.CustomerIdentifier}
	}

	a.ID, err = r.issuer.Issue(ctx, tx, model.EntityAssignment)
	if err != nil {
		return nil, err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.OperatorID == "" {
		a.OperatorID = "system"
	}

	if err := insertAssignment(ctx, tx, a); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit manual assignment tx: %w", err)
	}
	return &a, nil
}

// Update applies an administrative correction. Nil fields in upd are left
// unchanged. The claimed profile's used flag is never touched.
func (r *AssignmentRepo) Update(ctx context.Context, id string, upd model.AssignmentUpdate) error {
	set := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if upd.CustomerIdentifier != nil {
		set = append(set, "customer_identifier = ?")
		args = append(args, *upd.CustomerIdentifier)
	}
	if upd.Platform != nil {
		set = append(set, "platform = ?")
		args = append(args, string(*upd.Platform))
	}
	if upd.ExpiresAt != nil {
		set = append(set, "expires_at = ?")
		args = append(args, formatTime(*upd.ExpiresAt))
	}
	if len(set) == 0 {
		return nil
	}

	query := "UPDATE assignments SET "
	for i, s := range set {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// Delete removes the ledger row, freeing the customer identifier. The
// originally claimed profile stays used.
func (r *AssignmentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// customerLiveTx is the transactional variant of IsCustomerLive, shared
// with the allocator so the uniqueness check and the assignment write are
// serialized in one atomic unit.
func customerLiveTx(ctx context.Context, tx *sql.Tx, customerIdentifier string, now time.Time) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM assignments WHERE customer_identifier = ? AND expires_at > ?)`

	var live int
	if err := tx.QueryRowContext(ctx, query, customerIdentifier, formatTime(now)).Scan(&live); err != nil {
		return false, fmt.Errorf("check live customer %q: %w", customerIdentifier, err)
	}
	return live != 0, nil
}

// insertAssignment writes one ledger row on the caller's transaction.
func insertAssignment(ctx context.Context, tx *sql.Tx, a model.Assignment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (id, customer_identifier, credential_id, profile_name,
			platform, account_type, operator_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CustomerIdentifier, a.CredentialID, a.ProfileName,
		string(a.Platform), string(a.AccountType), a.OperatorID,
		formatTime(a.CreatedAt), formatTime(a.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert assignment %s: %w", a.ID, err)
	}
	return nil
}

// scanAssignment scans one assignments row.
func scanAssignment(row rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	var platform, accountType, createdAt, expiresAt string

	err := row.Scan(&a.ID, &a.CustomerIdentifier, &a.CredentialID, &a.ProfileName,
		&platform, &accountType, &a.OperatorID, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	a.Platform = model.Platform(platform)
	a.AccountType = model.AccountType(accountType)

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &a, nil
}
