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

// timeFormat is the fixed-width UTC text format used for every stored
// timestamp. Fixed width keeps SQL range predicates (expires_at > ?)
// correct as plain string comparisons.
const timeFormat = "2006-01-02 15:04:05.000"

// formatTime renders t for storage and SQL comparison.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeFormat,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// A credential row owns its profile rows exclusively; profiles are always
// loaded and stored alongside their credential.
type CredentialRepo struct {
	db     *DB
	issuer *IDIssuer
}

// NewCredentialRepo creates a CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB, issuer *IDIssuer) *CredentialRepo {
	return &CredentialRepo{db: db, issuer: issuer}
}

// CreateBatch inserts the credentials and their profile pools in one
// transaction, issuing an ACC id for each. Any failure rolls back the
// whole batch.
func (r *CredentialRepo) CreateBatch(ctx context.Context, creds []model.Credential) ([]model.Credential, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		id, err := r.issuer.Issue(ctx, tx, model.EntityCredential)
		if err != nil {
			return nil, err
		}
		c.ID = id

		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		c.Status = c.DeriveStatus()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO credentials (id, platform, account_type, secret, status, created_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, string(c.Platform), string(c.AccountType), c.Secret, string(c.Status),
			formatTime(c.CreatedAt), formatTime(c.ExpiresAt),
		)
		if err != nil {
			return nil, fmt.Errorf("insert credential %s: %w", c.ID, err)
		}

		for i, p := range c.Profiles {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO profiles (credential_id, slot, name, pin, used) VALUES (?, ?, ?, ?, ?)`,
				c.ID, i+1, p.Name, p.Pin, boolToInt(p.Used),
			)
			if err != nil {
				return nil, fmt.Errorf("insert profile %s/%s: %w", c.ID, p.Name, err)
			}
		}

		created = append(created, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import tx: %w", err)
	}

	return created, nil
}

// GetByID loads a credential with its full profile pool from the reader.
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	const query = `SELECT id, platform, account_type, secret, status, created_at, expires_at
		FROM credentials WHERE id = ?`

	c, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}

	if err := r.loadProfiles(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByPool returns the credentials of one (platform, account type) pair
// ordered by creation time, profiles included.
func (r *CredentialRepo) ListByPool(ctx context.Context, platform model.Platform, accountType model.AccountType) ([]model.Credential, error) {
	const query = `SELECT id, platform, account_type, secret, status, created_at, expires_at
		FROM credentials
		WHERE platform = ? AND account_type = ?
		ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(platform), string(accountType))
	if err != nil {
		return nil, fmt.Errorf("list credentials %s/%s: %w", platform, accountType, err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	for i := range creds {
		if err := r.loadProfiles(ctx, &creds[i]); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

// loadProfiles fills c.Profiles in slot order.
func (r *CredentialRepo) loadProfiles(ctx context.Context, c *model.Credential) error {
	const query = `SELECT name, pin, used FROM profiles WHERE credential_id = ? ORDER BY slot`

	rows, err := r.db.Reader.QueryContext(ctx, query, c.ID)
	if err != nil {
		return fmt.Errorf("load profiles for %s: %w", c.ID, err)
	}
	defer rows.Close()

	c.Profiles = nil
	for rows.Next() {
		var p model.Profile
		var used int
		if err := rows.Scan(&p.Name, &p.Pin, &used); err != nil {
			return fmt.Errorf("scan profile for %s: %w", c.ID, err)
		}
		p.Used = used != 0
		c.Profiles = append(c.Profiles, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate profiles for %s: %w", c.ID, err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCredential scans one credentials row without its profiles.
func scanCredential(row rowScanner) (*model.Credential, error) {
	var c model.Credential
	var platform, accountType, status, createdAt, expiresAt string

	if err := row.Scan(&c.ID, &platform, &accountType, &c.Secret, &status, &createdAt, &expiresAt); err != nil {
		return nil, err
	}

	c.Platform = model.Platform(platform)
	c.AccountType = model.AccountType(accountType)
	c.Status = model.CredentialStatus(status)

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
