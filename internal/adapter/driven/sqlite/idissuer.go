package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// idPrefixes is the static entity-type → prefix registration backing
// issued IDs. Entity types without a row here cannot be issued IDs.
var idPrefixes = map[model.EntityType]string{
	model.EntityAssignment: "ASG",
	model.EntityCredential: "ACC",
}

// execQuerier is satisfied by both *sql.Tx and *sql.DB so the issuer can
// participate in a caller's transaction.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IDIssuer formats collision-free human-readable IDs ("ASG-0001") from a
// per-entity-type durable counter. The increment runs on the caller's
// transaction handle, so an aborted allocation rolls the counter back
// with the rest of its writes; gaps are tolerated, duplicates are not.
type IDIssuer struct{}

// NewIDIssuer creates an IDIssuer.
func NewIDIssuer() *IDIssuer {
	return &IDIssuer{}
}

// Issue increments the entity type's counter on q and returns the
// formatted ID. Returns *model.ConfigError when the entity type has no
// registered prefix.
func (i *IDIssuer) Issue(ctx context.Context, q execQuerier, entity model.EntityType) (string, error) {
	prefix, ok := idPrefixes[entity]
	if !ok {
		return "", &model.ConfigError{Detail: fmt.Sprintf("no ID prefix registered for entity type %q", entity)}
	}

	// Lazily create the counter row, then read-and-increment in one
	// statement. The single writer connection serializes concurrent
	// issuances for the same entity type.
	if _, err := q.ExecContext(ctx,
		`INSERT INTO counters (name, value) VALUES (?, 0) ON CONFLICT (name) DO NOTHING`,
		string(entity),
	); err != nil {
		return "", fmt.Errorf("ensure counter %s: %w", entity, err)
	}

	var value int64
	err := q.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value`,
		string(entity),
	).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("increment counter %s: %w", entity, err)
	}

	return fmt.Sprintf("%s-%04d", prefix, value), nil
}
