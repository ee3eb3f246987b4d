package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via
// cache=shared. A unique name derived from t.Name() ensures isolation
// between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename
	// component and cannot be misinterpreted as query parameters.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("create test db writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test db writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("create test db reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// testBaseTime anchors seeded credentials at a fixed instant well in the
// past so creation-order candidate scans are deterministic.
var testBaseTime = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

// seedCredential imports one credential through the real batch path and
// returns it with its issued ID and generated profile pool.
func seedCredential(t *testing.T, db *DB, platform model.Platform, accountType model.AccountType, expiresAt time.Time) model.Credential {
	t.Helper()

	repo := NewCredentialRepo(db, NewIDIssuer())
	created, err := repo.CreateBatch(context.Background(), []model.Credential{{
		Platform:    platform,
		AccountType: accountType,
		Secret:      fmt.Sprintf("%s-login:secret", platform),
		Profiles:    model.NewProfilePool(accountType.SlotCount()),
		CreatedAt:   testBaseTime.Add(time.Duration(credentialSeq(t)) * time.Minute),
		ExpiresAt:   expiresAt,
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

// credentialSeq hands out a distinct per-test sequence number so seeded
// credentials get strictly increasing creation times.
var seqByTest = map[string]int{}

func credentialSeq(t *testing.T) int {
	seqByTest[t.Name()]++
	return seqByTest[t.Name()]
}

// futureExpiry is a convenient non-expired cutoff for seeded credentials.
func futureExpiry() time.Time {
	return time.Now().UTC().AddDate(0, 1, 0)
}
