package httphandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pakin-dev/poold/internal/adapter/driven/sqlite"
	"github.com/pakin-dev/poold/internal/application"
)

// newTestHandler wires the full stack against a throwaway on-disk SQLite
// database so the HTTP tests exercise real transactions.
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "poold-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.RunMigrations(db.Writer))

	logger := slog.New(slog.DiscardHandler)
	issuer := sqlite.NewIDIssuer()
	credStore := sqlite.NewCredentialRepo(db, issuer)
	ledger := sqlite.NewAssignmentRepo(db, issuer)
	allocator := sqlite.NewAllocator(db, issuer)
	availability := sqlite.NewAvailabilityRepo(db)
	activity := sqlite.NewActivityLogRepo(db)

	h := NewHandler(
		application.NewAllocationService(allocator, activity, 0, logger),
		application.NewImportService(credStore, activity, logger),
		application.NewStatsService(availability, ledger),
		application.NewAdminService(ledger, activity, logger),
		logger,
	)
	return h.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func importCredentials(t *testing.T, router http.Handler, platform, accountType string, n int) {
	t.Helper()

	secrets := make([]string, n)
	for i := range secrets {
		secrets[i] = fmt.Sprintf("%s-login-%d:pw", platform, i+1)
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/credentials/import", ImportRequest{
		Platform:    platform,
		AccountType: accountType,
		ExpiresAt:   time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339),
		Secrets:     secrets,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

func TestRequestAccount(t *testing.T) {
	router := newTestHandler(t)
	importCredentials(t, router, "netflix", "private", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", RequestAccountRequest{
		Platform:           "netflix",
		AccountType:        "private",
		CustomerIdentifier: "0812000001",
		OperatorID:         "op-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	resp := decodeBody[AllocationResponse](t, rec)
	assert.Equal(t, "ASG-0001", resp.AssignmentID)
	assert.Equal(t, "ACC-0001", resp.CredentialID)
	assert.Equal(t, "Profile-1", resp.ProfileName)
	assert.Len(t, resp.Pin, 4)
	assert.NotEmpty(t, resp.Secret)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestRequestAccount_DuplicateCustomer(t *testing.T) {
	router := newTestHandler(t)
	importCredentials(t, router, "netflix", "private", 1)

	req := RequestAccountRequest{
		Platform:           "netflix",
		AccountType:        "private",
		CustomerIdentifier: "0812000001",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/assignments", req)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_customer", decodeBody[errorResponse](t, rec).Code)
}

func TestRequestAccount_PoolExhausted(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", RequestAccountRequest{
		Platform:           "disney",
		AccountType:        "vip",
		CustomerIdentifier: "0812000001",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "pool_exhausted", decodeBody[errorResponse](t, rec).Code)
}

func TestRequestAccount_InvalidPlatform(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", RequestAccountRequest{
		Platform:           "blockbuster",
		AccountType:        "private",
		CustomerIdentifier: "0812000001",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_platform", decodeBody[errorResponse](t, rec).Code)
}

func TestAvailability(t *testing.T) {
	router := newTestHandler(t)
	importCredentials(t, router, "netflix", "private", 2)
	importCredentials(t, router, "spotify", "vip", 1)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/availability", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeBody[[]AvailabilityResponse](t, rec)
	require.Len(t, summary, 2)
	assert.Equal(t, "netflix", summary[0].Platform)
	assert.Equal(t, 16, summary[0].FreeSlots)
	assert.Equal(t, 2, summary[0].Credentials)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/availability?platform=spotify&account_type=vip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decodeBody[AvailabilityResponse](t, rec).FreeSlots)
}

func TestListAssignments_ByCustomer(t *testing.T) {
	router := newTestHandler(t)
	importCredentials(t, router, "netflix", "private", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", RequestAccountRequest{
		Platform:           "netflix",
		AccountType:        "private",
		CustomerIdentifier: "0812000001",
		OperatorID:         "op-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/assignments?customer=0812000001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]AssignmentResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "ASG-0001", list[0].ID)
	assert.Equal(t, "op-1", list[0].OperatorID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/assignments", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAssignment_FreesCustomerOnly(t *testing.T) {
	router := newTestHandler(t)
	importCredentials(t, router, "netflix", "private", 1)

	req := RequestAccountRequest{
		Platform:           "netflix",
		AccountType:        "private",
		CustomerIdentifier: "0812000001",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeBody[AllocationResponse](t, rec)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/assignments/"+first.AssignmentID+"?operator=op-9", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The customer can be assigned again, but the original profile slot
	// remains consumed.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/assignments", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[AllocationResponse](t, rec)
	assert.NotEqual(t, first.ProfileName, second.ProfileName)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/availability?platform=netflix&account_type=private", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decodeBody[AvailabilityResponse](t, rec).FreeSlots)
}

func TestUpdateAssignment(t *testing.T) {
	router := newTestHandler(t)
	importCredentials(t, router, "netflix", "private", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments", RequestAccountRequest{
		Platform:           "netflix",
		AccountType:        "private",
		CustomerIdentifier: "0812000001",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[AllocationResponse](t, rec)

	newCustomer := "0899000000"
	rec = doJSON(t, router, http.MethodPatch, "/api/v1/assignments/"+created.AssignmentID, UpdateAssignmentRequest{
		CustomerIdentifier: &newCustomer,
		OperatorID:         "op-1",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/assignments?customer=0899000000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]AssignmentResponse](t, rec), 1)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/assignments/ASG-9999", UpdateAssignmentRequest{
		CustomerIdentifier: &newCustomer,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateManualAssignment(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assignments/manual", ManualAssignmentRequest{
		CustomerIdentifier: "0812000001",
		CredentialID:       "ACC-0042",
		Platform:           "hbo",
		AccountType:        "vip",
		OperatorID:         "op-1",
		ExpiresAt:          time.Now().UTC().AddDate(0, 0, 45).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	resp := decodeBody[AssignmentResponse](t, rec)
	assert.Equal(t, "ASG-0001", resp.ID)
	assert.Equal(t, "ACC-0042", resp.CredentialID)

	// Manual assignments still enforce customer uniqueness.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/assignments/manual", ManualAssignmentRequest{
		CustomerIdentifier: "0812000001",
		CredentialID:       "ACC-0042",
		Platform:           "hbo",
		AccountType:        "vip",
		ExpiresAt:          time.Now().UTC().AddDate(0, 0, 45).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[HealthResponse](t, rec).Status)
}
