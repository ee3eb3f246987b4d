package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeDomainError maps an engine error to its HTTP representation.
func writeDomainError(w http.ResponseWriter, err error) {
	var exhausted *model.PoolExhaustedError
	var dup *model.DuplicateCustomerError
	var cfg *model.ConfigError

	switch {
	case errors.As(err, &exhausted):
		writeError(w, http.StatusConflict, "pool_exhausted", exhausted.Error())
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, "duplicate_customer", dup.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "allocation temporarily unavailable, try again")
	case errors.As(err, &cfg):
		writeError(w, http.StatusInternalServerError, "config_error", cfg.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RequestAccountRequest is the JSON body for the request-account endpoint.
type RequestAccountRequest struct {
	Platform           string `json:"platform"`
	AccountType        string `json:"account_type"`
	CustomerIdentifier string `json:"customer_identifier"`
	OperatorID         string `json:"operator_id,omitempty"`
}

// AllocationResponse is the success payload of the request-account
// endpoint: the ledger entry plus the revealed credential material.
type AllocationResponse struct {
	AssignmentID string `json:"assignment_id"`
	CredentialID string `json:"credential_id"`
	Secret       string `json:"secret"`
	ProfileName  string `json:"profile_name"`
	Pin          string `json:"pin"`
	ExpiresAt    string `json:"expires_at"`
}

func toAllocationResponse(alloc *model.Allocation) AllocationResponse {
	return AllocationResponse{
		AssignmentID: alloc.Assignment.ID,
		CredentialID: alloc.Assignment.CredentialID,
		Secret:       alloc.Secret,
		ProfileName:  alloc.ProfileName,
		Pin:          alloc.Pin,
		ExpiresAt:    alloc.Assignment.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// AssignmentResponse is the JSON representation of one ledger entry.
// The credential secret is never included in ledger projections.
type AssignmentResponse struct {
	ID                 string `json:"id"`
	CustomerIdentifier string `json:"customer_identifier"`
	CredentialID       string `json:"credential_id"`
	ProfileName        string `json:"profile_name,omitempty"`
	Platform           string `json:"platform"`
	AccountType        string `json:"account_type"`
	OperatorID         string `json:"operator_id"`
	CreatedAt          string `json:"created_at"`
	ExpiresAt          string `json:"expires_at"`
}

func toAssignmentResponse(a model.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                 a.ID,
		CustomerIdentifier: a.CustomerIdentifier,
		CredentialID:       a.CredentialID,
		ProfileName:        a.ProfileName,
		Platform:           string(a.Platform),
		AccountType:        string(a.AccountType),
		OperatorID:         a.OperatorID,
		CreatedAt:          a.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:          a.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// ManualAssignmentRequest is the JSON body for the admin manual
// assignment endpoint.
type ManualAssignmentRequest struct {
	CustomerIdentifier string `json:"customer_identifier"`
	CredentialID       string `json:"credential_id"`
	ProfileName        string `json:"profile_name,omitempty"`
	Platform           string `json:"platform"`
	AccountType        string `json:"account_type"`
	OperatorID         string `json:"operator_id,omitempty"`
	ExpiresAt          string `json:"expires_at"`
}

// UpdateAssignmentRequest is the JSON body for the admin correction
// endpoint. Absent fields are left unchanged.
type UpdateAssignmentRequest struct {
	CustomerIdentifier *string `json:"customer_identifier,omitempty"`
	Platform           *string `json:"platform,omitempty"`
	ExpiresAt          *string `json:"expires_at,omitempty"`
	OperatorID         string  `json:"operator_id,omitempty"`
}

// AvailabilityResponse is one row of the availability summary.
type AvailabilityResponse struct {
	Platform    string `json:"platform"`
	AccountType string `json:"account_type"`
	FreeSlots   int    `json:"free_slots"`
	Credentials int    `json:"credentials"`
}

func toAvailabilityResponse(pa model.PoolAvailability) AvailabilityResponse {
	return AvailabilityResponse{
		Platform:    string(pa.Platform),
		AccountType: string(pa.AccountType),
		FreeSlots:   pa.FreeSlots,
		Credentials: pa.Credentials,
	}
}

// ImportRequest is the JSON body for the bulk-import endpoint.
type ImportRequest struct {
	Platform    string   `json:"platform"`
	AccountType string   `json:"account_type"`
	ExpiresAt   string   `json:"expires_at"`
	Secrets     []string `json:"secrets"`
	SlotCount   int      `json:"slot_count,omitempty"`
	OperatorID  string   `json:"operator_id,omitempty"`
}

// ImportedCredentialResponse is one created credential in the bulk-import
// response. Profile pins stay server-side until allocation.
type ImportedCredentialResponse struct {
	ID          string `json:"id"`
	Platform    string `json:"platform"`
	AccountType string `json:"account_type"`
	Profiles    int    `json:"profiles"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
}

func toImportedCredentialResponse(c model.Credential) ImportedCredentialResponse {
	return ImportedCredentialResponse{
		ID:          c.ID,
		Platform:    string(c.Platform),
		AccountType: string(c.AccountType),
		Profiles:    len(c.Profiles),
		Status:      string(c.Status),
		ExpiresAt:   c.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
