// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pakin-dev/poold/internal/application"
	"github.com/pakin-dev/poold/internal/domain/model"
)

// Handler exposes the allocation engine to operators.
type Handler struct {
	allocSvc  *application.AllocationService
	importSvc *application.ImportService
	statsSvc  *application.StatsService
	adminSvc  *application.AdminService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	allocSvc *application.AllocationService,
	importSvc *application.ImportService,
	statsSvc *application.StatsService,
	adminSvc *application.AdminService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		allocSvc:  allocSvc,
		importSvc: importSvc,
		statsSvc:  statsSvc,
		adminSvc:  adminSvc,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assignments", h.RequestAccount)
		r.Get("/assignments", h.ListAssignments)
		r.Post("/assignments/manual", h.CreateManualAssignment)
		r.Patch("/assignments/{id}", h.UpdateAssignment)
		r.Delete("/assignments/{id}", h.DeleteAssignment)
		r.Get("/availability", h.Availability)
		r.Post("/credentials/import", h.ImportCredentials)
		r.Get("/health", h.Health)
	})

	return r
}

// requestLogger logs each request with method, path, status, and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).Round(time.Microsecond),
			)
		})
	}
}

// RequestAccount allocates one profile to a customer.
func (h *Handler) RequestAccount(w http.ResponseWriter, r *http.Request) {
	var req RequestAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.CustomerIdentifier == "" {
		writeError(w, http.StatusBadRequest, "missing_customer", "customer_identifier is required")
		return
	}

	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_platform", err.Error())
		return
	}
	accountType, err := model.ParseAccountType(req.AccountType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_account_type", err.Error())
		return
	}

	alloc, err := h.allocSvc.RequestAccount(r.Context(), model.AllocationRequest{
		Platform:           platform,
		AccountType:        accountType,
		CustomerIdentifier: req.CustomerIdentifier,
		OperatorID:         req.OperatorID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAllocationResponse(alloc))
}

// ListAssignments serves the ledger projections. Exactly one of the
// customer, operator, or from/to filters selects the projection.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		assignments []model.Assignment
		err         error
	)
	switch {
	case q.Get("customer") != "":
		assignments, err = h.statsSvc.AssignmentsByCustomer(r.Context(), q.Get("customer"))
	case q.Get("operator") != "":
		assignments, err = h.statsSvc.AssignmentsByOperator(r.Context(), q.Get("operator"))
	case q.Get("from") != "" && q.Get("to") != "":
		var from, to time.Time
		if from, err = time.Parse(time.RFC3339, q.Get("from")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_range", "from must be RFC3339")
			return
		}
		if to, err = time.Parse(time.RFC3339, q.Get("to")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_range", "to must be RFC3339")
			return
		}
		assignments, err = h.statsSvc.AssignmentsByDateRange(r.Context(), from, to)
	default:
		writeError(w, http.StatusBadRequest, "missing_filter", "provide customer, operator, or from/to")
		return
	}
	if err != nil {
		h.logger.Error("failed to list assignments", "error", err)
		writeDomainError(w, err)
		return
	}

	resp := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		resp = append(resp, toAssignmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateManualAssignment writes an admin assignment with an explicit
// expiry, bypassing allocation.
func (h *Handler) CreateManualAssignment(w http.ResponseWriter, r *http.Request) {
	var req ManualAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.CustomerIdentifier == "" {
		writeError(w, http.StatusBadRequest, "missing_customer", "customer_identifier is required")
		return
	}

	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_platform", err.Error())
		return
	}
	accountType, err := model.ParseAccountType(req.AccountType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_account_type", err.Error())
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_expiry", "expires_at must be RFC3339")
		return
	}

	created, err := h.adminSvc.CreateManualAssignment(r.Context(), model.Assignment{
		CustomerIdentifier: req.CustomerIdentifier,
		CredentialID:       req.CredentialID,
		ProfileName:        req.ProfileName,
		Platform:           platform,
		AccountType:        accountType,
		OperatorID:         req.OperatorID,
		ExpiresAt:          expiresAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssignmentResponse(*created))
}

// UpdateAssignment applies an administrative correction to a ledger row.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	var upd model.AssignmentUpdate
	upd.CustomerIdentifier = req.CustomerIdentifier
	if req.Platform != nil {
		platform, err := model.ParsePlatform(*req.Platform)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_platform", err.Error())
			return
		}
		upd.Platform = &platform
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_expiry", "expires_at must be RFC3339")
			return
		}
		upd.ExpiresAt = &expiresAt
	}

	if err := h.adminSvc.UpdateAssignment(r.Context(), id, req.OperatorID, upd); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAssignment removes a ledger row. The freed customer identifier
// may be assigned again; the claimed profile stays used.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.adminSvc.DeleteAssignment(r.Context(), id, r.URL.Query().Get("operator")); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Availability serves the free-slot summary, or a single pool's count
// when platform and account_type are given.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("platform") != "" || q.Get("account_type") != "" {
		platform, err := model.ParsePlatform(q.Get("platform"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_platform", err.Error())
			return
		}
		accountType, err := model.ParseAccountType(q.Get("account_type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_type", err.Error())
			return
		}

		count, err := h.statsSvc.CountFree(r.Context(), platform, accountType)
		if err != nil {
			h.logger.Error("failed to count free slots", "error", err)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Platform:    string(platform),
			AccountType: string(accountType),
			FreeSlots:   count,
		})
		return
	}

	summary, err := h.statsSvc.AvailabilitySummary(r.Context())
	if err != nil {
		h.logger.Error("failed to build availability summary", "error", err)
		writeDomainError(w, err)
		return
	}

	resp := make([]AvailabilityResponse, 0, len(summary))
	for _, pa := range summary {
		resp = append(resp, toAvailabilityResponse(pa))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ImportCredentials creates a batch of credentials with fresh profile
// pools, bypassing allocation.
func (h *Handler) ImportCredentials(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_platform", err.Error())
		return
	}
	accountType, err := model.ParseAccountType(req.AccountType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_account_type", err.Error())
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_expiry", "expires_at must be RFC3339")
		return
	}

	created, err := h.importSvc.Import(r.Context(), application.ImportBatch{
		Platform:    platform,
		AccountType: accountType,
		ExpiresAt:   expiresAt,
		Secrets:     req.Secrets,
		SlotCount:   req.SlotCount,
		OperatorID:  req.OperatorID,
	})
	if err != nil {
		h.logger.Error("import failed", "platform", platform, "account_type", accountType, "error", err)
		writeError(w, http.StatusBadRequest, "import_failed", err.Error())
		return
	}

	resp := make([]ImportedCredentialResponse, 0, len(created))
	for _, c := range created {
		resp = append(resp, toImportedCredentialResponse(c))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
