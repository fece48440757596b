package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/andinosoft/contracting/internal/gate"
	"github.com/andinosoft/contracting/internal/httpx"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/go-chi/chi/v5"
)

// writeServiceError maps service-layer errors onto HTTP responses. The
// mapping is the single source of truth for the API's error surface.
func writeServiceError(w http.ResponseWriter, err error) {
	var transition *workflow.InvalidTransitionError
	if errors.As(err, &transition) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_transition", map[string]any{
			"message": transition.Error(),
			"allowed": transition.Allowed,
		})
		return
	}
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, workflow.ErrForbidden), errors.Is(err, gate.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, workflow.ErrAlreadyResolved):
		httpx.JSONError(w, http.StatusBadRequest, "already_resolved", nil)
	case errors.Is(err, workflow.ErrAlreadyPaid):
		httpx.JSONError(w, http.StatusBadRequest, "already_paid", nil)
	case errors.Is(err, workflow.ErrDuplicateApproval):
		httpx.JSONError(w, http.StatusConflict, "duplicate_approval", nil)
	case errors.Is(err, workflow.ErrConcurrentModification):
		httpx.JSONError(w, http.StatusConflict, "concurrent_modification", nil)
	case errors.Is(err, workflow.ErrOverPayment):
		httpx.JSONError(w, http.StatusBadRequest, "over_payment", nil)
	case errors.Is(err, workflow.ErrUnderPayment):
		httpx.JSONError(w, http.StatusBadRequest, "under_payment", nil)
	case errors.Is(err, workflow.ErrInvalidAmount):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_amount", nil)
	case errors.Is(err, workflow.ErrMissingReason):
		httpx.JSONError(w, http.StatusBadRequest, "missing_reason", nil)
	case errors.Is(err, workflow.ErrInvalidResult):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_result", nil)
	case errors.Is(err, workflow.ErrInvalidStage):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_stage", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// idParam reads a numeric chi URL parameter; writes a 400 and returns false
// on garbage.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(n), true
}

// requireActor extracts the actor id or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := ActorIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	}
	return id, ok
}

// requireTenant extracts the tenant id or writes a 400.
func requireTenant(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_tenant", nil)
	}
	return id, ok
}
