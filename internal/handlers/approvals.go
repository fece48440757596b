package handlers

import (
	"net/http"

	"github.com/andinosoft/contracting/internal/gate"
	"github.com/andinosoft/contracting/internal/httpx"
	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/services"

	"gorm.io/gorm"
)

type ApprovalHandler struct {
	DB   *gorm.DB
	Svc  *services.ApprovalService
	Gate *gate.Gate[uint]
}

func NewApprovalHandler(db *gorm.DB, svc *services.ApprovalService, g *gate.Gate[uint]) *ApprovalHandler {
	return &ApprovalHandler{DB: db, Svc: svc, Gate: g}
}

// List: GET /invoices/{id}/approvals
func (h *ApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var approvals []models.Approval
	if err := h.DB.Where("invoice_id = ? AND tenant_id = ?", id, tenantID).
		Order("assigned_date asc, id asc").Find(&approvals).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_approvals", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": approvals})
}

// Pending: GET /approvals/pending – the caller's open approval queue.
func (h *ApprovalHandler) Pending(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var approvals []models.Approval
	if err := h.DB.Where("approver_id = ? AND result = ?", actorID, models.ResultPending).
		Order("assigned_date asc").Find(&approvals).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_approvals", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": approvals})
}

// Assign: POST /invoices/{id}/approvals
func (h *ApprovalHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionApprove, "approval", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var in services.AssignInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	approval, err := h.Svc.Assign(r.Context(), id, tenantID, in, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, approval)
}

// Resolve: POST /approvals/{id}/resolve. The service checks that the caller
// is the assigned approver.
func (h *ApprovalHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in services.ResolveInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	approval, err := h.Svc.Resolve(r.Context(), id, tenantID, in, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, approval)
}
