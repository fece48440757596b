package handlers

import (
	"net/http"
	"time"

	"github.com/andinosoft/contracting/internal/gate"
	"github.com/andinosoft/contracting/internal/httpx"
	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/services"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	DB     *gorm.DB
	Svc    *services.PaymentService
	Status *services.StatusService
	Gate   *gate.Gate[uint]
}

func NewPaymentHandler(db *gorm.DB, svc *services.PaymentService, status *services.StatusService, g *gate.Gate[uint]) *PaymentHandler {
	return &PaymentHandler{DB: db, Svc: svc, Status: status, Gate: g}
}

// List: GET /invoices/{id}/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var payments []models.Payment
	if err := h.DB.Where("invoice_id = ? AND tenant_id = ?", id, tenantID).
		Order("payment_date asc, id asc").Find(&payments).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments})
}

// Record: POST /invoices/{id}/payments
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "payment", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var in services.RecordPaymentInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	payment, err := h.Svc.Record(r.Context(), id, tenantID, in, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

// Delete: DELETE /payments/{id}
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionDelete, "payment", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id, tenantID, actorID); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Transition: POST /payments/{id}/status – the generic verification-lifecycle
// move (covers REFUNDED and CANCELLED; verify/reject have dedicated routes).
func (h *PaymentHandler) Transition(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionVerify, "payment", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req transitionReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	rec, err := h.Status.ApplyPaymentTransition(r.Context(), id, tenantID, workflow.Status(req.Status), actorID, req.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

type verifyReq struct {
	Comments string `json:"comments"`
}

// Verify: POST /payments/{id}/verify
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionVerify, "payment", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req verifyReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	payment, err := h.Svc.Verify(r.Context(), id, tenantID, actorID, req.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Reject: POST /payments/{id}/reject – comments are mandatory.
func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionVerify, "payment", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req verifyReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	payment, err := h.Svc.Reject(r.Context(), id, tenantID, actorID, req.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

type scheduleItemReq struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Notes   string          `json:"notes"`
}

type createScheduleReq struct {
	Installments []scheduleItemReq `json:"installments"`
}

// CreatePlan: POST /invoices/{id}/payment-schedules – creates the invoice's
// installment plan in one shot.
func (h *PaymentHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "payment", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req createScheduleReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if len(req.Installments) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_installments", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.Where("tenant_id = ?", tenantID).First(&inv, id).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	schedules := make([]models.PaymentSchedule, 0, len(req.Installments))
	total := uint(len(req.Installments))
	for i, item := range req.Installments {
		if !item.Amount.IsPositive() {
			writeServiceError(w, workflow.ErrInvalidAmount)
			return
		}
		schedules = append(schedules, models.PaymentSchedule{
			InvoiceID:         inv.ID,
			DueDate:           item.DueDate,
			Amount:            item.Amount,
			Status:            models.SchedulePending,
			InstallmentNumber: uint(i + 1),
			TotalInstallments: total,
			Notes:             item.Notes,
			TenantID:          tenantID,
		})
	}
	if err := h.DB.Create(&schedules).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_schedules", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"items": schedules})
}

// ListPlan: GET /invoices/{id}/payment-schedules
func (h *PaymentHandler) ListPlan(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var schedules []models.PaymentSchedule
	if err := h.DB.Where("invoice_id = ? AND tenant_id = ?", id, tenantID).
		Order("installment_number asc").Find(&schedules).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_schedules", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": schedules})
}
