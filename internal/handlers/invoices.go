package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andinosoft/contracting/internal/gate"
	"github.com/andinosoft/contracting/internal/httpx"
	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/services"
	"github.com/andinosoft/contracting/internal/workflow"

	"gorm.io/gorm"
)

type InvoiceHandler struct {
	DB     *gorm.DB
	Status *services.StatusService
	Items  *services.InvoiceItemService
	Gate   *gate.Gate[uint]
}

func NewInvoiceHandler(db *gorm.DB, status *services.StatusService, items *services.InvoiceItemService, g *gate.Gate[uint]) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Status: status, Items: items, Gate: g}
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB.Where("tenant_id = ?", tenantID)
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("current_status = ?", status)
	}
	if v := r.URL.Query().Get("contract_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("contract_id = ?", n)
		}
	}
	var total int64
	dbq.Model(&models.Invoice{}).Count(&total)
	var invoices []models.Invoice
	if err := dbq.Preload("Items").Order("id desc").Limit(limit).Offset(offset).Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": total, "limit": limit, "offset": offset})
}

type invoiceReq struct {
	InvoiceNumber           string     `json:"invoice_number"`
	Title                   string     `json:"title"`
	ContractID              *uint      `json:"contract_id"`
	RecipientType           string     `json:"recipient_type"`
	RecipientOrganizationID *uint      `json:"recipient_organization_id"`
	RecipientUserID         *uint      `json:"recipient_user_id"`
	RecipientName           string     `json:"recipient_name"`
	RecipientIdentification string     `json:"recipient_identification"`
	IssueDate               time.Time  `json:"issue_date"`
	DueDate                 time.Time  `json:"due_date"`
	PeriodStart             *time.Time `json:"period_start"`
	PeriodEnd               *time.Time `json:"period_end"`
	Currency                string     `json:"currency"`
	Notes                   string     `json:"notes"`
	PaymentTerms            string     `json:"payment_terms"`
	InitialStatus           string     `json:"initial_status"`

	Items []services.ItemInput `json:"items"`
}

// Create: POST /invoices. Totals always come from the items, never the
// request body.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "invoice", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req invoiceReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.InvoiceNumber == "" || req.Title == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_fields", map[string]any{"required": []string{"invoice_number", "title"}})
		return
	}
	inv := models.Invoice{
		InvoiceNumber:           req.InvoiceNumber,
		Title:                   req.Title,
		ContractID:              req.ContractID,
		IssuerID:                actorID,
		RecipientType:           req.RecipientType,
		RecipientOrganizationID: req.RecipientOrganizationID,
		RecipientUserID:         req.RecipientUserID,
		RecipientName:           req.RecipientName,
		RecipientIdentification: req.RecipientIdentification,
		IssueDate:               req.IssueDate,
		DueDate:                 req.DueDate,
		PeriodStart:             req.PeriodStart,
		PeriodEnd:               req.PeriodEnd,
		Currency:                req.Currency,
		Notes:                   req.Notes,
		PaymentTerms:            req.PaymentTerms,
		TenantID:                tenantID,
	}
	if inv.RecipientType == "" {
		inv.RecipientType = models.RecipientOrganization
	}
	if inv.Currency == "" {
		inv.Currency = "COP"
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now()
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.IssueDate.AddDate(0, 0, 30)
	}
	if err := h.DB.Create(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}

	initial := workflow.Status(req.InitialStatus)
	if initial == "" {
		initial = workflow.InvoiceDraft
	}
	if _, err := h.Status.ApplyInvoiceTransition(r.Context(), inv.ID, tenantID, initial, actorID, "invoice created"); err != nil {
		writeServiceError(w, err)
		return
	}
	inv.CurrentStatus = string(initial)

	for _, in := range req.Items {
		if _, err := h.Items.Create(r.Context(), inv.ID, tenantID, in, actorID); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if len(req.Items) > 0 {
		// reload so the response carries the recomputed totals
		if err := h.DB.Preload("Items").First(&inv, inv.ID).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_reload_invoice", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get: GET /invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var inv models.Invoice
	if err := h.DB.Preload("Items").Where("tenant_id = ?", tenantID).First(&inv, id).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Transition: POST /invoices/{id}/status
func (h *InvoiceHandler) Transition(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionTransition, "invoice", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req transitionReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	rec, err := h.Status.ApplyInvoiceTransition(r.Context(), id, tenantID, workflow.Status(req.Status), actorID, req.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

// Current: GET /invoices/{id}/status/current
func (h *InvoiceHandler) Current(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var inv models.Invoice
	if err := h.DB.Select("id", "current_status").Where("tenant_id = ?", tenantID).First(&inv, id).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": inv.ID, "status": inv.CurrentStatus})
}

// History: GET /invoices/{id}/status/history
func (h *InvoiceHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var records []models.InvoiceStatusRecord
	if err := h.DB.Where("invoice_id = ? AND tenant_id = ?", id, tenantID).
		Order("start_date asc, id asc").Find(&records).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_history", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": records})
}

// AddItem: POST /invoices/{id}/items
func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
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
	var in services.ItemInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	item, err := h.Items.Create(r.Context(), id, tenantID, in, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// UpdateItem: PUT /invoices/{id}/items/{itemID}
func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	itemID, ok := idParam(w, r, "itemID")
	if !ok {
		return
	}
	var in services.ItemInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	item, err := h.Items.Update(r.Context(), itemID, tenantID, in, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// DeleteItem: DELETE /invoices/{id}/items/{itemID}
func (h *InvoiceHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	itemID, ok := idParam(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.Items.Delete(r.Context(), itemID, tenantID, actorID); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
