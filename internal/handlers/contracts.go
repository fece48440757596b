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

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContractHandler struct {
	DB     *gorm.DB
	Status *services.StatusService
	Gate   *gate.Gate[uint]
}

func NewContractHandler(db *gorm.DB, status *services.StatusService, g *gate.Gate[uint]) *ContractHandler {
	return &ContractHandler{DB: db, Status: status, Gate: g}
}

// List: GET /contracts
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
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
	var total int64
	dbq.Model(&models.Contract{}).Count(&total)
	var contracts []models.Contract
	if err := dbq.Preload("ContractType").Order("id desc").Limit(limit).Offset(offset).Find(&contracts).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_contracts", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": contracts, "total": total, "limit": limit, "offset": offset})
}

type contractReq struct {
	ContractNumber string          `json:"contract_number"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	ContractTypeID *uint           `json:"contract_type_id"`
	ContractorID   uint            `json:"contractor_id"`
	OrganizationID uint            `json:"organization_id"`
	SupervisorID   *uint           `json:"supervisor_id"`
	Value          decimal.Decimal `json:"value"`
	Currency       string          `json:"currency"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	Objective      string          `json:"objective"`
	Obligations    string          `json:"obligations"`
	PaymentTerms   string          `json:"payment_terms"`
	InitialStatus  string          `json:"initial_status"`
}

// Create: POST /contracts. The contract opens in the requested initial state
// (default DRAFT); the opening status record goes through the validator like
// every other transition.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "contract", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req contractReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.ContractNumber == "" || req.Title == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_fields", map[string]any{"required": []string{"contract_number", "title"}})
		return
	}
	c := models.Contract{
		ContractNumber: req.ContractNumber,
		Title:          req.Title,
		Description:    req.Description,
		ContractTypeID: req.ContractTypeID,
		ContractorID:   req.ContractorID,
		OrganizationID: req.OrganizationID,
		SupervisorID:   req.SupervisorID,
		Value:          req.Value,
		Currency:       req.Currency,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Objective:      req.Objective,
		Obligations:    req.Obligations,
		PaymentTerms:   req.PaymentTerms,
		TenantID:       tenantID,
	}
	if c.Currency == "" {
		c.Currency = "COP"
	}
	if c.StartDate.IsZero() {
		c.StartDate = time.Now()
	}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_contract", nil)
		return
	}
	initial := workflow.Status(req.InitialStatus)
	if initial == "" {
		initial = workflow.ContractDraft
	}
	if _, err := h.Status.ApplyContractTransition(r.Context(), c.ID, tenantID, initial, actorID, "contract created"); err != nil {
		writeServiceError(w, err)
		return
	}
	c.CurrentStatus = string(initial)
	httpx.JSON(w, http.StatusCreated, c)
}

// Get: GET /contracts/{id}
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var c models.Contract
	if err := h.DB.Preload("ContractType").Preload("Parties").Preload("Documents").
		Where("tenant_id = ?", tenantID).First(&c, id).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update: PUT /contracts/{id} – descriptive fields only; status and money
// move through their own endpoints.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var c models.Contract
	if err := h.DB.Where("tenant_id = ?", tenantID).First(&c, id).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionUpdate, "contract", &c); err != nil {
		writeServiceError(w, err)
		return
	}
	var req contractReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	updates := map[string]any{
		"title":         req.Title,
		"description":   req.Description,
		"objective":     req.Objective,
		"obligations":   req.Obligations,
		"payment_terms": req.PaymentTerms,
	}
	if req.SupervisorID != nil {
		updates["supervisor_id"] = *req.SupervisorID
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if !req.Value.IsZero() {
		updates["value"] = req.Value
	}
	if err := h.DB.Model(&c).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_contract", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

type transitionReq struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

// Transition: POST /contracts/{id}/status
func (h *ContractHandler) Transition(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionTransition, "contract", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req transitionReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	rec, err := h.Status.ApplyContractTransition(r.Context(), id, tenantID, workflow.Status(req.Status), actorID, req.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

// Revisions: GET /contracts/{id}/revisions
func (h *ContractHandler) Revisions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var revisions []models.Revision
	if err := h.DB.Where("entity_type = ? AND entity_id = ? AND tenant_id = ?", "contract", id, tenantID).
		Order("revision_date asc, id asc").Find(&revisions).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_revisions", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": revisions})
}

// History: GET /contracts/{id}/status/history
func (h *ContractHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var records []models.ContractStatusRecord
	if err := h.DB.Where("contract_id = ? AND tenant_id = ?", id, tenantID).
		Order("start_date asc, id asc").Find(&records).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_history", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": records})
}
