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

type ScheduleHandler struct {
	DB   *gorm.DB
	Svc  *services.ScheduleService
	Gate *gate.Gate[uint]
}

func NewScheduleHandler(db *gorm.DB, svc *services.ScheduleService, g *gate.Gate[uint]) *ScheduleHandler {
	return &ScheduleHandler{DB: db, Svc: svc, Gate: g}
}

// List: GET /schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	dbq := h.DB.Where("tenant_id = ?", tenantID)
	if v := r.URL.Query().Get("contract_id"); v != "" {
		dbq = dbq.Where("contract_id = ?", v)
	}
	var schedules []models.InvoiceSchedule
	if err := dbq.Order("id desc").Find(&schedules).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_schedules", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": schedules})
}

type scheduleReq struct {
	ContractID     uint            `json:"contract_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ScheduleType   string          `json:"schedule_type"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	CustomDays     uint            `json:"custom_days"`
	DayOfMonth     uint            `json:"day_of_month"`
	IsAutoGenerate *bool           `json:"is_auto_generate"`
	AutoApprove    bool            `json:"auto_approve"`
	Value          decimal.Decimal `json:"value"`
}

// Create: POST /schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "schedule", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req scheduleReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.ContractID == 0 || req.Name == "" || !req.Value.IsPositive() {
		httpx.JSONError(w, http.StatusBadRequest, "missing_fields", map[string]any{"required": []string{"contract_id", "name", "value"}})
		return
	}
	var contract models.Contract
	if err := h.DB.Where("tenant_id = ?", tenantID).First(&contract, req.ContractID).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	sched := models.InvoiceSchedule{
		ContractID:   req.ContractID,
		Name:         req.Name,
		Description:  req.Description,
		ScheduleType: req.ScheduleType,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		CustomDays:   req.CustomDays,
		DayOfMonth:   req.DayOfMonth,
		AutoApprove:  req.AutoApprove,
		IsActive:     true,
		Value:        req.Value,
		TenantID:     tenantID,
	}
	sched.IsAutoGenerate = true
	if req.IsAutoGenerate != nil {
		sched.IsAutoGenerate = *req.IsAutoGenerate
	}
	if sched.ScheduleType == "" {
		sched.ScheduleType = models.ScheduleMonthly
	}
	if sched.StartDate.IsZero() {
		sched.StartDate = time.Now()
	}
	sched.NextGeneration = services.NextGenerationDate(&sched, time.Now())
	if err := h.DB.Create(&sched).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_schedule", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, sched)
}

// Generate: POST /schedules/{id}/generate – forces one generation now.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "schedule", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	inv, err := h.Svc.Generate(r.Context(), id, tenantID, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Run: POST /schedules/process – processes every due schedule and reports each
// outcome.
func (h *ScheduleHandler) Run(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "schedule", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	results, err := h.Svc.ProcessDue(r.Context(), tenantID, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

// Deactivate: POST /schedules/{id}/deactivate
func (h *ScheduleHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionUpdate, "schedule", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	res := h.DB.Model(&models.InvoiceSchedule{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("is_active", false)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_schedule", nil)
		return
	}
	if res.RowsAffected == 0 {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
