package handlers

import (
	"net/http"

	"github.com/andinosoft/contracting/internal/gate"
	"github.com/andinosoft/contracting/internal/httpx"
	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type OrganizationHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewOrganizationHandler(db *gorm.DB, g *gate.Gate[uint]) *OrganizationHandler {
	return &OrganizationHandler{DB: db, Gate: g}
}

// List: GET /organizations
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	var orgs []models.Organization
	if err := h.DB.Where("is_active = ?", true).Order("name asc").Find(&orgs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_organizations", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orgs})
}

type organizationReq struct {
	Name           string `json:"name"`
	LegalName      string `json:"legal_name"`
	Identification string `json:"identification"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	Country        string `json:"country"`
}

// Create: POST /organizations
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "organization", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req organizationReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_fields", map[string]any{"required": []string{"name"}})
		return
	}
	org := models.Organization{
		Name:           req.Name,
		LegalName:      req.LegalName,
		Identification: req.Identification,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		Country:        req.Country,
		IsActive:       true,
	}
	if org.Country == "" {
		org.Country = "CO"
	}
	if err := h.DB.Create(&org).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_organization", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

// Get: GET /organizations/{id}
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var org models.Organization
	if err := h.DB.First(&org, id).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

type userReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleID    uint   `json:"role_id"`
}

// CreateUser: POST /organizations/{id}/users
func (h *OrganizationHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	orgID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Gate.Authorize(r.Context(), actorID, gate.ActionCreate, "user", nil); err != nil {
		writeServiceError(w, err)
		return
	}
	var req userReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_fields", map[string]any{"required": []string{"email", "password (min 8 chars)"}})
		return
	}
	var org models.Organization
	if err := h.DB.First(&org, orgID).Error; err != nil {
		writeServiceError(w, workflow.ErrNotFound)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_hash_password", nil)
		return
	}
	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleID:       req.RoleID,
		IsActive:     true,
		TenantID:     org.ID,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_already_registered", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// ListUsers: GET /organizations/{id}/users
func (h *OrganizationHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var users []models.User
	if err := h.DB.Preload("Role").Where("tenant_id = ?", orgID).Order("id asc").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": users})
}
