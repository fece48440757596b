package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	appdb "github.com/andinosoft/contracting/internal/db"
	"github.com/andinosoft/contracting/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupServerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	for _, m := range appdb.AllModels() {
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

// seedActor creates an organization and an admin user inside it.
func seedActor(t *testing.T, db *gorm.DB) (models.Organization, models.User) {
	t.Helper()
	org := models.Organization{Name: "Alcaldía de Prueba", IsActive: true}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("org: %v", err)
	}
	role := models.Role{Name: "admin"}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	user := models.User{Email: "admin@test", PasswordHash: "x", RoleID: role.ID, IsActive: true, TenantID: org.ID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return org, user
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, actor, tenant uint) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != 0 {
		req.Header.Set("X-Actor-ID", fmt.Sprint(actor))
	}
	if tenant != 0 {
		req.Header.Set("X-Tenant-ID", fmt.Sprint(tenant))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	db := setupServerTestDB(t)
	h := New(db)

	for _, path := range []string{"/health", "/healthz"} {
		rr := doJSON(t, h, http.MethodGet, path, nil, 0, 0)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	db := setupServerTestDB(t)
	org, admin := seedActor(t, db)
	h := New(db)

	// create an invoice with one item
	rr := doJSON(t, h, http.MethodPost, "/invoices", map[string]any{
		"invoice_number": "INV-001",
		"title":          "Servicios enero",
		"items": []map[string]any{
			{"description": "Servicios", "quantity": "2", "unit_price": "100", "tax_percentage": "10"},
		},
	}, admin.ID, org.ID)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create invoice status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var created models.Invoice
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if created.CurrentStatus != "DRAFT" {
		t.Fatalf("current_status = %q, want DRAFT", created.CurrentStatus)
	}
	if created.TotalAmount.String() != "220" {
		t.Fatalf("total_amount = %s, want 220", created.TotalAmount)
	}

	// legal transition
	rr = doJSON(t, h, http.MethodPost, fmt.Sprintf("/invoices/%d/status", created.ID),
		map[string]any{"status": "SUBMITTED"}, admin.ID, org.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("transition status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// illegal transition is a 400 naming the allowed set
	rr = doJSON(t, h, http.MethodPost, fmt.Sprintf("/invoices/%d/status", created.ID),
		map[string]any{"status": "PAID"}, admin.ID, org.ID)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("illegal transition status = %d, want 400", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("invalid_transition")) {
		t.Fatalf("body = %s, want invalid_transition error", rr.Body.String())
	}

	// full history with the DRAFT record closed
	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/invoices/%d/status/history", created.ID), nil, admin.ID, org.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}
	var history struct {
		Items []models.InvoiceStatusRecord `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Items) != 2 {
		t.Fatalf("history length = %d, want 2", len(history.Items))
	}
	if history.Items[0].EndDate == nil || history.Items[1].EndDate != nil {
		t.Fatalf("want first record closed and second open: %+v", history.Items)
	}
}

func TestMissingIdentityIsRejected(t *testing.T) {
	db := setupServerTestDB(t)
	h := New(db)

	rr := doJSON(t, h, http.MethodPost, "/invoices", map[string]any{"invoice_number": "X", "title": "Y"}, 0, 1)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/invoices", nil, 1, 0)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing tenant", rr.Code)
	}
}

func TestTenantIsolation(t *testing.T) {
	db := setupServerTestDB(t)
	org, admin := seedActor(t, db)
	h := New(db)

	rr := doJSON(t, h, http.MethodPost, "/invoices", map[string]any{
		"invoice_number": "INV-100", "title": "Propia",
	}, admin.ID, org.ID)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	var created models.Invoice
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// another tenant cannot see it
	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/invoices/%d", created.ID), nil, admin.ID, org.ID+1)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant read status = %d, want 404", rr.Code)
	}

	// nor move it through its lifecycle
	rr = doJSON(t, h, http.MethodPost, fmt.Sprintf("/invoices/%d/status", created.ID), map[string]any{
		"status": "SUBMITTED",
	}, admin.ID, org.ID+1)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant transition status = %d, want 404", rr.Code)
	}
	var fresh models.Invoice
	if err := db.First(&fresh, created.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.CurrentStatus != "DRAFT" {
		t.Fatalf("invoice status = %s, want DRAFT", fresh.CurrentStatus)
	}
}
