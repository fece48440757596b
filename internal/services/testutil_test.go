package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	appdb "github.com/andinosoft/contracting/internal/db"
	"github.com/andinosoft/contracting/internal/logger"
	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database. A single connection keeps
// concurrent transactions serialized the way row locks do on postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	for _, m := range appdb.AllModels() {
		require.NoError(t, db.AutoMigrate(m))
	}
	return db
}

type testStack struct {
	DB        *gorm.DB
	Status    *StatusService
	Items     *InvoiceItemService
	Approvals *ApprovalService
	Payments  *PaymentService
	Schedules *ScheduleService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db := newTestDB(t)
	log := logger.WithComponent("test")
	revisions := NewRevisionService()
	audit := NewAuditService(db, log)
	status := NewStatusService(db, revisions, audit, log)
	items := NewInvoiceItemService(db, revisions, audit)
	return &testStack{
		DB:        db,
		Status:    status,
		Items:     items,
		Approvals: NewApprovalService(db, status, revisions, audit, log),
		Payments:  NewPaymentService(db, status, revisions, audit, log),
		Schedules: NewScheduleService(db, status, items, revisions, audit, log),
	}
}

func createContract(t *testing.T, db *gorm.DB, tenantID uint) *models.Contract {
	t.Helper()
	c := &models.Contract{
		ContractNumber: fmt.Sprintf("CT-%d-%d", tenantID, time.Now().UnixNano()),
		Title:          "Professional services",
		ContractorID:   1,
		OrganizationID: tenantID,
		Value:          decimal.NewFromInt(10000),
		Currency:       "COP",
		StartDate:      time.Now().AddDate(0, -1, 0),
		TenantID:       tenantID,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// createInvoice creates an invoice in DRAFT with one item whose total equals
// the given amount.
func createInvoice(t *testing.T, s *testStack, tenantID uint, amount decimal.Decimal) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		InvoiceNumber: fmt.Sprintf("INV-%d-%d", tenantID, time.Now().UnixNano()),
		Title:         "Monthly services",
		IssuerID:      1,
		RecipientType: models.RecipientOrganization,
		IssueDate:     time.Now(),
		DueDate:       time.Now().AddDate(0, 0, 30),
		Currency:      "COP",
		TenantID:      tenantID,
	}
	require.NoError(t, s.DB.Create(inv).Error)
	_, err := s.Status.ApplyInvoiceTransition(context.Background(), inv.ID, tenantID, workflow.InvoiceDraft, 1, "created")
	require.NoError(t, err)
	_, err = s.Items.Create(context.Background(), inv.ID, tenantID, ItemInput{
		Description: "Services rendered",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount,
	}, 1)
	require.NoError(t, err)
	require.NoError(t, s.DB.First(inv, inv.ID).Error)
	return inv
}

// approveInvoice walks an invoice from DRAFT to APPROVED.
func approveInvoice(t *testing.T, s *testStack, invoiceID, tenantID uint) {
	t.Helper()
	for _, next := range []workflow.Status{
		workflow.InvoiceSubmitted,
		workflow.InvoiceReview,
		workflow.InvoicePendingApproval,
		workflow.InvoiceApproved,
	} {
		_, err := s.Status.ApplyInvoiceTransition(context.Background(), invoiceID, tenantID, next, 1, "")
		require.NoError(t, err)
	}
}

func openRecordCount(t *testing.T, db *gorm.DB, invoiceID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.InvoiceStatusRecord{}).
		Where("invoice_id = ? AND end_date IS NULL", invoiceID).Count(&n).Error)
	return n
}
