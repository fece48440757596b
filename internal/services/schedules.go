package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScheduleService generates recurring invoices from contract schedules.
type ScheduleService struct {
	DB        *gorm.DB
	Status    *StatusService
	Items     *InvoiceItemService
	Revisions *RevisionService
	Audit     *AuditService
	Log       zerolog.Logger
}

func NewScheduleService(db *gorm.DB, status *StatusService, items *InvoiceItemService, revisions *RevisionService, audit *AuditService, log zerolog.Logger) *ScheduleService {
	return &ScheduleService{DB: db, Status: status, Items: items, Revisions: revisions, Audit: audit, Log: log}
}

// NextGenerationDate computes when the schedule should generate next, or nil
// when the schedule's end date has passed. The first generation happens at
// StartDate. For month-based kinds DayOfMonth is clamped to 28 so the date
// exists in every month.
func NextGenerationDate(s *models.InvoiceSchedule, from time.Time) *time.Time {
	if s.LastGenerated == nil {
		start := s.StartDate
		if s.EndDate != nil && start.After(*s.EndDate) {
			return nil
		}
		return &start
	}
	base := *s.LastGenerated

	var next time.Time
	switch s.ScheduleType {
	case models.ScheduleWeekly:
		next = base.AddDate(0, 0, 7)
	case models.ScheduleBiweekly:
		next = base.AddDate(0, 0, 14)
	case models.ScheduleBimonthly:
		next = addMonthsClamped(base, 2, s.DayOfMonth)
	case models.ScheduleQuarterly:
		next = addMonthsClamped(base, 3, s.DayOfMonth)
	case models.ScheduleSemiannual:
		next = addMonthsClamped(base, 6, s.DayOfMonth)
	case models.ScheduleAnnual:
		next = base.AddDate(1, 0, 0)
	case models.ScheduleCustom:
		days := int(s.CustomDays)
		if days <= 0 {
			days = 30
		}
		next = base.AddDate(0, 0, days)
	default: // MONTHLY
		next = addMonthsClamped(base, 1, s.DayOfMonth)
	}

	if s.EndDate != nil && next.After(*s.EndDate) {
		return nil
	}
	return &next
}

func addMonthsClamped(base time.Time, months int, dayOfMonth uint) time.Time {
	day := base.Day()
	if dayOfMonth > 0 {
		day = int(dayOfMonth)
	}
	if day > 28 {
		day = 28
	}
	y, m, _ := base.Date()
	return time.Date(y, m+time.Month(months), day, base.Hour(), base.Minute(), 0, 0, base.Location())
}

// Generate creates one invoice from the schedule: a single aggregate item for
// the schedule's value, an invoice number derived from the period and
// contract, a DRAFT opening record, and the auto-approve chain when the
// schedule asks for it.
func (s *ScheduleService) Generate(ctx context.Context, scheduleID, tenantID uint, actorID uint) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sched models.InvoiceSchedule
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&sched, scheduleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		var contract models.Contract
		if err := tx.Where("tenant_id = ?", sched.TenantID).First(&contract, sched.ContractID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}

		now := time.Now()
		var seq int64
		if err := tx.Model(&models.Invoice{}).Where("contract_id = ?", contract.ID).Count(&seq).Error; err != nil {
			return err
		}
		number := fmt.Sprintf("%s-%03d-%s", now.Format("2006-01"), seq+1, contract.ContractNumber)

		periodStart := sched.StartDate
		if sched.LastGenerated != nil {
			periodStart = *sched.LastGenerated
		}
		inv = &models.Invoice{
			InvoiceNumber: number,
			Title:         fmt.Sprintf("%s (%s)", sched.Name, now.Format("2006-01")),
			ContractID:    &contract.ID,
			IssuerID:      contract.ContractorID,
			RecipientType: models.RecipientOrganization,
			RecipientOrganizationID: &contract.OrganizationID,
			IssueDate:     now,
			DueDate:       now.AddDate(0, 0, 30),
			PeriodStart:   &periodStart,
			PeriodEnd:     &now,
			Currency:      contract.Currency,
			Notes:         sched.Description,
			TenantID:      sched.TenantID,
		}
		if err := tx.Create(inv).Error; err != nil {
			return err
		}

		item := &models.InvoiceItem{
			InvoiceID:   inv.ID,
			Description: sched.Name,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   sched.Value,
			TenantID:    sched.TenantID,
		}
		ComputeItemAmounts(item)
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		if err := RecomputeInvoiceTotals(tx, inv); err != nil {
			return err
		}

		if _, err := s.Status.ApplyInvoiceTransitionTx(tx, inv, workflow.InvoiceDraft, actorID,
			"generated from schedule "+sched.Name); err != nil {
			return err
		}
		if sched.AutoApprove {
			if err := s.autoApproveChain(tx, inv, actorID); err != nil {
				return err
			}
		}

		next := NextGenerationDate(&models.InvoiceSchedule{
			ScheduleType:  sched.ScheduleType,
			StartDate:     sched.StartDate,
			EndDate:       sched.EndDate,
			CustomDays:    sched.CustomDays,
			DayOfMonth:    sched.DayOfMonth,
			LastGenerated: &now,
		}, now)
		updates := map[string]any{"last_generated": now, "next_generation": next}
		if err := tx.Model(&models.InvoiceSchedule{}).Where("id = ?", sched.ID).Updates(updates).Error; err != nil {
			return err
		}

		return s.Revisions.Snapshot(tx, "invoice", inv.ID, models.RevisionCreation,
			"invoice generated from schedule", nil, inv, actorID, sched.TenantID)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "CREATE", "invoice", inv.ID,
		"recurring invoice generated", map[string]any{"schedule_id": scheduleID}, tenantID)
	return inv, nil
}

// autoApproveChain walks a generated invoice straight to APPROVED without
// creating Approval rows. Each hop still goes through the validator, so the
// full history is recorded hop by hop.
func (s *ScheduleService) autoApproveChain(tx *gorm.DB, inv *models.Invoice, actorID uint) error {
	chain := []workflow.Status{
		workflow.InvoiceSubmitted,
		workflow.InvoiceReview,
		workflow.InvoicePendingApproval,
		workflow.InvoiceApproved,
	}
	for _, next := range chain {
		if _, err := s.Status.ApplyInvoiceTransitionTx(tx, inv, next, actorID, "auto-approved by schedule"); err != nil {
			return err
		}
	}
	return nil
}

// BatchResult reports one schedule's outcome from a generation run.
type BatchResult struct {
	ScheduleID uint   `json:"schedule_id"`
	InvoiceID  uint   `json:"invoice_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProcessDue generates invoices for every active auto-generating schedule of
// the tenant whose next generation date has arrived. One schedule failing does
// not stop the rest; each outcome lands in the report.
func (s *ScheduleService) ProcessDue(ctx context.Context, tenantID, actorID uint) ([]BatchResult, error) {
	now := time.Now()
	var due []models.InvoiceSchedule
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("is_active = ? AND is_auto_generate = ?", true, true).
		Where("(next_generation IS NOT NULL AND next_generation <= ?) OR (next_generation IS NULL AND last_generated IS NULL AND start_date <= ?)", now, now).
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(due))
	for _, sched := range due {
		res := BatchResult{ScheduleID: sched.ID}
		inv, genErr := s.Generate(ctx, sched.ID, sched.TenantID, actorID)
		if genErr != nil {
			res.Error = genErr.Error()
			s.Log.Warn().Err(genErr).Uint("schedule_id", sched.ID).Msg("schedule generation failed")
		} else {
			res.InvoiceID = inv.ID
		}
		results = append(results, res)
	}
	return results, nil
}
