package services

import (
	"context"
	"errors"
	"time"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService applies money against invoices, drives payment verification
// and keeps invoice settlement and payment schedules consistent with the set
// of active payments.
type PaymentService struct {
	DB        *gorm.DB
	Status    *StatusService
	Revisions *RevisionService
	Audit     *AuditService
	Log       zerolog.Logger
}

func NewPaymentService(db *gorm.DB, status *StatusService, revisions *RevisionService, audit *AuditService, log zerolog.Logger) *PaymentService {
	return &PaymentService{DB: db, Status: status, Revisions: revisions, Audit: audit, Log: log}
}

type RecordPaymentInput struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	Reference       string          `json:"reference"`
	PaymentMethodID *uint           `json:"payment_method_id"`
	IsPartial       bool            `json:"is_partial"`
	BankName        string          `json:"bank_name"`
	AccountNumber   string          `json:"account_number"`
	TransactionID   string          `json:"transaction_id"`
	Notes           string          `json:"notes"`
	ScheduleIDs     []uint          `json:"schedule_ids"`
}

// Record applies a payment to an invoice. The amount must be positive, must
// not exceed the remaining balance, and a non-partial payment must cover the
// remaining balance exactly. A payment that completes coverage settles the
// invoice and moves it to PAID once the lifecycle allows it.
func (s *PaymentService) Record(ctx context.Context, invoiceID, tenantID uint, in RecordPaymentInput, actorID uint) (*models.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, workflow.ErrInvalidAmount
	}
	payment := &models.Payment{
		InvoiceID:       invoiceID,
		Amount:          in.Amount,
		PaymentDate:     in.PaymentDate,
		Reference:       in.Reference,
		PaymentMethodID: in.PaymentMethodID,
		IsPartial:       in.IsPartial,
		BankName:        in.BankName,
		AccountNumber:   in.AccountNumber,
		TransactionID:   in.TransactionID,
		Notes:           in.Notes,
	}
	if payment.Reference == "" {
		payment.Reference = uuid.NewString()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now()
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		if inv.IsPaid {
			return workflow.ErrAlreadyPaid
		}
		paid, err := activePaymentsTotal(tx, invoiceID, 0)
		if err != nil {
			return err
		}
		remaining := inv.RemainingBalance(paid)
		if in.Amount.GreaterThan(remaining) {
			return workflow.ErrOverPayment
		}
		if !in.IsPartial && !in.Amount.Equal(remaining) {
			return workflow.ErrUnderPayment
		}

		payment.TenantID = inv.TenantID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		if _, err := s.Status.ApplyPaymentTransitionTx(tx, payment, workflow.PaymentPending, actorID, "payment recorded"); err != nil {
			return err
		}
		if err := s.Revisions.Snapshot(tx, "payment", payment.ID, models.RevisionCreation,
			"payment recorded", nil, payment, actorID, inv.TenantID); err != nil {
			return err
		}

		if len(in.ScheduleIDs) > 0 {
			if err := s.linkSchedules(tx, payment, in.ScheduleIDs); err != nil {
				return err
			}
		}

		if paid.Add(in.Amount).GreaterThanOrEqual(inv.TotalAmount) {
			if err := s.settleInvoiceTx(tx, inv, actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "CREATE", "payment", payment.ID,
		"payment applied to invoice", map[string]any{"amount": in.Amount, "invoice_id": invoiceID}, payment.TenantID)
	return payment, nil
}

// Delete soft-deletes a payment and recomputes the invoice's settlement. A
// verified or refunded payment cannot be deleted. Losing full coverage
// reverses a PAID invoice back to APPROVED.
func (s *PaymentService) Delete(ctx context.Context, paymentID, tenantID uint, actorID uint) error {
	var payment models.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		switch payment.CurrentStatus {
		case string(workflow.PaymentVerified), string(workflow.PaymentRefunded):
			return workflow.ErrAlreadyResolved
		}
		inv, err := lockInvoice(tx, payment.InvoiceID, payment.TenantID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		if err := s.Revisions.Snapshot(tx, "payment", payment.ID, models.RevisionUpdate,
			"payment removed", payment, nil, actorID, payment.TenantID); err != nil {
			return err
		}

		paid, err := activePaymentsTotal(tx, inv.ID, 0)
		if err != nil {
			return err
		}
		if paid.LessThan(inv.TotalAmount) && inv.IsPaid {
			updates := map[string]any{"is_paid": false, "payment_date": nil}
			if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
				return err
			}
			inv.IsPaid = false
			inv.PaymentDate = nil
			if inv.CurrentStatus == string(workflow.InvoicePaid) {
				if _, err := s.Status.reverseInvoiceTx(tx, inv, workflow.InvoiceApproved, actorID,
					"payment removed, coverage lost"); err != nil {
					return err
				}
			}
		}
		return s.reconcileLinkedSchedules(tx, &payment, paymentID)
	})
	if err != nil {
		return err
	}
	s.Audit.Record(ctx, actorID, "DELETE", "payment", payment.ID, "payment removed", nil, payment.TenantID)
	return nil
}

// Verify marks a pending payment as verified and re-checks invoice
// settlement.
func (s *PaymentService) Verify(ctx context.Context, paymentID, tenantID uint, actorID uint, comments string) (*models.Payment, error) {
	return s.resolveVerification(ctx, paymentID, tenantID, workflow.PaymentVerified, actorID, comments)
}

// Reject marks a pending payment as rejected. A reason is required.
func (s *PaymentService) Reject(ctx context.Context, paymentID, tenantID uint, actorID uint, comments string) (*models.Payment, error) {
	if comments == "" {
		return nil, workflow.ErrMissingReason
	}
	return s.resolveVerification(ctx, paymentID, tenantID, workflow.PaymentRejected, actorID, comments)
}

func (s *PaymentService) resolveVerification(ctx context.Context, paymentID, tenantID uint, target workflow.Status, actorID uint, comments string) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		if _, err := s.Status.ApplyPaymentTransitionTx(tx, &payment, target, actorID, comments); err != nil {
			return err
		}
		if target != workflow.PaymentVerified {
			return nil
		}
		// VERIFIED re-evaluates settlement: coverage completed while the
		// invoice sat in an earlier status settles on the first verification
		// after approval.
		inv, err := lockInvoice(tx, payment.InvoiceID, payment.TenantID)
		if err != nil {
			return err
		}
		if inv.IsPaid {
			return nil
		}
		paid, err := activePaymentsTotal(tx, inv.ID, 0)
		if err != nil {
			return err
		}
		if paid.GreaterThanOrEqual(inv.TotalAmount) {
			return s.settleInvoiceTx(tx, inv, actorID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "VERIFY", "payment", payment.ID,
		"payment "+string(target), map[string]any{"status": target}, payment.TenantID)
	return &payment, nil
}

// settleInvoiceTx marks the invoice paid and emits a PAID status record when
// the lifecycle allows it. An invoice that has no legal path to PAID yet only
// accumulates balance; the payment itself is kept either way.
func (s *PaymentService) settleInvoiceTx(tx *gorm.DB, inv *models.Invoice, actorID uint) error {
	if inv.CurrentStatus != string(workflow.InvoicePaid) {
		if workflow.Validate(workflow.KindInvoice, currentPtr(inv.CurrentStatus), workflow.InvoicePaid) != nil {
			return nil
		}
		if _, err := s.Status.ApplyInvoiceTransitionTx(tx, inv, workflow.InvoicePaid, actorID,
			"payments cover the invoice total"); err != nil {
			return err
		}
	}
	if !inv.IsPaid {
		now := time.Now()
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
			Updates(map[string]any{"is_paid": true, "payment_date": now}).Error; err != nil {
			return err
		}
		inv.IsPaid = true
		inv.PaymentDate = &now
	}
	return nil
}

func (s *PaymentService) linkSchedules(tx *gorm.DB, payment *models.Payment, scheduleIDs []uint) error {
	var schedules []models.PaymentSchedule
	if err := tx.Where("id IN ? AND invoice_id = ?", scheduleIDs, payment.InvoiceID).Find(&schedules).Error; err != nil {
		return err
	}
	if len(schedules) != len(scheduleIDs) {
		return workflow.ErrNotFound
	}
	if err := tx.Model(payment).Association("Schedules").Append(&schedules); err != nil {
		return err
	}
	for i := range schedules {
		if err := ReconcileSchedule(tx, &schedules[i]); err != nil {
			return err
		}
	}
	return nil
}

// reconcileLinkedSchedules re-derives every schedule the payment touched.
// The association rows survive the payment's soft delete, which is what lets
// the reconcile see the schedule at all.
func (s *PaymentService) reconcileLinkedSchedules(tx *gorm.DB, payment *models.Payment, paymentID uint) error {
	var schedules []models.PaymentSchedule
	if err := tx.
		Joins("JOIN payment_schedule_payments psp ON psp.payment_schedule_id = payment_schedules.id").
		Where("psp.payment_id = ?", paymentID).
		Find(&schedules).Error; err != nil {
		return err
	}
	for i := range schedules {
		if err := ReconcileSchedule(tx, &schedules[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileSchedule re-derives one installment's paid amount and status from
// its linked active payments. Cancelled schedules are left alone.
func ReconcileSchedule(tx *gorm.DB, schedule *models.PaymentSchedule) error {
	if schedule.Status == models.ScheduleCancelled {
		return nil
	}
	var payments []models.Payment
	if err := tx.
		Joins("JOIN payment_schedule_payments psp ON psp.payment_id = payments.id").
		Where("psp.payment_schedule_id = ? AND payments.deleted_at IS NULL", schedule.ID).
		Find(&payments).Error; err != nil {
		return err
	}
	paid := decimal.Zero
	var latest *time.Time
	for _, p := range payments {
		paid = paid.Add(p.Amount)
		d := p.PaymentDate
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}

	status := models.SchedulePending
	var paymentDate *time.Time
	switch {
	case paid.GreaterThanOrEqual(schedule.Amount) && schedule.Amount.IsPositive():
		status = models.SchedulePaid
		paymentDate = latest
	case paid.IsPositive():
		status = models.SchedulePartiallyPaid
	case time.Now().After(schedule.DueDate):
		status = models.ScheduleOverdue
	}

	schedule.PaidAmount = paid
	schedule.Status = status
	schedule.PaymentDate = paymentDate
	return tx.Model(&models.PaymentSchedule{}).Where("id = ?", schedule.ID).Updates(map[string]any{
		"paid_amount":  paid,
		"status":       status,
		"payment_date": paymentDate,
	}).Error
}

// activePaymentsTotal sums non-deleted payments for an invoice, optionally
// excluding one payment id.
func activePaymentsTotal(tx *gorm.DB, invoiceID uint, excludeID uint) (decimal.Decimal, error) {
	var payments []models.Payment
	q := tx.Where("invoice_id = ?", invoiceID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}
