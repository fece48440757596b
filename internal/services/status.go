package services

import (
	"context"
	"errors"
	"time"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusService owns every status write. Each transition runs in one
// transaction: lock the aggregate row, validate against the locked
// CurrentStatus, close the open history record, insert the new open record,
// update CurrentStatus, then run the named cascades for that transition.
type StatusService struct {
	DB        *gorm.DB
	Revisions *RevisionService
	Audit     *AuditService
	Log       zerolog.Logger
}

func NewStatusService(db *gorm.DB, revisions *RevisionService, audit *AuditService, log zerolog.Logger) *StatusService {
	return &StatusService{DB: db, Revisions: revisions, Audit: audit, Log: log}
}

// forUpdate applies a row lock where the dialect supports one. SQLite
// serializes writers on its own and rejects FOR UPDATE outright.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func currentPtr(s string) *workflow.Status {
	if s == "" {
		return nil
	}
	ws := workflow.Status(s)
	return &ws
}

// ApplyInvoiceTransition moves an invoice to the requested status, recording
// history, revision and audit. Returns the new open status record.
func (s *StatusService) ApplyInvoiceTransition(ctx context.Context, invoiceID, tenantID uint, requested workflow.Status, actorID uint, comments string) (*models.InvoiceStatusRecord, error) {
	var rec *models.InvoiceStatusRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&inv, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		var err error
		rec, err = s.ApplyInvoiceTransitionTx(tx, &inv, requested, actorID, comments)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "TRANSITION", "invoice", invoiceID,
		"invoice moved to "+string(requested), map[string]any{"status": requested}, tenantID)
	return rec, nil
}

// ApplyInvoiceTransitionTx is the transaction-scoped form, used by services
// that cascade a transition inside their own transaction. The invoice must
// already be locked by the caller.
func (s *StatusService) ApplyInvoiceTransitionTx(tx *gorm.DB, inv *models.Invoice, requested workflow.Status, actorID uint, comments string) (*models.InvoiceStatusRecord, error) {
	if err := workflow.Validate(workflow.KindInvoice, currentPtr(inv.CurrentStatus), requested); err != nil {
		return nil, err
	}
	previous := inv.CurrentStatus
	now := time.Now()

	if err := closeOpenRecord(tx, &models.InvoiceStatusRecord{}, "invoice_id", inv.ID, now); err != nil {
		return nil, err
	}
	rec := &models.InvoiceStatusRecord{
		InvoiceID: inv.ID,
		Status:    string(requested),
		StartDate: now,
		Comments:  comments,
		ChangedBy: actorID,
		TenantID:  inv.TenantID,
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}

	updates := map[string]any{"current_status": string(requested)}
	// Named cascade: reaching PAID settles the invoice.
	if requested == workflow.InvoicePaid && !inv.IsPaid {
		updates["is_paid"] = true
		updates["payment_date"] = now
		inv.IsPaid = true
		inv.PaymentDate = &now
	}
	// The guard on the previous status turns a lost race into a retryable
	// conflict instead of a silently forked history.
	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND current_status = ?", inv.ID, previous).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, workflow.ErrConcurrentModification
	}
	inv.CurrentStatus = string(requested)

	if err := s.Revisions.Snapshot(tx, "invoice", inv.ID, models.RevisionTransition,
		"status "+previous+" -> "+string(requested),
		map[string]any{"status": previous},
		map[string]any{"status": string(requested)},
		actorID, inv.TenantID); err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyContractTransition moves a contract to the requested status.
func (s *StatusService) ApplyContractTransition(ctx context.Context, contractID, tenantID uint, requested workflow.Status, actorID uint, comments string) (*models.ContractStatusRecord, error) {
	var rec *models.ContractStatusRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Contract
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&c, contractID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		if err := workflow.Validate(workflow.KindContract, currentPtr(c.CurrentStatus), requested); err != nil {
			return err
		}
		previous := c.CurrentStatus
		now := time.Now()

		if err := closeOpenRecord(tx, &models.ContractStatusRecord{}, "contract_id", c.ID, now); err != nil {
			return err
		}
		rec = &models.ContractStatusRecord{
			ContractID: c.ID,
			Status:     string(requested),
			StartDate:  now,
			Comments:   comments,
			ChangedBy:  actorID,
			TenantID:   c.TenantID,
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Contract{}).
			Where("id = ? AND current_status = ?", c.ID, previous).
			Update("current_status", string(requested))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return workflow.ErrConcurrentModification
		}

		revType := models.RevisionTransition
		if requested == workflow.ContractTerminated {
			revType = models.RevisionTermination
		}
		return s.Revisions.Snapshot(tx, "contract", c.ID, revType,
			"status "+previous+" -> "+string(requested),
			map[string]any{"status": previous},
			map[string]any{"status": string(requested)},
			actorID, c.TenantID)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "TRANSITION", "contract", contractID,
		"contract moved to "+string(requested), map[string]any{"status": requested}, tenantID)
	return rec, nil
}

// ApplyPaymentTransition moves a payment through its verification lifecycle.
func (s *StatusService) ApplyPaymentTransition(ctx context.Context, paymentID, tenantID uint, requested workflow.Status, actorID uint, comments string) (*models.PaymentStatusRecord, error) {
	var rec *models.PaymentStatusRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&p, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		var err error
		rec, err = s.ApplyPaymentTransitionTx(tx, &p, requested, actorID, comments)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "TRANSITION", "payment", paymentID,
		"payment moved to "+string(requested), map[string]any{"status": requested}, tenantID)
	return rec, nil
}

// ApplyPaymentTransitionTx is the transaction-scoped form for callers that
// already hold the payment row.
func (s *StatusService) ApplyPaymentTransitionTx(tx *gorm.DB, p *models.Payment, requested workflow.Status, actorID uint, comments string) (*models.PaymentStatusRecord, error) {
	if err := workflow.Validate(workflow.KindPayment, currentPtr(p.CurrentStatus), requested); err != nil {
		return nil, err
	}
	previous := p.CurrentStatus
	now := time.Now()

	if err := closeOpenRecord(tx, &models.PaymentStatusRecord{}, "payment_id", p.ID, now); err != nil {
		return nil, err
	}
	rec := &models.PaymentStatusRecord{
		PaymentID: p.ID,
		Status:    string(requested),
		StartDate: now,
		Comments:  comments,
		ChangedBy: actorID,
		TenantID:  p.TenantID,
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}

	res := tx.Model(&models.Payment{}).
		Where("id = ? AND current_status = ?", p.ID, previous).
		Update("current_status", string(requested))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, workflow.ErrConcurrentModification
	}
	p.CurrentStatus = string(requested)

	if err := s.Revisions.Snapshot(tx, "payment", p.ID, models.RevisionTransition,
		"status "+previous+" -> "+string(requested),
		map[string]any{"status": previous},
		map[string]any{"status": string(requested)},
		actorID, p.TenantID); err != nil {
		return nil, err
	}
	return rec, nil
}

// reverseInvoiceTx writes a status record outside the transition table. Only
// the payment-reversal path uses it: losing full payment coverage sends a
// PAID invoice back to APPROVED, which the forward table deliberately forbids.
func (s *StatusService) reverseInvoiceTx(tx *gorm.DB, inv *models.Invoice, target workflow.Status, actorID uint, comments string) (*models.InvoiceStatusRecord, error) {
	previous := inv.CurrentStatus
	now := time.Now()

	if err := closeOpenRecord(tx, &models.InvoiceStatusRecord{}, "invoice_id", inv.ID, now); err != nil {
		return nil, err
	}
	rec := &models.InvoiceStatusRecord{
		InvoiceID: inv.ID,
		Status:    string(target),
		StartDate: now,
		Comments:  comments,
		ChangedBy: actorID,
		TenantID:  inv.TenantID,
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}
	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND current_status = ?", inv.ID, previous).
		Update("current_status", string(target))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, workflow.ErrConcurrentModification
	}
	inv.CurrentStatus = string(target)

	if err := s.Revisions.Snapshot(tx, "invoice", inv.ID, models.RevisionTransition,
		"reversal "+previous+" -> "+string(target),
		map[string]any{"status": previous},
		map[string]any{"status": string(target)},
		actorID, inv.TenantID); err != nil {
		return nil, err
	}
	return rec, nil
}

// closeOpenRecord stamps end_date on the aggregate's open history record.
// At most one open record exists per aggregate; the update is a no-op for a
// first transition.
func closeOpenRecord(tx *gorm.DB, model any, fkColumn string, id uint, endedAt time.Time) error {
	return tx.Model(model).
		Where(fkColumn+" = ? AND end_date IS NULL", id).
		Update("end_date", endedAt).Error
}
