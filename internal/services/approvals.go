package services

import (
	"context"
	"errors"
	"time"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ApprovalService assigns approval stages to reviewers and resolves them.
// Resolving an approval may advance or reject the invoice; those cascades are
// explicit, named steps that run in the same transaction as the resolution.
type ApprovalService struct {
	DB        *gorm.DB
	Status    *StatusService
	Revisions *RevisionService
	Audit     *AuditService
	Log       zerolog.Logger
}

func NewApprovalService(db *gorm.DB, status *StatusService, revisions *RevisionService, audit *AuditService, log zerolog.Logger) *ApprovalService {
	return &ApprovalService{DB: db, Status: status, Revisions: revisions, Audit: audit, Log: log}
}

type AssignInput struct {
	ApprovalType string     `json:"approval_type"`
	ApproverID   uint       `json:"approver_id"`
	DueDate      *time.Time `json:"due_date"`
}

// Assign creates a pending approval for an invoice stage. At most one active
// approval may exist per (invoice, approval_type).
func (s *ApprovalService) Assign(ctx context.Context, invoiceID, tenantID uint, in AssignInput, actorID uint) (*models.Approval, error) {
	if _, ok := models.ApprovalStageRank[in.ApprovalType]; !ok {
		return nil, workflow.ErrInvalidStage
	}
	approval := &models.Approval{
		InvoiceID:    invoiceID,
		ApprovalType: in.ApprovalType,
		ApproverID:   in.ApproverID,
		AssignedDate: time.Now(),
		DueDate:      in.DueDate,
		Result:       models.ResultPending,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Approval{}).
			Where("invoice_id = ? AND approval_type = ?", invoiceID, in.ApprovalType).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return workflow.ErrDuplicateApproval
		}
		approval.TenantID = inv.TenantID
		if err := tx.Create(approval).Error; err != nil {
			return err
		}
		return s.Revisions.Snapshot(tx, "approval", approval.ID, models.RevisionCreation,
			"approval assigned", nil, approval, actorID, inv.TenantID)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "CREATE", "approval", approval.ID,
		"approval "+in.ApprovalType+" assigned", map[string]any{"approver_id": in.ApproverID}, approval.TenantID)
	return approval, nil
}

type ResolveInput struct {
	Result   string `json:"result"`
	Comments string `json:"comments"`
}

// Resolve records the assigned approver's verdict. An approval resolves
// exactly once; rejection requires a comment. After the write the approval
// cascade runs against the invoice.
func (s *ApprovalService) Resolve(ctx context.Context, approvalID, tenantID uint, in ResolveInput, actorID uint) (*models.Approval, error) {
	switch in.Result {
	case models.ResultApproved, models.ResultRejected, models.ResultReturned:
	default:
		return nil, workflow.ErrInvalidResult
	}
	if in.Result == models.ResultRejected && in.Comments == "" {
		return nil, workflow.ErrMissingReason
	}

	var approval models.Approval
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&approval, approvalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		if approval.ApproverID != actorID {
			return workflow.ErrForbidden
		}
		if approval.Resolved() {
			return workflow.ErrAlreadyResolved
		}
		inv, err := lockInvoice(tx, approval.InvoiceID, approval.TenantID)
		if err != nil {
			return err
		}

		before := approval
		now := time.Now()
		approval.Result = in.Result
		approval.ApprovalDate = &now
		approval.Comments = in.Comments
		if err := tx.Save(&approval).Error; err != nil {
			return err
		}
		if err := s.Revisions.Snapshot(tx, "approval", approval.ID, models.RevisionApproval,
			"approval resolved "+in.Result, before, approval, actorID, approval.TenantID); err != nil {
			return err
		}
		return s.runApprovalCascade(tx, inv, &approval, actorID)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "APPROVE", "approval", approval.ID,
		"approval resolved "+in.Result, map[string]any{"result": in.Result}, approval.TenantID)
	return &approval, nil
}

// runApprovalCascade advances or rejects the invoice after an approval
// resolves. Pending approvals of a later stage never block an earlier stage's
// outcome; only peers at the same or an earlier stage do.
func (s *ApprovalService) runApprovalCascade(tx *gorm.DB, inv *models.Invoice, resolved *models.Approval, actorID uint) error {
	rank := models.ApprovalStageRank[resolved.ApprovalType]

	var approvals []models.Approval
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&approvals).Error; err != nil {
		return err
	}
	pendingAtOrBefore := 0
	rejected := false
	for _, a := range approvals {
		if a.Result == models.ResultPending && models.ApprovalStageRank[a.ApprovalType] <= rank {
			pendingAtOrBefore++
		}
		if a.Result == models.ResultRejected {
			rejected = true
		}
	}
	if pendingAtOrBefore > 0 {
		return nil
	}

	if rejected {
		if inv.CurrentStatus == string(workflow.InvoiceRejected) {
			return nil
		}
		_, err := s.Status.ApplyInvoiceTransitionTx(tx, inv, workflow.InvoiceRejected, actorID,
			"rejected at "+resolved.ApprovalType)
		return err
	}

	if resolved.Result != models.ResultApproved {
		return nil
	}
	switch {
	case resolved.ApprovalType == models.ApprovalFirst && inv.CurrentStatus == string(workflow.InvoiceReview):
		_, err := s.Status.ApplyInvoiceTransitionTx(tx, inv, workflow.InvoicePendingApproval, actorID,
			"first approval granted")
		return err
	case resolved.ApprovalType == models.ApprovalFinal && inv.CurrentStatus == string(workflow.InvoicePendingApproval):
		_, err := s.Status.ApplyInvoiceTransitionTx(tx, inv, workflow.InvoiceApproved, actorID,
			"final approval granted")
		return err
	}
	return nil
}
