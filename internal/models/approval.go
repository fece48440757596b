package models

import (
	"time"

	"gorm.io/gorm"
)

// Approval stages, in workflow order.
const (
	ApprovalReview    = "REVIEW"
	ApprovalFirst     = "FIRST_APPROVAL"
	ApprovalSecond    = "SECOND_APPROVAL"
	ApprovalFinancial = "FINANCIAL_APPROVAL"
	ApprovalFinal     = "FINAL_APPROVAL"
)

// Approval outcomes. PENDING moves to a terminal result exactly once.
const (
	ResultPending  = "PENDING"
	ResultApproved = "APPROVED"
	ResultRejected = "REJECTED"
	ResultReturned = "RETURNED"
)

// ApprovalStageRank orders stages so rejection handling can compare them.
var ApprovalStageRank = map[string]int{
	ApprovalReview:    0,
	ApprovalFirst:     1,
	ApprovalSecond:    2,
	ApprovalFinancial: 3,
	ApprovalFinal:     4,
}

// Approval is one reviewer's verdict on one approval stage of an invoice.
// At most one active approval exists per (invoice, approval_type).
type Approval struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	InvoiceID    uint       `gorm:"not null;index" json:"invoice_id"`
	ApprovalType string     `gorm:"not null" json:"approval_type"`
	ApproverID   uint       `gorm:"not null;index" json:"approver_id"`
	AssignedDate time.Time  `gorm:"not null" json:"assigned_date"`
	DueDate      *time.Time `json:"due_date"`
	Result       string     `gorm:"not null;default:'PENDING'" json:"result"`
	ApprovalDate *time.Time `json:"approval_date"`
	Comments     string     `json:"comments"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Resolved reports whether the approval already has a terminal result.
func (a *Approval) Resolved() bool { return a.Result != ResultPending }
