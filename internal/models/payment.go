package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Code        string `gorm:"not null;index" json:"code"` // TRANSFER, CHECK, CASH, CARD
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payment applies money against an invoice's balance. Its verification
// lifecycle (PENDING → VERIFIED/REJECTED, VERIFIED → REFUNDED) lives in
// PaymentStatusRecord with the same one-open-record rule as the other
// aggregates.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	InvoiceID       uint            `gorm:"not null;index" json:"invoice_id"`
	Invoice         *Invoice        `gorm:"foreignKey:InvoiceID" json:"-"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	Reference       string          `json:"reference"`
	PaymentMethodID *uint           `json:"payment_method_id"`
	IsPartial       bool            `gorm:"default:false" json:"is_partial"`

	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	TransactionID string `json:"transaction_id"`
	Notes         string `json:"notes"`

	CurrentStatus string `gorm:"index" json:"current_status"`

	StatusRecords []PaymentStatusRecord `gorm:"foreignKey:PaymentID" json:"-"`
	Withholdings  []Withholding         `gorm:"foreignKey:PaymentID" json:"-"`
	Schedules     []PaymentSchedule     `gorm:"many2many:payment_schedule_payments" json:"-"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type PaymentStatusRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	PaymentID uint           `gorm:"not null;index" json:"payment_id"`
	Status    string         `gorm:"not null" json:"status"`
	StartDate time.Time      `gorm:"not null" json:"start_date"`
	EndDate   *time.Time     `gorm:"index" json:"end_date"`
	Comments  string         `json:"comments"`
	ChangedBy uint           `json:"changed_by"`
	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Withholding kinds.
const (
	WithholdingTax            = "TAX"
	WithholdingSocialSecurity = "SOCIAL_SECURITY"
	WithholdingPension        = "PENSION"
	WithholdingOther          = "OTHER"
)

// Withholding is a tax or deduction line applied to a payment.
type Withholding struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PaymentID       uint            `gorm:"not null;index" json:"payment_id"`
	Name            string          `gorm:"not null" json:"name"`
	Code            string          `gorm:"not null" json:"code"`
	Percentage      decimal.Decimal `gorm:"type:decimal(6,2)" json:"percentage"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	WithholdingType string          `gorm:"not null;default:'TAX'" json:"withholding_type"`
	Description     string          `json:"description"`
	TenantID        uint            `gorm:"index" json:"tenant_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Payment schedule (installment) statuses, recomputed from paid amount and
// due date — never set by hand.
const (
	SchedulePending       = "PENDING"
	SchedulePartiallyPaid = "PARTIALLY_PAID"
	SchedulePaid          = "PAID"
	ScheduleOverdue       = "OVERDUE"
	ScheduleCancelled     = "CANCELLED"
)

// PaymentSchedule is one installment of an invoice's payment plan. PaidAmount
// is derived from the linked active payments.
type PaymentSchedule struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	InvoiceID         uint            `gorm:"not null;index" json:"invoice_id"`
	DueDate           time.Time       `gorm:"not null" json:"due_date"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status            string          `gorm:"not null;default:'PENDING'" json:"status"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(15,2)" json:"paid_amount"`
	PaymentDate       *time.Time      `json:"payment_date"`
	InstallmentNumber uint            `gorm:"default:1" json:"installment_number"`
	TotalInstallments uint            `gorm:"default:1" json:"total_installments"`
	Notes             string          `json:"notes"`

	Payments []Payment `gorm:"many2many:payment_schedule_payments" json:"-"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
