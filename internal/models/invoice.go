package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipient of an invoice: an organization, a user, or an external name.
const (
	RecipientOrganization = "ORGANIZATION"
	RecipientUser         = "USER"
	RecipientExternal     = "EXTERNAL"
)

// Invoice is a "cuenta de cobro". Subtotal, tax, discount and total are
// derived from the active items and must never be hand-set once items exist;
// the item service recomputes them on every item write.
type Invoice struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InvoiceNumber string    `gorm:"not null;index:idx_invoice_number_tenant,unique" json:"invoice_number"`
	Title         string    `gorm:"not null" json:"title"`
	ContractID    *uint     `gorm:"index" json:"contract_id"`
	Contract      *Contract `gorm:"foreignKey:ContractID" json:"-"`
	IssuerID      uint      `gorm:"not null;index" json:"issuer_id"`

	RecipientType           string `gorm:"not null;default:'ORGANIZATION'" json:"recipient_type"`
	RecipientOrganizationID *uint  `json:"recipient_organization_id"`
	RecipientUserID         *uint  `json:"recipient_user_id"`
	RecipientName           string `json:"recipient_name"`
	RecipientIdentification string `json:"recipient_identification"`

	IssueDate   time.Time  `gorm:"not null" json:"issue_date"`
	DueDate     time.Time  `gorm:"not null" json:"due_date"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2)" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(15,2)" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_amount"`
	Currency       string          `gorm:"size:3;default:'COP'" json:"currency"`

	Notes        string     `json:"notes"`
	PaymentTerms string     `json:"payment_terms"`
	Reference    string     `json:"reference"`
	IsPaid       bool       `gorm:"default:false" json:"is_paid"`
	PaymentDate  *time.Time `json:"payment_date"`

	CurrentStatus string `gorm:"index" json:"current_status"` // empty until first transition

	Items            []InvoiceItem         `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	StatusRecords    []InvoiceStatusRecord `gorm:"foreignKey:InvoiceID" json:"-"`
	Approvals        []Approval            `gorm:"foreignKey:InvoiceID" json:"-"`
	Payments         []Payment             `gorm:"foreignKey:InvoiceID" json:"-"`
	PaymentSchedules []PaymentSchedule     `gorm:"foreignKey:InvoiceID" json:"-"`

	TenantID  uint           `gorm:"index:idx_invoice_number_tenant,unique;index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RemainingBalance is total minus the given paid sum. Callers compute the
// paid sum over active payments.
func (inv *Invoice) RemainingBalance(totalPaid decimal.Decimal) decimal.Decimal {
	return inv.TotalAmount.Sub(totalPaid)
}

// InvoiceItem carries its own derived amounts so invoice aggregation is a
// plain sum over active items.
type InvoiceItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	InvoiceID   uint   `gorm:"not null;index" json:"invoice_id"`
	Description string `gorm:"not null" json:"description"`

	Quantity           decimal.Decimal `gorm:"type:decimal(15,2);default:1" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(15,2)" json:"unit_price"`
	TaxPercentage      decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_percentage"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(15,2)" json:"tax_amount"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2)" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(15,2)" json:"discount_amount"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(15,2)" json:"subtotal"`
	Total              decimal.Decimal `gorm:"type:decimal(15,2)" json:"total"`

	ContractItem string `json:"contract_item"`
	Notes        string `json:"notes"`
	OrderIndex   uint   `gorm:"default:0" json:"order_index"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// InvoiceStatusRecord is one entry of the invoice status history. The open
// record (EndDate == nil) is the invoice's current state.
type InvoiceStatusRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	InvoiceID uint           `gorm:"not null;index" json:"invoice_id"`
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
