package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContractType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Code        string    `gorm:"not null;index" json:"code"` // PS, SUM, CON, OBR
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Contract is the root aggregate invoices hang off. Its lifecycle history
// lives in ContractStatusRecord; CurrentStatus mirrors the open record.
type Contract struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ContractNumber string        `gorm:"not null;index:idx_contract_number_tenant,unique" json:"contract_number"`
	Title          string        `gorm:"not null" json:"title"`
	Description    string        `json:"description"`
	ContractTypeID *uint         `json:"contract_type_id"`
	ContractType   *ContractType `gorm:"foreignKey:ContractTypeID" json:"contract_type,omitempty"`

	ContractorID   uint          `gorm:"not null;index" json:"contractor_id"` // user fulfilling the contract
	OrganizationID uint          `gorm:"not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	SupervisorID   *uint         `json:"supervisor_id"`

	Value     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"value"`
	Currency  string          `gorm:"size:3;default:'COP'" json:"currency"`
	StartDate time.Time       `gorm:"not null" json:"start_date"`
	EndDate   *time.Time      `json:"end_date"`
	SignDate  *time.Time      `json:"sign_date"`

	Objective    string `json:"objective"`
	Obligations  string `json:"obligations"`
	PaymentTerms string `json:"payment_terms"`

	CurrentStatus string `gorm:"index" json:"current_status"` // empty until first transition

	StatusRecords []ContractStatusRecord `gorm:"foreignKey:ContractID" json:"-"`
	Parties       []ContractParty        `gorm:"foreignKey:ContractID" json:"-"`
	Documents     []ContractDocument     `gorm:"foreignKey:ContractID" json:"-"`
	Invoices      []Invoice              `gorm:"foreignKey:ContractID" json:"-"`
	Schedules     []InvoiceSchedule      `gorm:"foreignKey:ContractID" json:"-"`

	TenantID  uint           `gorm:"index:idx_contract_number_tenant,unique;index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ContractStatusRecord is one entry of the contract status history. The open
// record (EndDate == nil) is the contract's current state.
type ContractStatusRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ContractID uint           `gorm:"not null;index" json:"contract_id"`
	Status     string         `gorm:"not null" json:"status"`
	StartDate  time.Time      `gorm:"not null" json:"start_date"`
	EndDate    *time.Time     `gorm:"index" json:"end_date"`
	Comments   string         `json:"comments"`
	ChangedBy  uint           `json:"changed_by"`
	TenantID   uint           `gorm:"index" json:"tenant_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Contract party roles.
const (
	PartyContractor = "CONTRACTOR"
	PartyClient     = "CLIENT"
	PartySupervisor = "SUPERVISOR"
	PartyGuarantor  = "GUARANTOR"
)

// ContractParty links an organization or user to a contract in a given role.
type ContractParty struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ContractID     uint   `gorm:"not null;index" json:"contract_id"`
	Role           string `gorm:"not null" json:"role"`
	OrganizationID *uint  `json:"organization_id"`
	UserID         *uint  `json:"user_id"`
	Notes          string `json:"notes"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ContractDocument is an attached document reference (the file itself lives
// in external storage; only the pointer is kept here).
type ContractDocument struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ContractID  uint   `gorm:"not null;index" json:"contract_id"`
	Name        string `gorm:"not null" json:"name"`
	DocumentURL string `gorm:"not null" json:"document_url"`
	ContentType string `json:"content_type"`
	UploadedBy  uint   `json:"uploaded_by"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
