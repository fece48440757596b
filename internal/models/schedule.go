package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recurrence kinds for invoice generation.
const (
	ScheduleWeekly     = "WEEKLY"
	ScheduleBiweekly   = "BIWEEKLY"
	ScheduleMonthly    = "MONTHLY"
	ScheduleBimonthly  = "BIMONTHLY"
	ScheduleQuarterly  = "QUARTERLY"
	ScheduleSemiannual = "SEMIANNUAL"
	ScheduleAnnual     = "ANNUAL"
	ScheduleCustom     = "CUSTOM"
)

// InvoiceSchedule drives recurring invoice generation for a contract.
type InvoiceSchedule struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ContractID   uint      `gorm:"not null;index" json:"contract_id"`
	Contract     *Contract `gorm:"foreignKey:ContractID" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	Description  string    `json:"description"`
	ScheduleType string    `gorm:"not null" json:"schedule_type"`

	StartDate  time.Time  `gorm:"not null" json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	CustomDays uint       `json:"custom_days"`   // for CUSTOM
	DayOfMonth uint       `json:"day_of_month"`  // clamped to 28 for monthly kinds

	IsAutoGenerate bool `gorm:"default:true" json:"is_auto_generate"`
	// AutoApprove skips the human approval workflow entirely for generated
	// invoices; see ScheduleService.autoApproveChain.
	AutoApprove bool `gorm:"default:false" json:"auto_approve"`
	IsActive    bool `gorm:"default:true" json:"is_active"`

	LastGenerated  *time.Time `json:"last_generated"`
	NextGeneration *time.Time `json:"next_generation"`

	Value decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"value"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
