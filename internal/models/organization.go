package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization is both a tenant boundary and a contracting party. A user or
// contract always belongs to exactly one organization; cross-tenant reads are
// rejected at the service layer.
type Organization struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"not null" json:"name"`
	LegalName      string `json:"legal_name"`
	Identification string `gorm:"index" json:"identification"` // NIT or equivalent
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	Country        string `gorm:"default:'CO'" json:"country"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`

	Users []User `gorm:"foreignKey:TenantID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;uniqueIndex" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	RoleID       uint   `gorm:"index" json:"role_id"`
	Role         *Role  `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	TenantID  uint           `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
