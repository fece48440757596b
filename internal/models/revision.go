package models

import "time"

// Revision kinds.
const (
	RevisionCreation    = "CREATION"
	RevisionUpdate      = "UPDATE"
	RevisionApproval    = "APPROVAL"
	RevisionTransition  = "TRANSITION"
	RevisionTermination = "TERMINATION"
	RevisionOther       = "OTHER"
)

// Revision captures before/after snapshots of a mutated entity for historical
// reconstruction. PreviousData and NewData are JSON-encoded.
type Revision struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EntityType   string    `gorm:"not null;index:idx_revision_entity" json:"entity_type"`
	EntityID     uint      `gorm:"not null;index:idx_revision_entity" json:"entity_id"`
	RevisionType string    `gorm:"not null" json:"revision_type"`
	Description  string    `json:"description"`
	PreviousData string    `json:"previous_data"`
	NewData      string    `json:"new_data"`
	ChangedBy    uint      `json:"changed_by"`
	RevisionDate time.Time `gorm:"not null" json:"revision_date"`
	TenantID     uint      `gorm:"index" json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
}
