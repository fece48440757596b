package models

import "time"

// AuditLog is a fire-and-forget trail entry. Writing it must never fail the
// primary operation.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ActorID     uint      `gorm:"index" json:"actor_id"`
	Action      string    `gorm:"not null" json:"action"` // CREATE, UPDATE, DELETE, TRANSITION, APPROVE, REJECT, VERIFY
	EntityType  string    `gorm:"not null;index" json:"entity_type"`
	EntityID    uint      `gorm:"index" json:"entity_id"`
	Description string    `json:"description"`
	Metadata    string    `json:"metadata"` // JSON-encoded
	TenantID    uint      `gorm:"index" json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
}
