package services

import (
	"context"
	"encoding/json"

	"github.com/andinosoft/contracting/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AuditService is the fire-and-forget audit sink. A failed audit write is
// logged and swallowed; it must never fail the primary operation.
type AuditService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

func NewAuditService(db *gorm.DB, log zerolog.Logger) *AuditService {
	return &AuditService{DB: db, Log: log}
}

func (s *AuditService) Record(ctx context.Context, actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any, tenantID uint) {
	entry := models.AuditLog{
		ActorID:     actorID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		TenantID:    tenantID,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = string(raw)
		}
	}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		s.Log.Error().Err(err).Str("entity_type", entityType).Uint("entity_id", entityID).Msg("audit write failed")
	}
}
