package services

import (
	"encoding/json"
	"time"

	"github.com/andinosoft/contracting/internal/models"

	"gorm.io/gorm"
)

// RevisionService captures before/after snapshots of mutated entities.
// Snapshots are written inside the caller's transaction so a failed mutation
// leaves no revision behind.
type RevisionService struct{}

func NewRevisionService() *RevisionService { return &RevisionService{} }

// Snapshot records a revision for entity inside tx. before may be nil for
// creations; after may be nil for deletions.
func (s *RevisionService) Snapshot(tx *gorm.DB, entityType string, entityID uint, revisionType, description string, before, after any, actorID, tenantID uint) error {
	rev := models.Revision{
		EntityType:   entityType,
		EntityID:     entityID,
		RevisionType: revisionType,
		Description:  description,
		ChangedBy:    actorID,
		RevisionDate: time.Now(),
		TenantID:     tenantID,
	}
	if before != nil {
		raw, err := json.Marshal(before)
		if err != nil {
			return err
		}
		rev.PreviousData = string(raw)
	}
	if after != nil {
		raw, err := json.Marshal(after)
		if err != nil {
			return err
		}
		rev.NewData = string(raw)
	}
	return tx.Create(&rev).Error
}
