package service

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/pkg/logger"
)

type AuditService interface {
	Auditor
	History(entityType string, entityID uint) ([]model.AuditLog, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

type auditDetail struct {
	Old map[string]interface{} `json:"old,omitempty"`
	New map[string]interface{} `json:"new,omitempty"`
}

// Record persists entry. Failures are logged and swallowed.
func (s *auditService) Record(entry AuditEntry) {
	detail, err := json.Marshal(auditDetail{Old: entry.OldValues, New: entry.NewValues})
	if err != nil {
		logger.Error("Failed to marshal audit detail", err, map[string]interface{}{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
		})
		detail = nil
	}

	log := &model.AuditLog{
		ActorID:       entry.ActorID,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		ChangedFields: changedFields(entry.OldValues, entry.NewValues),
		Detail:        string(detail),
	}
	if err := s.repo.Create(log); err != nil {
		logger.Error("Failed to record audit log", err, map[string]interface{}{
			"action":      entry.Action,
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
		})
	}
}

func (s *auditService) History(entityType string, entityID uint) ([]model.AuditLog, error) {
	return s.repo.FindByEntity(entityType, entityID)
}

// changedFields returns the sorted keys whose values differ between old and new.
func changedFields(oldValues, newValues map[string]interface{}) []string {
	keys := make(map[string]struct{}, len(oldValues)+len(newValues))
	for k := range oldValues {
		keys[k] = struct{}{}
	}
	for k := range newValues {
		keys[k] = struct{}{}
	}

	changed := make([]string, 0, len(keys))
	for k := range keys {
		oldV, inOld := oldValues[k]
		newV, inNew := newValues[k]
		if inOld != inNew || fmt.Sprint(oldV) != fmt.Sprint(newV) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
