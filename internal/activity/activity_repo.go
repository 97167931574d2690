package activity

import (
	"log"

	"gorm.io/gorm"
)

// Writer is the append-only side of the audit trail. Controllers call Record
// after a successful mutation; a failed audit insert is logged but never
// fails the parent operation.
type Writer interface {
	Record(action, entityType string, entityID uint, description, actor string)
}

type ActivityRepository interface {
	Writer
	GetLogs(page, pageSize int, entityType string) ([]ActivityLog, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Record(action, entityType string, entityID uint, description, actor string) {
	entry := ActivityLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Actor:       actor,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Printf("activity log write failed (%s %s #%d): %v", action, entityType, entityID, err)
	}
}

func (r *activityRepository) GetLogs(page, pageSize int, entityType string) ([]ActivityLog, int64, error) {
	var logs []ActivityLog
	var total int64

	query := r.db.Model(&ActivityLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
