// activity/model.go
package activity

import (
	"gorm.io/gorm"
)

// ActivityLog is an append-only audit row. Rows are never updated or
// deleted by the application.
type ActivityLog struct {
	gorm.Model
	Action      string `json:"action" gorm:"not null;index"`      // created, updated, deleted, assigned, returned, paid, unpaid, generated
	EntityType  string `json:"entity_type" gorm:"not null;index"` // student, payment, equipment, branch, training
	EntityID    uint   `json:"entity_id" gorm:"index"`
	Description string `json:"description"`
	Actor       string `json:"actor"` // staff username, empty for system actions
}
