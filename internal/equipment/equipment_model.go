// equipment/model.go
package equipment

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusAssigned = "assigned"
	StatusReturned = "returned"
	StatusLost     = "lost"
	StatusDamaged  = "damaged"
)

// EquipmentType is a stock variant keyed by (name, size). Invariant:
// 0 <= AvailableQuantity <= Quantity at all times; every mutation goes
// through a conditional update inside a transaction.
type EquipmentType struct {
	gorm.Model
	Name              string  `json:"name" gorm:"not null;uniqueIndex:idx_name_size"`
	Size              string  `json:"size" gorm:"not null;uniqueIndex:idx_name_size"`
	Quantity          int     `json:"quantity" gorm:"not null;default:0"`           // total owned
	AvailableQuantity int     `json:"available_quantity" gorm:"not null;default:0"` // currently unassigned
	UnitPrice         float64 `json:"unit_price" gorm:"type:numeric(12,2);default:0"`
}

// EquipmentAssignment records units loaned to a student. Created in the
// assigned state together with the stock decrement; return restores
// availability; lost and damaged are terminal and do not.
type EquipmentAssignment struct {
	gorm.Model
	StudentID       uint       `json:"student_id" gorm:"not null;index"`
	EquipmentTypeID uint       `json:"equipment_type_id" gorm:"not null;index"`
	Size            string     `json:"size" gorm:"not null"`
	Quantity        int        `json:"quantity" gorm:"not null"`
	Status          string     `json:"status" gorm:"type:VARCHAR(20);check:status IN ('assigned','returned','lost','damaged');default:'assigned'"`
	AssignedDate    time.Time  `json:"assigned_date"`
	ReturnedDate    *time.Time `json:"returned_date"`
	Notes           string     `json:"notes"`
}
