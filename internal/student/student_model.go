// student/model.go
package student

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Student is a club member. Membership cancellation is a soft delete: the
// status flag flips to inactive and DeactivatedAt is stamped; reactivation
// clears both. Inactive students are skipped by fee generation.
type Student struct {
	gorm.Model
	NationalID       string `json:"national_id" gorm:"uniqueIndex;not null"` // 11-digit TC, checksum-validated
	Name             string `json:"name" gorm:"not null"`
	Surname          string `json:"surname" gorm:"not null"`
	ParentNationalID string `json:"parent_national_id"`
	ParentName       string `json:"parent_name"`
	Phone            string `json:"phone"`
	Sport            string `json:"sport" gorm:"index"` // branch name, matched case-insensitively
	DiscountRate     int    `json:"discount_rate" gorm:"default:0"`
	Status           string `json:"status" gorm:"type:VARCHAR(20);default:'active';index"`
	// PaymentStatus is a denormalized cache of the current period's dues
	// state, maintained by the fee engine's paid/unpaid transitions.
	PaymentStatus string     `json:"payment_status" gorm:"type:VARCHAR(20);default:'pending'"`
	DeactivatedAt *time.Time `json:"deactivated_at"`
	Notes         string     `json:"notes"`
}

// IsActive reports whether the student participates in recurring billing.
func (s *Student) IsActive() bool {
	return s.Status == StatusActive
}
