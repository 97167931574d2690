// branch/model.go
package branch

import (
	"gorm.io/gorm"
)

// SportBranch is a sport/activity category with its own monthly fee.
// Branch names are the matching key for students and are compared
// case-insensitively.
type SportBranch struct {
	gorm.Model
	Name        string  `json:"name" gorm:"unique;not null"`
	MonthlyFee  float64 `json:"monthly_fee" gorm:"type:numeric(12,2);not null;default:0"`
	Description string  `json:"description"`
}
