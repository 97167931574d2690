package user

import "gorm.io/gorm"

const (
	RoleAdmin = "admin"
	RoleCoach = "coach"
)

// User is a staff account (club admin or coach), not a club member.
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `json:"-"`
	Role     string `gorm:"type:VARCHAR(20);not null;default:'coach'" json:"role"`
}
