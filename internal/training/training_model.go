// training/model.go
package training

import (
	"time"

	"gorm.io/gorm"
)

// Training is a calendar session for a branch.
type Training struct {
	gorm.Model
	Sport     string    `json:"sport" gorm:"not null;index"` // branch name
	Date      time.Time `json:"date" gorm:"not null;index"`
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
	Location  string    `json:"location"`
	Coach     string    `json:"coach"`
	Notes     string    `json:"notes"`
}

// TrainingAttendance records whether a student showed up. One row per
// (training, student), upserted in bulk when the coach takes attendance.
type TrainingAttendance struct {
	gorm.Model
	TrainingID uint `json:"training_id" gorm:"not null;uniqueIndex:idx_training_student"`
	StudentID  uint `json:"student_id" gorm:"not null;uniqueIndex:idx_training_student"`
	Present    bool `json:"present" gorm:"default:false"`
}
