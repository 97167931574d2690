// payment/model.go
package payment

import (
	"time"

	"gorm.io/gorm"
)

// Payment is a ledger row. Recurring dues rows have a nil
// EquipmentAssignmentID and are unique per (student, period); one-off
// equipment charges carry the assignment they bill for.
type Payment struct {
	gorm.Model
	StudentID     uint    `json:"student_id" gorm:"not null;index:idx_student_period"`
	Amount        float64 `json:"amount" gorm:"type:numeric(12,2);not null"` // discount already applied
	PaymentPeriod string  `json:"payment_period" gorm:"index:idx_student_period"` // YYYY-MM
	PeriodMonth   int     `json:"period_month"`
	PeriodYear    int     `json:"period_year"`
	IsPaid        bool    `json:"is_paid" gorm:"default:false;index"`
	// PaymentDate is set on the paid transition and cleared on revert,
	// always together with IsPaid.
	PaymentDate           *time.Time `json:"payment_date"`
	EquipmentAssignmentID *uint      `json:"equipment_assignment_id" gorm:"index"`
	Notes                 string     `json:"notes"`
}

// IsRecurring reports whether this row is a monthly dues row rather than a
// one-off equipment charge.
func (p *Payment) IsRecurring() bool {
	return p.EquipmentAssignmentID == nil
}

// IsOverdue compares the billing period against now. The (period_year,
// period_month) pair is the canonical comparison; the legacy due_date path of
// older data was dropped (rows without period columns are backfilled from
// PaymentPeriod at migration).
func (p *Payment) IsOverdue(now time.Time) bool {
	if p.IsPaid {
		return false
	}
	if p.PeriodYear != int(now.Year()) {
		return p.PeriodYear < now.Year()
	}
	return p.PeriodMonth < int(now.Month())
}

// FeeRun marks a completed generation for a period so automatic triggers can
// run at most once per calendar month. Manual re-runs bypass the marker and
// rely on generation being idempotent.
type FeeRun struct {
	gorm.Model
	Period string `json:"period" gorm:"uniqueIndex;not null"` // YYYY-MM
}

// GenerationSummary reports what a generation run did. Failures are isolated
// per student; the run itself only aborts when the student list cannot be
// loaded at all.
type GenerationSummary struct {
	Period      string   `json:"period"`
	Inserted    int      `json:"inserted"`
	Updated     int      `json:"updated"`
	Unchanged   int      `json:"unchanged"`
	SkippedPaid int      `json:"skipped_paid"`
	Failed      int      `json:"failed"`
	Errors      []string `json:"errors,omitempty"`
}
