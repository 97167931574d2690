package payment

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/apperr"
)

// StudentStore is the slice of the student repository the fee engine needs.
type StudentStore interface {
	GetActiveStudents() ([]student.Student, error)
}

// BranchStore is the slice of the branch repository the fee engine needs.
type BranchStore interface {
	GetAllBranches() ([]branch.SportBranch, error)
}

// FeeEngine generates and keeps consistent one recurring dues row per active
// student per calendar period. Scheduling policy (when to trigger a run) is
// the caller's concern; every operation here is safe to repeat.
type FeeEngine struct {
	payments PaymentRepository
	students StudentStore
	branches BranchStore

	defaultFee float64
	workers    int
}

// NewFeeEngine creates a FeeEngine. defaultFee is charged when a student's
// branch cannot be resolved; workers bounds the generation pool.
func NewFeeEngine(payments PaymentRepository, students StudentStore, branches BranchStore, defaultFee float64, workers int) *FeeEngine {
	if defaultFee <= 0 {
		defaultFee = 1000
	}
	if workers < 1 {
		workers = 1
	}
	return &FeeEngine{
		payments:   payments,
		students:   students,
		branches:   branches,
		defaultFee: defaultFee,
		workers:    workers,
	}
}

// ComputeMonthlyAmount returns baseFee reduced by discountRate percent,
// rounded half-up to 2 decimals. The discount is clamped to [0,100].
func ComputeMonthlyAmount(baseFee float64, discountRate int) float64 {
	if discountRate < 0 {
		discountRate = 0
	}
	if discountRate > 100 {
		discountRate = 100
	}
	amount := baseFee * (1 - float64(discountRate)/100)
	return math.Floor(amount*100+0.5) / 100
}

// ValidatePeriod checks the YYYY-MM period key and returns its components.
func ValidatePeriod(period string) (year int, month int, err error) {
	t, perr := time.Parse("2006-01", period)
	if perr != nil {
		return 0, 0, apperr.Validation("period must be YYYY-MM, got %q", period)
	}
	return t.Year(), int(t.Month()), nil
}

// CurrentPeriod returns the YYYY-MM key for now.
func CurrentPeriod(now time.Time) string {
	return now.Format("2006-01")
}

// HasRunForPeriod reports whether a generation already completed for the
// period. Callers gating automatic monthly triggers check this first.
func (e *FeeEngine) HasRunForPeriod(period string) (bool, error) {
	return e.payments.HasRunForPeriod(period)
}

// GenerateForPeriod creates or corrects the recurring dues row of every
// active student for the given period. The operation is idempotent: existing
// unpaid rows are recalculated (branch fee or discount may have changed since
// the first run), paid rows are never touched, and no duplicates are created.
//
// A branch-list failure degrades to the default fee for everyone rather than
// aborting; a failure on one student is counted and the rest proceed. The
// run marker is recorded only when every student succeeded, so a partial run
// is picked up again by the next trigger.
func (e *FeeEngine) GenerateForPeriod(ctx context.Context, period string) (*GenerationSummary, error) {
	year, month, err := ValidatePeriod(period)
	if err != nil {
		return nil, err
	}

	students, err := e.students.GetActiveStudents()
	if err != nil {
		return nil, fmt.Errorf("loading active students: %w", err)
	}

	feeByBranch := map[string]float64{}
	branches, err := e.branches.GetAllBranches()
	if err != nil {
		log.Printf("fee generation %s: branch lookup failed, falling back to default fee %.2f: %v", period, e.defaultFee, err)
	} else {
		for _, b := range branches {
			feeByBranch[strings.ToLower(b.Name)] = b.MonthlyFee
		}
	}

	summary := &GenerationSummary{Period: period}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, stu := range students {
		stu := stu
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			baseFee, ok := feeByBranch[strings.ToLower(stu.Sport)]
			if !ok || baseFee <= 0 {
				baseFee = e.defaultFee
			}
			amount := ComputeMonthlyAmount(baseFee, stu.DiscountRate)

			outcome, err := e.upsertDuesRow(stu, period, year, month, amount)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				if len(summary.Errors) < 20 {
					summary.Errors = append(summary.Errors, fmt.Sprintf("student %d: %v", stu.ID, err))
				}
				return nil // isolate per-student failures
			}
			switch outcome {
			case outcomeInserted:
				summary.Inserted++
			case outcomeUpdated:
				summary.Updated++
			case outcomeUnchanged:
				summary.Unchanged++
			case outcomeSkippedPaid:
				summary.SkippedPaid++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	// Only a clean run gets the marker; a partial one stays re-runnable by
	// the automatic trigger so the failed students are retried.
	if summary.Failed > 0 {
		log.Printf("fee generation %s: %d student(s) failed, run marker not recorded", period, summary.Failed)
		return summary, nil
	}
	if err := e.payments.RecordRun(period); err != nil {
		log.Printf("fee generation %s: recording run marker failed: %v", period, err)
	}
	return summary, nil
}

type upsertOutcome int

const (
	outcomeInserted upsertOutcome = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeSkippedPaid
)

func (e *FeeEngine) upsertDuesRow(stu student.Student, period string, year, month int, amount float64) (upsertOutcome, error) {
	existing, err := e.payments.FindRecurringByStudentAndPeriod(stu.ID, period)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		row := &Payment{
			StudentID:     stu.ID,
			Amount:        amount,
			PaymentPeriod: period,
			PeriodMonth:   month,
			PeriodYear:    year,
			IsPaid:        false,
			Notes:         fmt.Sprintf("Monthly dues %s (%s)", period, stu.Sport),
		}
		if err := e.payments.CreatePayment(row); err != nil {
			return 0, err
		}
		return outcomeInserted, nil
	}

	if existing.IsPaid {
		return outcomeSkippedPaid, nil
	}

	if existing.Amount == amount {
		return outcomeUnchanged, nil
	}

	notes := fmt.Sprintf("Monthly dues %s (%s), recalculated", period, stu.Sport)
	if err := e.payments.UpdateUnpaidAmount(existing.ID, amount, notes); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

// MarkPaid records a payment: is_paid and payment_date flip together and the
// student's cached dues state follows.
func (e *FeeEngine) MarkPaid(paymentID uint) (*Payment, error) {
	return e.payments.MarkPaid(paymentID)
}

// MarkUnpaid reverts a recorded payment, clearing the payment date and
// putting the student's cached dues state back to pending.
func (e *FeeEngine) MarkUnpaid(paymentID uint) (*Payment, error) {
	return e.payments.MarkUnpaid(paymentID)
}

// CorrectAmount adjusts an unpaid dues row after a fee or discount change.
// Paid rows must be reverted first.
func (e *FeeEngine) CorrectAmount(paymentID uint, amount float64, notes string) error {
	if amount < 0 {
		return apperr.Validation("amount cannot be negative")
	}
	return e.payments.UpdateUnpaidAmount(paymentID, amount, notes)
}

// CreateEquipmentCharge creates a one-off unpaid ledger row billing an
// equipment assignment. These rows never collide with recurring dues.
func (e *FeeEngine) CreateEquipmentCharge(assignmentID, studentID uint, amount float64, notes string, now time.Time) (*Payment, error) {
	if amount < 0 {
		return nil, apperr.Validation("amount cannot be negative")
	}
	row := &Payment{
		StudentID:             studentID,
		Amount:                math.Floor(amount*100+0.5) / 100,
		PaymentPeriod:         CurrentPeriod(now),
		PeriodMonth:           int(now.Month()),
		PeriodYear:            now.Year(),
		EquipmentAssignmentID: &assignmentID,
		Notes:                 notes,
	}
	if err := e.payments.CreatePayment(row); err != nil {
		return nil, err
	}
	return row, nil
}
