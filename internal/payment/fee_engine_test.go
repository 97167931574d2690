package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/apperr"
)

// fakePaymentStore is an in-memory PaymentRepository mirroring the SQL
// guards of the real one (unpaid-only updates, one recurring row per
// student and period).
type fakePaymentStore struct {
	mu       sync.Mutex
	nextID   uint
	payments map[uint]*Payment
	runs     map[string]bool

	failCreateFor map[uint]bool // student IDs whose inserts fail
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		nextID:        1,
		payments:      map[uint]*Payment{},
		runs:          map[string]bool{},
		failCreateFor: map[uint]bool{},
	}
}

func (f *fakePaymentStore) CreatePayment(p *Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateFor[p.StudentID] {
		return errors.New("insert failed")
	}
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentStore) GetPaymentByID(id uint) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) GetPayments(page, pageSize int, studentID uint, period string, isPaid *bool) ([]Payment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Payment
	for _, p := range f.payments {
		if studentID != 0 && p.StudentID != studentID {
			continue
		}
		if period != "" && p.PaymentPeriod != period {
			continue
		}
		if isPaid != nil && p.IsPaid != *isPaid {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentStore) FindRecurringByStudentAndPeriod(studentID uint, period string) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.StudentID == studentID && p.PaymentPeriod == period && p.EquipmentAssignmentID == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) UpdateUnpaidAmount(id uint, amount float64, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if p.IsPaid {
		return apperr.ErrAlreadyPaid
	}
	p.Amount = amount
	p.Notes = notes
	return nil
}

func (f *fakePaymentStore) MarkPaid(id uint) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if p.IsPaid {
		return nil, apperr.ErrAlreadyPaid
	}
	now := time.Now()
	p.IsPaid = true
	p.PaymentDate = &now
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) MarkUnpaid(id uint) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if !p.IsPaid {
		return nil, apperr.ErrNotPaid
	}
	p.IsPaid = false
	p.PaymentDate = nil
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) HasRunForPeriod(period string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[period], nil
}

func (f *fakePaymentStore) RecordRun(period string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[period] = true
	return nil
}

func (f *fakePaymentStore) recurringRows() []Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Payment
	for _, p := range f.payments {
		if p.EquipmentAssignmentID == nil {
			out = append(out, *p)
		}
	}
	return out
}

type fakeStudentStore struct {
	students []student.Student
	err      error
}

func (f *fakeStudentStore) GetActiveStudents() ([]student.Student, error) {
	return f.students, f.err
}

type fakeBranchStore struct {
	branches []branch.SportBranch
	err      error
}

func (f *fakeBranchStore) GetAllBranches() ([]branch.SportBranch, error) {
	return f.branches, f.err
}

func activeStudent(id uint, sport string, discount int) student.Student {
	return student.Student{
		Model:        gorm.Model{ID: id},
		NationalID:   "10000000146",
		Name:         "Test",
		Surname:      "Student",
		Sport:        sport,
		DiscountRate: discount,
		Status:       student.StatusActive,
	}
}

func futbolBranch(fee float64) branch.SportBranch {
	return branch.SportBranch{Name: "Futbol", MonthlyFee: fee}
}

func TestComputeMonthlyAmount(t *testing.T) {
	tests := []struct {
		name     string
		baseFee  float64
		discount int
		want     float64
	}{
		{"no discount", 1000, 0, 1000.00},
		{"twenty percent", 1000, 20, 800.00},
		{"full discount", 1000, 100, 0.00},
		{"rounds half up", 999.99, 15, 849.99}, // 849.9915 -> 849.99
		{"half cent rounds up", 100.01, 50, 50.01},
		{"negative discount clamped", 500, -10, 500.00},
		{"over 100 clamped", 500, 150, 0.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeMonthlyAmount(tt.baseFee, tt.discount), 0.001)
		})
	}
}

func TestComputeMonthlyAmountMonotonic(t *testing.T) {
	prev := ComputeMonthlyAmount(1234.56, 0)
	for d := 1; d <= 100; d++ {
		cur := ComputeMonthlyAmount(1234.56, d)
		assert.LessOrEqual(t, cur, prev, "discount %d", d)
		prev = cur
	}
}

func TestValidatePeriod(t *testing.T) {
	year, month, err := ValidatePeriod("2026-03")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 3, month)

	for _, bad := range []string{"", "2026", "2026-13", "2026-00", "03-2026", "2026-3", "abcd-ef"} {
		_, _, err := ValidatePeriod(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, "period %q", bad)
	}
}

func TestGenerateForPeriodInsertsDues(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{
			activeStudent(1, "Futbol", 0),
			activeStudent(2, "Futbol", 20),
			activeStudent(3, "Basketbol", 0),
		}},
		&fakeBranchStore{branches: []branch.SportBranch{
			futbolBranch(1000),
			{Name: "Basketbol", MonthlyFee: 750},
		}},
		500, 4)

	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Inserted)
	assert.Equal(t, 0, summary.Failed)

	rows := store.recurringRows()
	require.Len(t, rows, 3)
	byStudent := map[uint]Payment{}
	for _, r := range rows {
		byStudent[r.StudentID] = r
	}
	assert.InDelta(t, 1000.00, byStudent[1].Amount, 0.001)
	assert.InDelta(t, 800.00, byStudent[2].Amount, 0.001) // 20% discount on Futbol
	assert.InDelta(t, 750.00, byStudent[3].Amount, 0.001)
	for _, r := range rows {
		assert.False(t, r.IsPaid)
		assert.Equal(t, "2026-08", r.PaymentPeriod)
		assert.Equal(t, 2026, r.PeriodYear)
		assert.Equal(t, 8, r.PeriodMonth)
	}

	ran, err := engine.HasRunForPeriod("2026-08")
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGenerateForPeriodIsIdempotent(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}},
		&fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}},
		500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)

	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Len(t, store.recurringRows(), 1)
}

func TestGenerateForPeriodRecalculatesUnpaid(t *testing.T) {
	store := newFakePaymentStore()
	students := &fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}}
	branches := &fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}}
	engine := NewFeeEngine(store, students, branches, 500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)

	// Fee raised before the student paid: the unpaid row follows.
	branches.branches = []branch.SportBranch{futbolBranch(1200)}
	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	rows := store.recurringRows()
	require.Len(t, rows, 1)
	assert.InDelta(t, 1200.00, rows[0].Amount, 0.001)
}

func TestGenerateForPeriodSkipsPaidRows(t *testing.T) {
	store := newFakePaymentStore()
	branches := &fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}}
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}},
		branches, 500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)

	rows := store.recurringRows()
	require.Len(t, rows, 1)
	_, err = engine.MarkPaid(rows[0].ID)
	require.NoError(t, err)

	// Even a fee change must not touch an already paid row.
	branches.branches = []branch.SportBranch{futbolBranch(9999)}
	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedPaid)
	assert.Equal(t, 0, summary.Updated)

	rows = store.recurringRows()
	require.Len(t, rows, 1)
	assert.InDelta(t, 1000.00, rows[0].Amount, 0.001)
	assert.True(t, rows[0].IsPaid)
}

func TestGenerateForPeriodBranchFallback(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{
			activeStudent(1, "Yuzme", 0),  // branch missing
			activeStudent(2, "futbol", 0), // case-insensitive match
		}},
		&fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}},
		600, 2)

	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	byStudent := map[uint]Payment{}
	for _, r := range store.recurringRows() {
		byStudent[r.StudentID] = r
	}
	assert.InDelta(t, 600.00, byStudent[1].Amount, 0.001) // default fee
	assert.InDelta(t, 1000.00, byStudent[2].Amount, 0.001)
}

func TestGenerateForPeriodBranchLookupFailure(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}},
		&fakeBranchStore{err: errors.New("db down")},
		600, 2)

	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)

	rows := store.recurringRows()
	require.Len(t, rows, 1)
	assert.InDelta(t, 600.00, rows[0].Amount, 0.001)
}

func TestGenerateForPeriodIsolatesStudentFailures(t *testing.T) {
	store := newFakePaymentStore()
	store.failCreateFor[2] = true
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{
			activeStudent(1, "Futbol", 0),
			activeStudent(2, "Futbol", 0),
			activeStudent(3, "Futbol", 0),
		}},
		&fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}},
		500, 2)

	summary, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	require.NotEmpty(t, summary.Errors)
	assert.Contains(t, summary.Errors[0], "student 2")

	// The partial run must not be stamped complete, so the next trigger
	// retries the failed student.
	ran, err := engine.HasRunForPeriod("2026-08")
	require.NoError(t, err)
	assert.False(t, ran)

	delete(store.failCreateFor, 2)
	summary, err = engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)

	ran, err = engine.HasRunForPeriod("2026-08")
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGenerateForPeriodStudentLoadFailureAborts(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{err: errors.New("db down")},
		&fakeBranchStore{}, 500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	assert.Error(t, err)
	assert.Empty(t, store.recurringRows())

	ran, err := engine.HasRunForPeriod("2026-08")
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestGenerateForPeriodRejectsBadPeriod(t *testing.T) {
	engine := NewFeeEngine(newFakePaymentStore(), &fakeStudentStore{}, &fakeBranchStore{}, 500, 2)
	_, err := engine.GenerateForPeriod(context.Background(), "August 2026")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMarkPaidAndUnpaidTransitions(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}},
		&fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}},
		500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	id := store.recurringRows()[0].ID

	paid, err := engine.MarkPaid(id)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaymentDate)

	_, err = engine.MarkPaid(id)
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)

	reverted, err := engine.MarkUnpaid(id)
	require.NoError(t, err)
	assert.False(t, reverted.IsPaid)
	assert.Nil(t, reverted.PaymentDate)

	_, err = engine.MarkUnpaid(id)
	assert.ErrorIs(t, err, apperr.ErrNotPaid)

	_, err = engine.MarkPaid(99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentMarkPaidSingleWinner(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}},
		&fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}},
		500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	id := store.recurringRows()[0].ID

	// Racing paid transitions: the conditional is_paid flip admits exactly
	// one winner; the rest see ErrAlreadyPaid.
	const racers = 8
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.MarkPaid(id)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	okCount, conflictCount := 0, 0
	for err := range results {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, apperr.ErrAlreadyPaid):
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, racers-1, conflictCount)

	row, err := store.GetPaymentByID(id)
	require.NoError(t, err)
	assert.True(t, row.IsPaid)
	require.NotNil(t, row.PaymentDate)
}

func TestCorrectAmount(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store,
		&fakeStudentStore{students: []student.Student{activeStudent(1, "Futbol", 0)}},
		&fakeBranchStore{branches: []branch.SportBranch{futbolBranch(1000)}},
		500, 2)

	_, err := engine.GenerateForPeriod(context.Background(), "2026-08")
	require.NoError(t, err)
	id := store.recurringRows()[0].ID

	require.NoError(t, engine.CorrectAmount(id, 850, "sibling discount applied"))
	row, err := store.GetPaymentByID(id)
	require.NoError(t, err)
	assert.InDelta(t, 850.00, row.Amount, 0.001)

	assert.ErrorIs(t, engine.CorrectAmount(id, -1, ""), apperr.ErrValidation)

	_, err = engine.MarkPaid(id)
	require.NoError(t, err)
	assert.ErrorIs(t, engine.CorrectAmount(id, 900, ""), apperr.ErrAlreadyPaid)
}

func TestCreateEquipmentCharge(t *testing.T) {
	store := newFakePaymentStore()
	engine := NewFeeEngine(store, &fakeStudentStore{}, &fakeBranchStore{}, 500, 2)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	charge, err := engine.CreateEquipmentCharge(7, 1, 249.999, "Forma M x1", now)
	require.NoError(t, err)
	require.NotNil(t, charge.EquipmentAssignmentID)
	assert.Equal(t, uint(7), *charge.EquipmentAssignmentID)
	assert.InDelta(t, 250.00, charge.Amount, 0.001)
	assert.Equal(t, "2026-08", charge.PaymentPeriod)
	assert.False(t, charge.IsRecurring())

	_, err = engine.CreateEquipmentCharge(7, 1, -5, "", now)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// A charge must never collide with the recurring dues row.
	found, err := store.FindRecurringByStudentAndPeriod(1, "2026-08")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPaymentIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	unpaidPast := Payment{PeriodYear: 2026, PeriodMonth: 7}
	assert.True(t, unpaidPast.IsOverdue(now))

	unpaidCurrent := Payment{PeriodYear: 2026, PeriodMonth: 8}
	assert.False(t, unpaidCurrent.IsOverdue(now))

	unpaidLastYear := Payment{PeriodYear: 2025, PeriodMonth: 12}
	assert.True(t, unpaidLastYear.IsOverdue(now))

	paidPast := Payment{PeriodYear: 2026, PeriodMonth: 1, IsPaid: true}
	assert.False(t, paidPast.IsOverdue(now))
}
