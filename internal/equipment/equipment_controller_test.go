package equipment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/payment"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/apperr"
)

// fakeLedger is an in-memory EquipmentRepository with the same conditional
// semantics as the SQL one: a decrement only happens when enough stock is
// available, and assignment rows appear together with it.
type fakeLedger struct {
	mu          sync.Mutex
	nextID      uint
	variants    map[uint]*EquipmentType
	assignments map[uint]*EquipmentAssignment
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextID:      1,
		variants:    map[uint]*EquipmentType{},
		assignments: map[uint]*EquipmentAssignment{},
	}
}

func (f *fakeLedger) addVariant(name, size string, quantity, available int) *EquipmentType {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &EquipmentType{
		Model:             gorm.Model{ID: f.nextID},
		Name:              name,
		Size:              size,
		Quantity:          quantity,
		AvailableQuantity: available,
	}
	f.nextID++
	f.variants[v.ID] = v
	return v
}

func (f *fakeLedger) CreateVariant(variant *EquipmentType) error {
	if variant.Quantity < 0 || variant.AvailableQuantity < 0 || variant.AvailableQuantity > variant.Quantity {
		return apperr.ErrInvalidQuantity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	variant.ID = f.nextID
	f.nextID++
	cp := *variant
	f.variants[variant.ID] = &cp
	return nil
}

func (f *fakeLedger) GetVariantByID(id uint) (*EquipmentType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeLedger) GetAllVariants(page, pageSize int, searchTerm string) ([]EquipmentType, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []EquipmentType
	for _, v := range f.variants {
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLedger) FindVariant(name, size string) (*EquipmentType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.variants {
		if v.Name == name && v.Size == size {
			cp := *v
			return &cp, nil
		}
	}
	return nil, apperr.ErrVariantNotFound
}

func (f *fakeLedger) GetAvailableQuantity(equipmentTypeID uint, size string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[equipmentTypeID]
	if !ok || v.Size != size {
		return 0, apperr.ErrVariantNotFound
	}
	return v.AvailableQuantity, nil
}

func (f *fakeLedger) AddStock(equipmentTypeID uint, size string, delta int) (*EquipmentType, error) {
	if delta <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[equipmentTypeID]
	if !ok || v.Size != size {
		return nil, apperr.ErrVariantNotFound
	}
	v.Quantity += delta
	v.AvailableQuantity += delta
	cp := *v
	return &cp, nil
}

func (f *fakeLedger) Assign(studentID, equipmentTypeID uint, size string, quantity int, notes string) (*EquipmentAssignment, error) {
	if quantity < 1 {
		return nil, apperr.ErrInvalidQuantity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[equipmentTypeID]
	if !ok || v.Size != size {
		return nil, apperr.ErrVariantNotFound
	}
	if v.AvailableQuantity < quantity {
		return nil, apperr.ErrInsufficientStock
	}
	v.AvailableQuantity -= quantity
	a := &EquipmentAssignment{
		Model:           gorm.Model{ID: f.nextID},
		StudentID:       studentID,
		EquipmentTypeID: equipmentTypeID,
		Size:            size,
		Quantity:        quantity,
		Status:          StatusAssigned,
		AssignedDate:    time.Now(),
		Notes:           notes,
	}
	f.nextID++
	f.assignments[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeLedger) Return(assignmentID uint) (*EquipmentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if a.Status != StatusAssigned {
		return nil, apperr.ErrAlreadyReturned
	}
	now := time.Now()
	a.Status = StatusReturned
	a.ReturnedDate = &now
	f.variants[a.EquipmentTypeID].AvailableQuantity += a.Quantity
	cp := *a
	return &cp, nil
}

func (f *fakeLedger) CloseAsLost(assignmentID uint) (*EquipmentAssignment, error) {
	return f.closeTerminal(assignmentID, StatusLost)
}

func (f *fakeLedger) CloseAsDamaged(assignmentID uint) (*EquipmentAssignment, error) {
	return f.closeTerminal(assignmentID, StatusDamaged)
}

func (f *fakeLedger) closeTerminal(assignmentID uint, status string) (*EquipmentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if a.Status != StatusAssigned {
		return nil, apperr.ErrAlreadyReturned
	}
	now := time.Now()
	a.Status = status
	a.ReturnedDate = &now
	f.variants[a.EquipmentTypeID].Quantity -= a.Quantity
	cp := *a
	return &cp, nil
}

func (f *fakeLedger) GetAssignmentByID(id uint) (*EquipmentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeLedger) GetAssignments(page, pageSize int, studentID uint, status string) ([]EquipmentAssignment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []EquipmentAssignment
	for _, a := range f.assignments {
		if studentID != 0 && a.StudentID != studentID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLedger) variant(id uint) EquipmentType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.variants[id]
}

// fakeStudents satisfies student.StudentRepository; only GetStudentByID is
// exercised here.
type fakeStudents struct {
	students map[uint]*student.Student
}

func (f *fakeStudents) CreateStudent(s *student.Student) error { return nil }
func (f *fakeStudents) GetStudentByID(id uint) (*student.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}
func (f *fakeStudents) GetAllStudents(page, pageSize int, searchTerm, status string) ([]student.Student, int64, error) {
	return nil, 0, nil
}
func (f *fakeStudents) GetActiveStudents() ([]student.Student, error)  { return nil, nil }
func (f *fakeStudents) UpdateStudent(s *student.Student) error         { return nil }
func (f *fakeStudents) FindStudentByNationalID(nationalID string) (*student.Student, error) {
	return nil, nil
}
func (f *fakeStudents) SetStatus(id uint, status string, deactivatedAt *time.Time) error { return nil }
func (f *fakeStudents) SetPaymentStatus(id uint, paymentStatus string) error             { return nil }

// fakeCharges is the minimal payment.PaymentRepository the fee engine needs
// for one-off charge creation.
type fakeCharges struct {
	mu      sync.Mutex
	nextID  uint
	created []payment.Payment
}

func (f *fakeCharges) CreatePayment(p *payment.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.created = append(f.created, *p)
	return nil
}
func (f *fakeCharges) GetPaymentByID(id uint) (*payment.Payment, error) { return nil, nil }
func (f *fakeCharges) GetPayments(page, pageSize int, studentID uint, period string, isPaid *bool) ([]payment.Payment, int64, error) {
	return nil, 0, nil
}
func (f *fakeCharges) FindRecurringByStudentAndPeriod(studentID uint, period string) (*payment.Payment, error) {
	return nil, nil
}
func (f *fakeCharges) UpdateUnpaidAmount(id uint, amount float64, notes string) error { return nil }
func (f *fakeCharges) MarkPaid(id uint) (*payment.Payment, error)                    { return nil, nil }
func (f *fakeCharges) MarkUnpaid(id uint) (*payment.Payment, error)                  { return nil, nil }
func (f *fakeCharges) HasRunForPeriod(period string) (bool, error)                   { return false, nil }
func (f *fakeCharges) RecordRun(period string) error                                 { return nil }

type noopAudit struct{}

func (noopAudit) Record(action, entityType string, entityID uint, description, actor string) {}

type fixture struct {
	router  *gin.Engine
	ledger  *fakeLedger
	charges *fakeCharges
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := newFakeLedger()
	charges := &fakeCharges{}
	students := &fakeStudents{students: map[uint]*student.Student{
		1: {Model: gorm.Model{ID: 1}, Name: "Ali", Surname: "Demir", Status: student.StatusActive},
	}}
	engine := payment.NewFeeEngine(charges, students, nil, 1000, 1)
	controller := NewEquipmentController(ledger, students, engine, noopAudit{})

	r := gin.New()
	r.POST("/equipment", controller.CreateVariant)
	r.GET("/equipment/:equipment_id/available", controller.GetAvailableQuantity)
	r.POST("/equipment/:equipment_id/stock", controller.AddStock)
	r.POST("/equipment/assignments", controller.AssignEquipment)
	r.POST("/equipment/assignments/:assignment_id/return", controller.ReturnEquipment)
	r.POST("/equipment/assignments/:assignment_id/close", controller.CloseAssignment)
	r.GET("/equipment/assignments", controller.GetAssignments)

	return &fixture{router: r, ledger: ledger, charges: charges}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func assignBody(variantID uint, size string, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"student_id":        1,
		"equipment_type_id": variantID,
		"size":              size,
		"quantity":          quantity,
	}
}

func TestAssignRejectsOverAllocation(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 10, 3)

	w := f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "M", 4))
	assert.Equal(t, http.StatusConflict, w.Code)

	got := f.ledger.variant(v.ID)
	assert.Equal(t, 3, got.AvailableQuantity)
	assert.Equal(t, 10, got.Quantity)

	w = f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "M", 3))
	assert.Equal(t, http.StatusCreated, w.Code)

	got = f.ledger.variant(v.ID)
	assert.Equal(t, 0, got.AvailableQuantity)
	assert.Equal(t, 10, got.Quantity)

	w = f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "M", 1))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssignAndReturnRoundTrip(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 10, 10)

	w := f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "M", 2))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 8, f.ledger.variant(v.ID).AvailableQuantity)

	var resp struct {
		Data EquipmentAssignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Data.ID)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/equipment/assignments/%d/return", resp.Data.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, f.ledger.variant(v.ID).AvailableQuantity)

	// A second return of the same assignment is rejected.
	w = f.do(t, http.MethodPost, fmt.Sprintf("/equipment/assignments/%d/return", resp.Data.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 10, f.ledger.variant(v.ID).AvailableQuantity)
}

func TestConcurrentReturnsRestoreStockOnce(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 10, 10)

	w := f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "M", 4))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 6, f.ledger.variant(v.ID).AvailableQuantity)

	var resp struct {
		Data EquipmentAssignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	path := fmt.Sprintf("/equipment/assignments/%d/return", resp.Data.ID)

	// Racing returns of the same assignment: the status flip admits exactly
	// one winner, so the 4 units come back exactly once.
	const racers = 8
	codes := make(chan int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	okCount, conflictCount := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			okCount++
		case http.StatusConflict:
			conflictCount++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, racers-1, conflictCount)

	got := f.ledger.variant(v.ID)
	assert.Equal(t, 10, got.AvailableQuantity)
	assert.Equal(t, 10, got.Quantity)
}

func TestCloseAsLostShrinksTotal(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Krampon", "38", 5, 5)

	w := f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "38", 2))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data EquipmentAssignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = f.do(t, http.MethodPost, fmt.Sprintf("/equipment/assignments/%d/close?outcome=lost", resp.Data.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	got := f.ledger.variant(v.ID)
	assert.Equal(t, 3, got.Quantity) // the lost units are written off
	assert.Equal(t, 3, got.AvailableQuantity)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/equipment/assignments/%d/close?outcome=broken", resp.Data.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignUnknownStudentOrVariant(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 5, 5)

	body := assignBody(v.ID, "M", 1)
	body["student_id"] = 42
	w := f.do(t, http.MethodPost, "/equipment/assignments", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/equipment/assignments", assignBody(99, "M", 1))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/equipment/assignments", assignBody(v.ID, "XL", 1))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignWithChargeCreatesLedgerRow(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 5, 5)

	body := assignBody(v.ID, "M", 1)
	body["charge_amount"] = 250.0
	w := f.do(t, http.MethodPost, "/equipment/assignments", body)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, f.charges.created, 1)
	charge := f.charges.created[0]
	assert.InDelta(t, 250.00, charge.Amount, 0.001)
	assert.Equal(t, uint(1), charge.StudentID)
	require.NotNil(t, charge.EquipmentAssignmentID)
	assert.False(t, charge.IsPaid)
}

func TestAddStockGrowsBothCounters(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 10, 3)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/equipment/%d/stock", v.ID), map[string]interface{}{
		"size": "M", "delta": 5,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	got := f.ledger.variant(v.ID)
	assert.Equal(t, 15, got.Quantity)
	assert.Equal(t, 8, got.AvailableQuantity)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/equipment/%d/stock", v.ID), map[string]interface{}{
		"size": "M", "delta": -5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 15, f.ledger.variant(v.ID).Quantity)
}

func TestCreateVariantConflictOnDuplicate(t *testing.T) {
	f := newFixture(t)
	f.ledger.addVariant("Forma", "M", 5, 5)

	w := f.do(t, http.MethodPost, "/equipment", map[string]interface{}{
		"name": "Forma", "size": "M", "quantity": 3,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/equipment", map[string]interface{}{
		"name": "Forma", "size": "L", "quantity": 3,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data EquipmentType `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Quantity)
	assert.Equal(t, 3, resp.Data.AvailableQuantity)
}

func TestGetAvailableQuantity(t *testing.T) {
	f := newFixture(t)
	v := f.ledger.addVariant("Forma", "M", 10, 3)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/equipment/%d/available?size=M", v.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/equipment/%d/available", v.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/equipment/99/available?size=M", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// The SQL repository rejects bad input before touching the database; these
// paths are safe to probe without a connection.
func TestRepositoryInputGuards(t *testing.T) {
	repo := NewEquipmentRepository(nil)

	err := repo.CreateVariant(&EquipmentType{Quantity: 5, AvailableQuantity: 7})
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	err = repo.CreateVariant(&EquipmentType{Quantity: -1, AvailableQuantity: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	_, err = repo.AddStock(1, "M", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	_, err = repo.Assign(1, 1, "M", 0, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)
}
