package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/branch"
)

// fakeCalendar is an in-memory TrainingRepository.
type fakeCalendar struct {
	nextID     uint
	trainings  map[uint]*Training
	attendance []TrainingAttendance
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{nextID: 1, trainings: map[uint]*Training{}}
}

func (f *fakeCalendar) CreateTraining(t *Training) error {
	t.ID = f.nextID
	f.nextID++
	cp := *t
	f.trainings[t.ID] = &cp
	return nil
}

func (f *fakeCalendar) GetTrainingByID(id uint) (*Training, error) {
	t, ok := f.trainings[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeCalendar) GetTrainings(from, to time.Time, sport string) ([]Training, error) {
	var out []Training
	for _, t := range f.trainings {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeCalendar) UpdateTraining(t *Training) error {
	cp := *t
	f.trainings[t.ID] = &cp
	return nil
}

func (f *fakeCalendar) DeleteTraining(id uint) error {
	delete(f.trainings, id)
	return nil
}

func (f *fakeCalendar) UpsertAttendance(rows []TrainingAttendance) error {
	f.attendance = append(f.attendance, rows...)
	return nil
}

func (f *fakeCalendar) GetAttendance(trainingID uint) ([]TrainingAttendance, error) {
	var out []TrainingAttendance
	for _, a := range f.attendance {
		if a.TrainingID == trainingID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeCalendar) GetStudentAttendance(studentID uint, from, to time.Time) ([]TrainingAttendance, error) {
	var out []TrainingAttendance
	for _, a := range f.attendance {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeBranches struct{}

func (fakeBranches) CreateBranch(b *branch.SportBranch) error          { return nil }
func (fakeBranches) GetBranchByID(id uint) (*branch.SportBranch, error) { return nil, nil }
func (fakeBranches) GetAllBranches() ([]branch.SportBranch, error)      { return nil, nil }
func (fakeBranches) UpdateBranch(b *branch.SportBranch) error           { return nil }
func (fakeBranches) DeleteBranch(id uint) error                         { return nil }
func (fakeBranches) FindBranchByName(name string) (*branch.SportBranch, error) {
	return &branch.SportBranch{Name: name, MonthlyFee: 1000}, nil
}

type noopAudit struct{}

func (noopAudit) Record(action, entityType string, entityID uint, description, actor string) {}

func newTrainingRouter(cal *fakeCalendar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewTrainingController(cal, fakeBranches{}, noopAudit{})

	r := gin.New()
	r.GET("/trainings/attendance", controller.GetStudentAttendance)
	r.PUT("/trainings/:training_id", controller.UpdateTraining)
	r.POST("/trainings/:training_id/attendance", controller.TakeAttendance)
	return r
}

func seedTraining(t *testing.T, cal *fakeCalendar) *Training {
	t.Helper()
	session := &Training{
		Model:     gorm.Model{},
		Sport:     "Futbol",
		Date:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "18:00",
		EndTime:   "19:30",
	}
	require.NoError(t, cal.CreateTraining(session))
	return session
}

func TestGetStudentAttendance(t *testing.T) {
	cal := newFakeCalendar()
	r := newTrainingRouter(cal)
	session := seedTraining(t, cal)

	body, err := json.Marshal(AttendanceRequest{Records: []AttendanceRecord{
		{StudentID: 1, Present: true},
		{StudentID: 2, Present: false},
	}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/trainings/%d/attendance", session.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/trainings/attendance?student_id=1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []TrainingAttendance `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, uint(1), resp.Data[0].StudentID)
	assert.True(t, resp.Data[0].Present)

	// student_id is mandatory
	req = httptest.NewRequest(http.MethodGet, "/trainings/attendance", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTraining(t *testing.T) {
	cal := newFakeCalendar()
	r := newTrainingRouter(cal)
	session := seedTraining(t, cal)

	body, err := json.Marshal(UpdateTrainingRequest{Date: "2026-09-08", StartTime: "19:00"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/trainings/%d", session.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := cal.GetTrainingByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), updated.Date)
	assert.Equal(t, "19:00", updated.StartTime)
	assert.Equal(t, "19:30", updated.EndTime) // untouched

	req = httptest.NewRequest(http.MethodPut, "/trainings/99", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
