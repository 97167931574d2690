package training

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrainingRepository interface {
	CreateTraining(training *Training) error
	GetTrainingByID(id uint) (*Training, error)
	GetTrainings(from, to time.Time, sport string) ([]Training, error)
	UpdateTraining(training *Training) error
	DeleteTraining(id uint) error

	// UpsertAttendance records attendance for a training in bulk; re-taking
	// attendance overwrites the present flags.
	UpsertAttendance(rows []TrainingAttendance) error
	GetAttendance(trainingID uint) ([]TrainingAttendance, error)
	GetStudentAttendance(studentID uint, from, to time.Time) ([]TrainingAttendance, error)
}

type trainingRepository struct {
	db *gorm.DB
}

// NewTrainingRepository creates a new instance of TrainingRepository.
func NewTrainingRepository(db *gorm.DB) TrainingRepository {
	return &trainingRepository{db: db}
}

func (r *trainingRepository) CreateTraining(training *Training) error {
	return r.db.Create(training).Error
}

func (r *trainingRepository) GetTrainingByID(id uint) (*Training, error) {
	var training Training
	err := r.db.First(&training, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &training, nil
}

func (r *trainingRepository) GetTrainings(from, to time.Time, sport string) ([]Training, error) {
	var trainings []Training
	query := r.db.Model(&Training{})
	if !from.IsZero() {
		query = query.Where("date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("date <= ?", to)
	}
	if sport != "" {
		query = query.Where("LOWER(sport) = LOWER(?)", sport)
	}
	if err := query.Order("date ASC, start_time ASC").Find(&trainings).Error; err != nil {
		return nil, err
	}
	return trainings, nil
}

func (r *trainingRepository) UpdateTraining(training *Training) error {
	return r.db.Save(training).Error
}

func (r *trainingRepository) DeleteTraining(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("training_id = ?", id).Delete(&TrainingAttendance{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Training{}, id).Error
	})
}

func (r *trainingRepository) UpsertAttendance(rows []TrainingAttendance) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "training_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"present", "updated_at"}),
	}).Create(&rows).Error
}

func (r *trainingRepository) GetAttendance(trainingID uint) ([]TrainingAttendance, error) {
	var rows []TrainingAttendance
	err := r.db.Where("training_id = ?", trainingID).Find(&rows).Error
	return rows, err
}

func (r *trainingRepository) GetStudentAttendance(studentID uint, from, to time.Time) ([]TrainingAttendance, error) {
	var rows []TrainingAttendance
	query := r.db.Where("student_id = ?", studentID)
	if !from.IsZero() && !to.IsZero() {
		query = query.Joins("JOIN trainings ON trainings.id = training_attendances.training_id").
			Where("trainings.date BETWEEN ? AND ?", from, to)
	}
	err := query.Find(&rows).Error
	return rows, err
}
