package student

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type StudentRepository interface {
	CreateStudent(student *Student) error
	GetStudentByID(id uint) (*Student, error)
	GetAllStudents(page, pageSize int, searchTerm, status string) ([]Student, int64, error)
	GetActiveStudents() ([]Student, error)
	UpdateStudent(student *Student) error
	FindStudentByNationalID(nationalID string) (*Student, error)
	SetStatus(id uint, status string, deactivatedAt *time.Time) error
	SetPaymentStatus(id uint, paymentStatus string) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) CreateStudent(student *Student) error {
	return r.db.Create(student).Error
}

func (r *studentRepository) GetStudentByID(id uint) (*Student, error) {
	var student Student
	err := r.db.First(&student, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) GetAllStudents(page, pageSize int, searchTerm, status string) ([]Student, int64, error) {
	var students []Student
	var total int64

	query := r.db.Model(&Student{})

	if searchTerm != "" {
		query = query.Where("name ILIKE ? OR surname ILIKE ? OR national_id LIKE ?",
			"%"+searchTerm+"%", "%"+searchTerm+"%", "%"+searchTerm+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("surname ASC, name ASC").Offset(offset).Limit(pageSize).Find(&students).Error; err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// GetActiveStudents returns every student eligible for recurring billing.
func (r *studentRepository) GetActiveStudents() ([]Student, error) {
	var students []Student
	if err := r.db.Where("status = ?", StatusActive).Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) UpdateStudent(student *Student) error {
	return r.db.Save(student).Error
}

func (r *studentRepository) FindStudentByNationalID(nationalID string) (*Student, error) {
	var student Student
	err := r.db.Where("national_id = ?", nationalID).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) SetStatus(id uint, status string, deactivatedAt *time.Time) error {
	return r.db.Model(&Student{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         status,
			"deactivated_at": deactivatedAt,
		}).Error
}

func (r *studentRepository) SetPaymentStatus(id uint, paymentStatus string) error {
	return r.db.Model(&Student{}).
		Where("id = ?", id).
		Update("payment_status", paymentStatus).Error
}
