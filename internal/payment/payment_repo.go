package payment

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/apperr"
)

type PaymentRepository interface {
	CreatePayment(payment *Payment) error
	GetPaymentByID(id uint) (*Payment, error)
	GetPayments(page, pageSize int, studentID uint, period string, isPaid *bool) ([]Payment, int64, error)
	// FindRecurringByStudentAndPeriod looks up the single monthly dues row
	// for (student, period); equipment charges are excluded.
	FindRecurringByStudentAndPeriod(studentID uint, period string) (*Payment, error)
	UpdateUnpaidAmount(id uint, amount float64, notes string) error
	// MarkPaid/MarkUnpaid flip is_paid and payment_date together and keep the
	// student's cached payment_status in step, all in one transaction.
	MarkPaid(id uint) (*Payment, error)
	MarkUnpaid(id uint) (*Payment, error)

	HasRunForPeriod(period string) (bool, error)
	RecordRun(period string) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePayment(payment *Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetPaymentByID(id uint) (*Payment, error) {
	var payment Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetPayments(page, pageSize int, studentID uint, period string, isPaid *bool) ([]Payment, int64, error) {
	var payments []Payment
	var total int64

	query := r.db.Model(&Payment{})
	if studentID != 0 {
		query = query.Where("student_id = ?", studentID)
	}
	if period != "" {
		query = query.Where("payment_period = ?", period)
	}
	if isPaid != nil {
		query = query.Where("is_paid = ?", *isPaid)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("period_year DESC, period_month DESC, student_id ASC").Offset(offset).Limit(pageSize).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *paymentRepository) FindRecurringByStudentAndPeriod(studentID uint, period string) (*Payment, error) {
	var payment Payment
	err := r.db.Where("student_id = ? AND payment_period = ? AND equipment_assignment_id IS NULL", studentID, period).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// UpdateUnpaidAmount corrects the amount of a dues row that has not been paid
// yet. Paid rows are guarded by the WHERE clause; touching one is an
// ErrAlreadyPaid, never a silent overwrite.
func (r *paymentRepository) UpdateUnpaidAmount(id uint, amount float64, notes string) error {
	res := r.db.Model(&Payment{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]interface{}{
			"amount": amount,
			"notes":  notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetPaymentByID(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperr.ErrNotFound
		}
		return apperr.ErrAlreadyPaid
	}
	return nil
}

func (r *paymentRepository) MarkPaid(id uint) (*Payment, error) {
	var payment Payment
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}

		// Conditional flip: the is_paid predicate keeps a concurrent
		// double-pay from both succeeding.
		now := time.Now()
		res := tx.Model(&Payment{}).
			Where("id = ? AND is_paid = ?", id, false).
			Updates(map[string]interface{}{"is_paid": true, "payment_date": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyPaid
		}
		payment.IsPaid = true
		payment.PaymentDate = &now

		return tx.Model(&student.Student{}).
			Where("id = ?", payment.StudentID).
			Update("payment_status", student.PaymentStatusPaid).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) MarkUnpaid(id uint) (*Payment, error) {
	var payment Payment
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}

		res := tx.Model(&Payment{}).
			Where("id = ? AND is_paid = ?", id, true).
			Updates(map[string]interface{}{"is_paid": false, "payment_date": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotPaid
		}
		payment.IsPaid = false
		payment.PaymentDate = nil

		// The revert puts the student's cached dues state back to pending.
		return tx.Model(&student.Student{}).
			Where("id = ?", payment.StudentID).
			Update("payment_status", student.PaymentStatusPending).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) HasRunForPeriod(period string) (bool, error) {
	var count int64
	if err := r.db.Model(&FeeRun{}).Where("period = ?", period).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *paymentRepository) RecordRun(period string) error {
	err := r.db.Create(&FeeRun{Period: period}).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil // re-runs keep the original marker
	}
	return err
}
