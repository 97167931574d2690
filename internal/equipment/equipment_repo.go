package equipment

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kulupsoft/klub/pkg/apperr"
)

// EquipmentRepository is the stock ledger. Assign/Return pair the assignment
// row mutation with the availability counter in a single transaction; there
// is no window where one exists without the other.
type EquipmentRepository interface {
	CreateVariant(variant *EquipmentType) error
	GetVariantByID(id uint) (*EquipmentType, error)
	GetAllVariants(page, pageSize int, searchTerm string) ([]EquipmentType, int64, error)
	FindVariant(name, size string) (*EquipmentType, error)
	GetAvailableQuantity(equipmentTypeID uint, size string) (int, error)
	AddStock(equipmentTypeID uint, size string, delta int) (*EquipmentType, error)

	Assign(studentID, equipmentTypeID uint, size string, quantity int, notes string) (*EquipmentAssignment, error)
	Return(assignmentID uint) (*EquipmentAssignment, error)
	CloseAsLost(assignmentID uint) (*EquipmentAssignment, error)
	CloseAsDamaged(assignmentID uint) (*EquipmentAssignment, error)
	GetAssignmentByID(id uint) (*EquipmentAssignment, error)
	GetAssignments(page, pageSize int, studentID uint, status string) ([]EquipmentAssignment, int64, error)
}

type equipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates a new instance of EquipmentRepository.
func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

func (r *equipmentRepository) CreateVariant(variant *EquipmentType) error {
	if variant.Quantity < 0 || variant.AvailableQuantity < 0 || variant.AvailableQuantity > variant.Quantity {
		return apperr.ErrInvalidQuantity
	}
	return r.db.Create(variant).Error
}

func (r *equipmentRepository) GetVariantByID(id uint) (*EquipmentType, error) {
	var variant EquipmentType
	err := r.db.First(&variant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *equipmentRepository) GetAllVariants(page, pageSize int, searchTerm string) ([]EquipmentType, int64, error) {
	var variants []EquipmentType
	var total int64

	query := r.db.Model(&EquipmentType{})
	if searchTerm != "" {
		query = query.Where("name ILIKE ?", "%"+searchTerm+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("name ASC, size ASC").Offset(offset).Limit(pageSize).Find(&variants).Error; err != nil {
		return nil, 0, err
	}
	return variants, total, nil
}

// FindVariant resolves a (name, size) pair. A missing pair is
// ErrVariantNotFound; variants are never created implicitly.
func (r *equipmentRepository) FindVariant(name, size string) (*EquipmentType, error) {
	var variant EquipmentType
	err := r.db.Where("LOWER(name) = LOWER(?) AND size = ?", name, size).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (r *equipmentRepository) GetAvailableQuantity(equipmentTypeID uint, size string) (int, error) {
	var variant EquipmentType
	err := r.db.Where("id = ? AND size = ?", equipmentTypeID, size).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrVariantNotFound
		}
		return 0, err
	}
	return variant.AvailableQuantity, nil
}

// AddStock books new stock arriving: both counters grow by delta.
func (r *equipmentRepository) AddStock(equipmentTypeID uint, size string, delta int) (*EquipmentType, error) {
	if delta <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	var variant EquipmentType
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&EquipmentType{}).
			Where("id = ? AND size = ?", equipmentTypeID, size).
			Updates(map[string]interface{}{
				"quantity":           gorm.Expr("quantity + ?", delta),
				"available_quantity": gorm.Expr("available_quantity + ?", delta),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrVariantNotFound
		}
		return tx.First(&variant, equipmentTypeID).Error
	})
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// Assign creates an assignment row and decrements availability as one atomic
// unit. The decrement is a conditional update guarded by the current
// availability, so concurrent assignments for the same variant cannot
// over-allocate.
func (r *equipmentRepository) Assign(studentID, equipmentTypeID uint, size string, quantity int, notes string) (*EquipmentAssignment, error) {
	if quantity < 1 {
		return nil, apperr.ErrInvalidQuantity
	}

	assignment := &EquipmentAssignment{
		StudentID:       studentID,
		EquipmentTypeID: equipmentTypeID,
		Size:            size,
		Quantity:        quantity,
		Status:          StatusAssigned,
		AssignedDate:    time.Now(),
		Notes:           notes,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&EquipmentType{}).
			Where("id = ? AND size = ? AND available_quantity >= ?", equipmentTypeID, size, quantity).
			Update("available_quantity", gorm.Expr("available_quantity - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish a missing variant from exhausted stock.
			var count int64
			if err := tx.Model(&EquipmentType{}).Where("id = ? AND size = ?", equipmentTypeID, size).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.ErrVariantNotFound
			}
			return apperr.ErrInsufficientStock
		}
		return tx.Create(assignment).Error
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// Return flips an assignment to returned and restores availability in the
// same transaction. The flip is a conditional update on the assigned state,
// so two concurrent returns of the same assignment cannot both restore stock.
func (r *equipmentRepository) Return(assignmentID uint) (*EquipmentAssignment, error) {
	var assignment EquipmentAssignment
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&assignment, assignmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&EquipmentAssignment{}).
			Where("id = ? AND status = ?", assignmentID, StatusAssigned).
			Updates(map[string]interface{}{"status": StatusReturned, "returned_date": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyReturned
		}
		assignment.Status = StatusReturned
		assignment.ReturnedDate = &now

		// available_quantity never exceeds quantity: the conditional flip
		// above admits exactly one restore of the units the matching
		// Assign decremented.
		return tx.Model(&EquipmentType{}).
			Where("id = ?", assignment.EquipmentTypeID).
			Update("available_quantity", gorm.Expr("available_quantity + ?", assignment.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *equipmentRepository) CloseAsLost(assignmentID uint) (*EquipmentAssignment, error) {
	return r.closeTerminal(assignmentID, StatusLost)
}

func (r *equipmentRepository) CloseAsDamaged(assignmentID uint) (*EquipmentAssignment, error) {
	return r.closeTerminal(assignmentID, StatusDamaged)
}

// closeTerminal ends an assignment without restoring availability; the units
// are gone, so the variant's total shrinks by the assigned quantity. The same
// conditional flip as Return keeps a doubly closed assignment from shrinking
// the total twice.
func (r *equipmentRepository) closeTerminal(assignmentID uint, status string) (*EquipmentAssignment, error) {
	var assignment EquipmentAssignment
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&assignment, assignmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&EquipmentAssignment{}).
			Where("id = ? AND status = ?", assignmentID, StatusAssigned).
			Updates(map[string]interface{}{"status": status, "returned_date": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyReturned
		}
		assignment.Status = status
		assignment.ReturnedDate = &now

		return tx.Model(&EquipmentType{}).
			Where("id = ? AND quantity >= ?", assignment.EquipmentTypeID, assignment.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", assignment.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *equipmentRepository) GetAssignmentByID(id uint) (*EquipmentAssignment, error) {
	var assignment EquipmentAssignment
	err := r.db.First(&assignment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *equipmentRepository) GetAssignments(page, pageSize int, studentID uint, status string) ([]EquipmentAssignment, int64, error) {
	var assignments []EquipmentAssignment
	var total int64

	query := r.db.Model(&EquipmentAssignment{})
	if studentID != 0 {
		query = query.Where("student_id = ?", studentID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("assigned_date DESC").Offset(offset).Limit(pageSize).Find(&assignments).Error; err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}
