package branch

import (
	"errors"

	"gorm.io/gorm"
)

type BranchRepository interface {
	CreateBranch(branch *SportBranch) error
	GetBranchByID(id uint) (*SportBranch, error)
	GetAllBranches() ([]SportBranch, error)
	UpdateBranch(branch *SportBranch) error
	DeleteBranch(id uint) error
	FindBranchByName(name string) (*SportBranch, error)
}

type branchRepository struct {
	db *gorm.DB
}

// NewBranchRepository creates a new instance of BranchRepository.
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) CreateBranch(branch *SportBranch) error {
	return r.db.Create(branch).Error
}

func (r *branchRepository) GetBranchByID(id uint) (*SportBranch, error) {
	var branch SportBranch
	err := r.db.First(&branch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) GetAllBranches() ([]SportBranch, error) {
	var branches []SportBranch
	if err := r.db.Order("name ASC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (r *branchRepository) UpdateBranch(branch *SportBranch) error {
	return r.db.Save(branch).Error
}

func (r *branchRepository) DeleteBranch(id uint) error {
	return r.db.Delete(&SportBranch{}, id).Error
}

// FindBranchByName matches case-insensitively; branch names are the join key
// used by student records.
func (r *branchRepository) FindBranchByName(name string) (*SportBranch, error) {
	var branch SportBranch
	err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &branch, nil
}
