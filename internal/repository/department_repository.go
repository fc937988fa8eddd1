package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
)

// ErrStoreUnavailable is returned when the durable store backend was never
// opened. Read paths degrade to empty results; writes are rejected.
var ErrStoreUnavailable = errors.New("record store unavailable")

type DepartmentRepository interface {
	Create(ctx context.Context, dept *models.Department) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Department, error)
	FindByName(ctx context.Context, name string) (*models.Department, error)
	List(ctx context.Context) ([]models.Department, error)
	Update(ctx context.Context, dept *models.Department) error
	Delete(ctx context.Context, id uuid.UUID) error

	ReplaceTicketTypes(ctx context.Context, deptID uuid.UUID, types []models.TicketType) error
	FindTicketTypeByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error)
}

type departmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *departmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var dept models.Department
	err := r.db.WithContext(ctx).
		Preload("TicketTypes", func(db *gorm.DB) *gorm.DB {
			return db.Order("ticket_types.sort_order ASC")
		}).
		First(&dept, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) FindByName(ctx context.Context, name string) (*models.Department, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var dept models.Department
	err := r.db.WithContext(ctx).
		Preload("TicketTypes").
		First(&dept, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]models.Department, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var depts []models.Department
	err := r.db.WithContext(ctx).
		Preload("TicketTypes", func(db *gorm.DB) *gorm.DB {
			return db.Order("ticket_types.sort_order ASC")
		}).
		Order("name ASC").
		Find(&depts).Error
	return depts, err
}

func (r *departmentRepository) Update(ctx context.Context, dept *models.Department) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Save(dept).Error
}

func (r *departmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Delete(&models.Department{}, "id = ?", id).Error
}

// ReplaceTicketTypes swaps the department's ticket type list wholesale.
func (r *departmentRepository) ReplaceTicketTypes(ctx context.Context, deptID uuid.UUID, types []models.TicketType) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("department_id = ?", deptID).Delete(&models.TicketType{}).Error; err != nil {
			return err
		}
		for i := range types {
			types[i].DepartmentID = deptID
			types[i].SortOrder = i
			if err := tx.Create(&types[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *departmentRepository) FindTicketTypeByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var tt models.TicketType
	err := r.db.WithContext(ctx).First(&tt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}
