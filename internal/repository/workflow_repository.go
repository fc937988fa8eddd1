package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
)

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	FindDefault(ctx context.Context) (*models.Workflow, error)
	List(ctx context.Context) ([]models.Workflow, error)
	Update(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error

	// SetDefault marks one workflow as the default and clears the flag on
	// every other workflow in the same transaction.
	SetDefault(ctx context.Context, id uuid.UUID) error

	// ReplaceSteps swaps the workflow's step list wholesale, renumbering
	// steps densely from 1.
	ReplaceSteps(ctx context.Context, workflowID uuid.UUID, steps []models.WorkflowStep) error
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if workflow.IsDefault {
			if err := tx.Model(&models.Workflow{}).Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(workflow).Error
	})
}

func (r *workflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var workflow models.Workflow
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("workflow_steps.step_number ASC")
		}).
		First(&workflow, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *workflowRepository) FindDefault(ctx context.Context) (*models.Workflow, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var workflow models.Workflow
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("workflow_steps.step_number ASC")
		}).
		First(&workflow, "is_default = ?", true).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *workflowRepository) List(ctx context.Context) ([]models.Workflow, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var workflows []models.Workflow
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("workflow_steps.step_number ASC")
		}).
		Order("created_at ASC").
		Find(&workflows).Error
	return workflows, err
}

func (r *workflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if workflow.IsDefault {
			if err := tx.Model(&models.Workflow{}).
				Where("is_default = ? AND id <> ?", true, workflow.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Omit("Steps").Save(workflow).Error
	})
}

func (r *workflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", id).Delete(&models.WorkflowStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Workflow{}, "id = ?", id).Error
	})
}

func (r *workflowRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var workflow models.Workflow
		if err := tx.First(&workflow, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Workflow{}).Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Workflow{}).Where("id = ?", id).
			Update("is_default", true).Error
	})
}

func (r *workflowRepository) ReplaceSteps(ctx context.Context, workflowID uuid.UUID, steps []models.WorkflowStep) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.WorkflowStep{}).Error; err != nil {
			return err
		}
		for i := range steps {
			steps[i].WorkflowID = workflowID
			steps[i].StepNumber = i + 1
			if err := tx.Create(&steps[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
