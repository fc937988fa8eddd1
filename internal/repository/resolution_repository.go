package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
)

type ResolutionRepository interface {
	Create(ctx context.Context, resolution *models.WorkflowResolution) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WorkflowResolution, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.WorkflowResolution, error)

	CreateAttachment(ctx context.Context, attachment *models.FileAttachment) error
	FindAttachmentByID(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error)
}

type resolutionRepository struct {
	db *gorm.DB
}

func NewResolutionRepository(db *gorm.DB) ResolutionRepository {
	return &resolutionRepository{db: db}
}

func (r *resolutionRepository) Create(ctx context.Context, resolution *models.WorkflowResolution) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Create(resolution).Error
}

func (r *resolutionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.WorkflowResolution, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var resolution models.WorkflowResolution
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		First(&resolution, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &resolution, nil
}

func (r *resolutionRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.WorkflowResolution, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var resolutions []models.WorkflowResolution
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("ticket_id = ?", ticketID).
		Order("step_number ASC, resolved_at ASC").
		Find(&resolutions).Error
	return resolutions, err
}

func (r *resolutionRepository) CreateAttachment(ctx context.Context, attachment *models.FileAttachment) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *resolutionRepository) FindAttachmentByID(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var attachment models.FileAttachment
	err := r.db.WithContext(ctx).First(&attachment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}
