package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
)

type HistoryRepository interface {
	Create(ctx context.Context, entry *models.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.TicketHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *models.TicketHistory) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.TicketHistory, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var entries []models.TicketHistory
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
