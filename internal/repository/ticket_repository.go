package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, filter *models.TicketFilter) ([]models.Ticket, int64, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error

	GenerateTicketNumber(ctx context.Context) (string, error)
	GetStats(ctx context.Context) (*models.TicketStatsResponse, error)

	// PromoteOverdue flips every ticket whose due date has passed and whose
	// status is still promotable to overdue in a single conditional update.
	// Returns the number of tickets promoted.
	PromoteOverdue(ctx context.Context, now time.Time) (int64, error)

	// ListMissingWorkflowStatus returns tickets created before workflow
	// tracking existed, for the backfill migration.
	ListMissingWorkflowStatus(ctx context.Context) ([]models.Ticket, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var ticket models.Ticket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("TicketType").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter *models.TicketFilter) ([]models.Ticket, int64, error) {
	if r.db == nil {
		return nil, 0, ErrStoreUnavailable
	}
	var tickets []models.Ticket
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Ticket{})

	if filter != nil {
		if filter.DepartmentID != nil {
			query = query.Where("department_id = ?", *filter.DepartmentID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Priority != nil {
			query = query.Where("priority = ?", *filter.Priority)
		}
		if filter.Assignee != nil {
			query = query.Where("assignee = ?", *filter.Assignee)
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			query = query.Where("ticket_number ILIKE ? OR client_name ILIKE ? OR unit_id ILIKE ?",
				pattern, pattern, pattern)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Department").Order("created_at DESC")

	if filter != nil && filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	if err := query.Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *models.Ticket) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Save(ticket).Error
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ticketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Delete(&models.Ticket{}, "id = ?", id).Error
}

func (r *ticketRepository) GenerateTicketNumber(ctx context.Context) (string, error) {
	if r.db == nil {
		return "", ErrStoreUnavailable
	}
	year := time.Now().Year()

	// Highest issued suffix for the year, soft-deleted rows included so a
	// reissued number can never collide with the unique index. The
	// zero-padded suffix makes lexical order match numeric order.
	var last []string
	err := r.db.WithContext(ctx).Model(&models.Ticket{}).Unscoped().
		Where("ticket_number LIKE ?", fmt.Sprintf("TKT-%d-%%", year)).
		Order("ticket_number DESC").
		Limit(1).
		Pluck("ticket_number", &last).Error
	if err != nil {
		return "", err
	}

	latest := ""
	if len(last) > 0 {
		latest = last[0]
	}
	return nextTicketNumber(year, latest), nil
}

// nextTicketNumber returns the ticket number following latest within the
// year's sequence. An empty or foreign latest starts the sequence at 1.
func nextTicketNumber(year int, latest string) string {
	prefix := fmt.Sprintf("TKT-%d-", year)
	seq := 0
	if strings.HasPrefix(latest, prefix) {
		if n, err := strconv.Atoi(strings.TrimPrefix(latest, prefix)); err == nil {
			seq = n
		}
	}
	return fmt.Sprintf("%s%06d", prefix, seq+1)
}

func (r *ticketRepository) GetStats(ctx context.Context) (*models.TicketStatsResponse, error) {
	if r.db == nil {
		return &models.TicketStatsResponse{}, nil
	}
	stats := &models.TicketStatsResponse{}

	counts := []struct {
		status models.TicketStatus
		dest   *int64
	}{
		{models.StatusOpen, &stats.Open},
		{models.StatusInProgress, &stats.InProgress},
		{models.StatusResolved, &stats.Resolved},
		{models.StatusRejected, &stats.Rejected},
		{models.StatusOverdue, &stats.Overdue},
		{models.StatusClosed, &stats.Closed},
	}

	if err := r.db.WithContext(ctx).Model(&models.Ticket{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		if err := r.db.WithContext(ctx).Model(&models.Ticket{}).
			Where("status = ?", c.status).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (r *ticketRepository) PromoteOverdue(ctx context.Context, now time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrStoreUnavailable
	}
	// Midnight granularity: a ticket due today is not yet overdue.
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	result := r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("due_date IS NOT NULL AND due_date < ?", cutoff).
		Where("status NOT IN ?", []models.TicketStatus{
			models.StatusResolved, models.StatusRejected, models.StatusOverdue, models.StatusClosed,
		}).
		Updates(map[string]interface{}{
			"status":     models.StatusOverdue,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *ticketRepository) ListMissingWorkflowStatus(ctx context.Context) ([]models.Ticket, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("workflow_status IS NULL OR workflow_status = ''").
		Find(&tickets).Error
	return tickets, err
}
