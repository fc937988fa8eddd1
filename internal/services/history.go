package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/repository"
)

// HistoryRecorder diffs ticket updates against the stored record and
// appends one immutable history entry per mutating call. It never fails
// the surrounding operation: an empty diff is a no-op and write failures
// are logged, not raised.
type HistoryRecorder struct {
	repo   repository.HistoryRepository
	logger *zap.Logger
}

func NewHistoryRecorder(repo repository.HistoryRepository, logger *zap.Logger) *HistoryRecorder {
	return &HistoryRecorder{repo: repo, logger: logger}
}

// DiffUpdate compares a partial update against the current ticket. Only
// fields that were provided (non-nil) and actually differ are reported.
func (h *HistoryRecorder) DiffUpdate(current *models.Ticket, req *models.TicketUpdateRequest) []models.FieldChange {
	var changes []models.FieldChange

	add := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, models.FieldChange{Field: field, OldValue: oldVal, NewValue: newVal})
		}
	}

	if req.SubCategory != nil {
		add("sub_category", current.SubCategory, *req.SubCategory)
	}
	if req.ClientName != nil {
		add("client_name", current.ClientName, *req.ClientName)
	}
	if req.UnitID != nil {
		add("unit_id", current.UnitID, *req.UnitID)
	}
	if req.Priority != nil {
		add("priority", current.Priority, *req.Priority)
	}
	if req.Status != nil {
		add("status", string(current.Status), string(*req.Status))
	}
	if req.Assignee != nil {
		add("assignee", current.Assignee, *req.Assignee)
	}
	if req.SLADays != nil {
		add("sla_days", fmt.Sprintf("%d", current.SLADays), fmt.Sprintf("%d", *req.SLADays))
	}

	return changes
}

// Record appends a history entry for the given changes. A nil or empty
// change list writes nothing.
func (h *HistoryRecorder) Record(ctx context.Context, ticketID uuid.UUID, changeType models.HistoryChangeType, changes []models.FieldChange, changedBy, reason string, at time.Time) {
	if len(changes) == 0 {
		return
	}

	data, err := json.Marshal(changes)
	if err != nil {
		h.logger.Error("encode history changes", zap.Error(err), zap.String("ticket_id", ticketID.String()))
		return
	}

	entry := &models.TicketHistory{
		TicketID:   ticketID,
		ChangeType: changeType,
		Changes:    string(data),
		ChangedBy:  changedBy,
		Reason:     reason,
		CreatedAt:  at,
	}
	if err := h.repo.Create(ctx, entry); err != nil {
		h.logger.Error("append ticket history", zap.Error(err), zap.String("ticket_id", ticketID.String()))
	}
}

// List returns a ticket's history, newest first.
func (h *HistoryRecorder) List(ctx context.Context, ticketID uuid.UUID) ([]models.TicketHistory, error) {
	return h.repo.ListByTicket(ctx, ticketID)
}
