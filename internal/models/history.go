package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryChangeType distinguishes the kind of mutation a history entry
// records.
type HistoryChangeType string

const (
	ChangeTypeFieldChange  HistoryChangeType = "field_change"
	ChangeTypeReassignment HistoryChangeType = "reassignment"
	ChangeTypeRevert       HistoryChangeType = "revert"
	ChangeTypeCreated      HistoryChangeType = "created"
	ChangeTypeClosed       HistoryChangeType = "closed"
)

// TicketHistory is one append-only audit entry: every field mutated by a
// single update call, stamped with the update's timestamp.
type TicketHistory struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TicketID uuid.UUID `gorm:"type:uuid;index;not null" json:"ticket_id"`
	Ticket   *Ticket   `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`

	ChangeType HistoryChangeType `gorm:"size:30;not null;index" json:"change_type"`

	// JSON array of FieldChange
	Changes string `gorm:"type:text;not null" json:"changes"`

	ChangedBy string `gorm:"size:200" json:"changed_by"`
	Reason    string `gorm:"size:2000" json:"reason"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (h *TicketHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// FieldChange is a single field mutation inside a history entry.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// FieldChanges decodes the stored change list.
func (h *TicketHistory) FieldChanges() []FieldChange {
	if h.Changes == "" {
		return nil
	}
	var changes []FieldChange
	if err := json.Unmarshal([]byte(h.Changes), &changes); err != nil {
		return nil
	}
	return changes
}

// HistoryResponse for API responses
type HistoryResponse struct {
	ID         uuid.UUID         `json:"id"`
	TicketID   uuid.UUID         `json:"ticket_id"`
	ChangeType HistoryChangeType `json:"change_type"`
	Changes    []FieldChange     `json:"changes"`
	ChangedBy  string            `json:"changed_by,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func ToHistoryResponse(h *TicketHistory) HistoryResponse {
	return HistoryResponse{
		ID:         h.ID,
		TicketID:   h.TicketID,
		ChangeType: h.ChangeType,
		Changes:    h.FieldChanges(),
		ChangedBy:  h.ChangedBy,
		Reason:     h.Reason,
		CreatedAt:  h.CreatedAt,
	}
}
