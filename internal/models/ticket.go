package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusRejected   TicketStatus = "rejected"
	StatusOverdue    TicketStatus = "overdue"
	StatusClosed     TicketStatus = "closed"
)

// TerminalForOverdue reports whether a status is exempt from overdue
// promotion.
func (s TicketStatus) TerminalForOverdue() bool {
	switch s {
	case StatusResolved, StatusRejected, StatusOverdue, StatusClosed:
		return true
	}
	return false
}

// StepState is the progress state of one workflow step on a ticket.
type StepState string

const (
	StepPending    StepState = "pending"
	StepInProgress StepState = "in_progress"
	StepCompleted  StepState = "completed"
)

// ActionType is the kind of department action recorded against a step.
type ActionType string

const (
	ActionInProgress ActionType = "in_progress"
	ActionCompleted  ActionType = "completed"
)

// Ticket is a client support request moving through a workflow of
// department steps. WorkflowStatus mirrors the assigned workflow's steps
// and is stored as a JSON document alongside the scalar columns.
type Ticket struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TicketNumber string    `gorm:"size:50;uniqueIndex;not null" json:"ticket_number"`

	DepartmentID uuid.UUID   `gorm:"type:uuid;index;not null" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`

	TicketTypeID *uuid.UUID  `gorm:"type:uuid;index" json:"ticket_type_id"`
	TicketType   *TicketType `gorm:"foreignKey:TicketTypeID" json:"ticket_type,omitempty"`

	SubCategory string `gorm:"size:100" json:"sub_category"`
	ClientName  string `gorm:"size:200;not null" json:"client_name"`
	UnitID      string `gorm:"size:50" json:"unit_id"` // property unit reference
	Priority    string `gorm:"size:20;default:'medium';index" json:"priority"`

	Status TicketStatus `gorm:"size:20;not null;default:'open';index" json:"status"`

	// Assignee is the current handler; TicketOwner is the requestor.
	Assignee    string `gorm:"size:200" json:"assignee"`
	TicketOwner string `gorm:"size:200" json:"ticket_owner"`

	WorkflowID            *uuid.UUID `gorm:"type:uuid;index" json:"workflow_id"`
	CurrentWorkflowStep   int        `gorm:"default:1" json:"current_workflow_step"`
	CurrentDepartmentID   *uuid.UUID `gorm:"type:uuid;index" json:"current_department_id"`
	CurrentDepartmentName string     `gorm:"size:100" json:"current_department_name"`
	IsFullyResolved       bool       `gorm:"default:false" json:"is_fully_resolved"`

	// JSON array of WorkflowStepStatus mirroring the assigned workflow
	WorkflowStatus string `gorm:"type:text" json:"workflow_status"`

	// SLADays is the working-day duration the due date derives from.
	SLADays int        `gorm:"default:7" json:"sla_days"`
	DueDate *time.Time `gorm:"index" json:"due_date"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StepStatuses decodes the per-step progress document.
func (t *Ticket) StepStatuses() ([]WorkflowStepStatus, error) {
	if t.WorkflowStatus == "" {
		return nil, nil
	}
	var statuses []WorkflowStepStatus
	if err := json.Unmarshal([]byte(t.WorkflowStatus), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// SetStepStatuses encodes and stores the per-step progress document.
func (t *Ticket) SetStepStatuses(statuses []WorkflowStepStatus) error {
	data, err := json.Marshal(statuses)
	if err != nil {
		return err
	}
	t.WorkflowStatus = string(data)
	return nil
}

// WorkflowStepStatus is the live progress record for one workflow step of
// a ticket. Steps before the first non-completed step are completed, at
// most one step is in_progress, and all steps after it are pending.
type WorkflowStepStatus struct {
	StepNumber     int                `json:"step_number"`
	DepartmentID   uuid.UUID          `json:"department_id"`
	DepartmentName string             `json:"department_name"`
	Status         StepState          `json:"status"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Actions        []DepartmentAction `json:"actions,omitempty"`
}

// DepartmentAction is a timestamped note recorded against a workflow step,
// either starting or completing that step's work.
type DepartmentAction struct {
	ID          uuid.UUID  `json:"id"`
	Type        ActionType `json:"type"`
	Notes       string     `json:"notes"`
	Timestamp   time.Time  `json:"timestamp"`
	IsComplete  bool       `json:"is_complete"`
	PerformedBy string     `json:"performed_by,omitempty"`
	NewAssignee string     `json:"new_assignee,omitempty"`
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	DepartmentID *uuid.UUID    `json:"department_id"`
	Status       *TicketStatus `json:"status"`
	Priority     *string       `json:"priority"`
	Assignee     *string       `json:"assignee"`
	Search       string        `json:"search"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

// TicketCreateRequest for creating a new ticket
type TicketCreateRequest struct {
	DepartmentID string  `json:"department_id" validate:"required,uuid"`
	TicketTypeID *string `json:"ticket_type_id" validate:"omitempty,uuid"`
	SubCategory  string  `json:"sub_category" validate:"max=100"`
	ClientName   string  `json:"client_name" validate:"required,min=1,max=200"`
	UnitID       string  `json:"unit_id" validate:"max=50"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	TicketOwner  string  `json:"ticket_owner" validate:"max=200"`
	Assignee     string  `json:"assignee" validate:"max=200"`
	WorkflowID   *string `json:"workflow_id" validate:"omitempty,uuid"`
	SLADays      *int    `json:"sla_days" validate:"omitempty,gte=0"`
}

// TicketUpdateRequest carries a partial ticket edit. Nil pointers mean
// "field not provided" and are skipped by the change recorder.
type TicketUpdateRequest struct {
	SubCategory *string       `json:"sub_category" validate:"omitempty,max=100"`
	ClientName  *string       `json:"client_name" validate:"omitempty,min=1,max=200"`
	UnitID      *string       `json:"unit_id" validate:"omitempty,max=50"`
	Priority    *string       `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *TicketStatus `json:"status" validate:"omitempty,oneof=open in_progress resolved rejected overdue"`
	Assignee    *string       `json:"assignee" validate:"omitempty,max=200"`
	SLADays     *int          `json:"sla_days" validate:"omitempty,gte=0"`
	UpdatedBy   string        `json:"updated_by" validate:"max=200"`
}

// DepartmentActionRequest records work on one workflow step.
type DepartmentActionRequest struct {
	StepNumber  int    `json:"step_number" validate:"required,gte=1"`
	ActionType  string `json:"action_type" validate:"required,oneof=in_progress completed"`
	Notes       string `json:"notes" validate:"max=2000"`
	IsComplete  bool   `json:"is_complete"`
	PerformedBy string `json:"performed_by" validate:"max=200"`
	NewAssignee string `json:"new_assignee" validate:"max=200"`
}

// ReassignRequest changes the acting assignee on a ticket.
type ReassignRequest struct {
	Assignee  string `json:"assignee" validate:"required,min=1,max=200"`
	ChangedBy string `json:"changed_by" validate:"max=200"`
}

// RevertRequest rewinds a ticket to an earlier department.
type RevertRequest struct {
	DepartmentID string `json:"department_id" validate:"required,uuid"`
	Reason       string `json:"reason" validate:"required,min=1,max=2000"`
	RevertedBy   string `json:"reverted_by" validate:"max=200"`
}

// TicketResponse for API responses
type TicketResponse struct {
	ID                    uuid.UUID            `json:"id"`
	TicketNumber          string               `json:"ticket_number"`
	DepartmentID          uuid.UUID            `json:"department_id"`
	DepartmentName        string               `json:"department_name,omitempty"`
	TicketTypeID          *uuid.UUID           `json:"ticket_type_id,omitempty"`
	SubCategory           string               `json:"sub_category,omitempty"`
	ClientName            string               `json:"client_name"`
	UnitID                string               `json:"unit_id,omitempty"`
	Priority              string               `json:"priority"`
	Status                TicketStatus         `json:"status"`
	Assignee              string               `json:"assignee,omitempty"`
	TicketOwner           string               `json:"ticket_owner,omitempty"`
	WorkflowID            *uuid.UUID           `json:"workflow_id,omitempty"`
	CurrentWorkflowStep   int                  `json:"current_workflow_step"`
	CurrentDepartmentID   *uuid.UUID           `json:"current_department_id,omitempty"`
	CurrentDepartmentName string               `json:"current_department_name,omitempty"`
	IsFullyResolved       bool                 `json:"is_fully_resolved"`
	WorkflowStatus        []WorkflowStepStatus `json:"workflow_status"`
	SLADays               int                  `json:"sla_days"`
	DueDate               *time.Time           `json:"due_date,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// TicketStatsResponse summarizes ticket counts by status.
type TicketStatsResponse struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
	Overdue    int64 `json:"overdue"`
	Closed     int64 `json:"closed"`
}

func ToTicketResponse(t *Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                    t.ID,
		TicketNumber:          t.TicketNumber,
		DepartmentID:          t.DepartmentID,
		TicketTypeID:          t.TicketTypeID,
		SubCategory:           t.SubCategory,
		ClientName:            t.ClientName,
		UnitID:                t.UnitID,
		Priority:              t.Priority,
		Status:                t.Status,
		Assignee:              t.Assignee,
		TicketOwner:           t.TicketOwner,
		WorkflowID:            t.WorkflowID,
		CurrentWorkflowStep:   t.CurrentWorkflowStep,
		CurrentDepartmentID:   t.CurrentDepartmentID,
		CurrentDepartmentName: t.CurrentDepartmentName,
		IsFullyResolved:       t.IsFullyResolved,
		SLADays:               t.SLADays,
		DueDate:               t.DueDate,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
	if t.Department != nil {
		resp.DepartmentName = t.Department.Name
	}
	if statuses, err := t.StepStatuses(); err == nil {
		resp.WorkflowStatus = statuses
	}
	return resp
}
