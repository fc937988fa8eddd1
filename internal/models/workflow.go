package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/pkg/workdays"
)

// DurationUnit is the denomination of a workflow step estimate.
type DurationUnit string

const (
	DurationHours DurationUnit = "hours"
	DurationDays  DurationUnit = "days"
)

// Workflow is a reusable, ordered template of department steps a ticket
// moves through. At most one workflow is marked as the system default.
type Workflow struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"not null;size:100;uniqueIndex" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	IsDefault   bool      `gorm:"default:false;index" json:"is_default"`

	Steps []WorkflowStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (w *Workflow) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// StepCount returns the number of steps in the canonical template.
func (w *Workflow) StepCount() int {
	return len(w.Steps)
}

// StepByNumber returns the step with the given 1-based number.
func (w *Workflow) StepByNumber(n int) *WorkflowStep {
	for i := range w.Steps {
		if w.Steps[i].StepNumber == n {
			return &w.Steps[i]
		}
	}
	return nil
}

// TotalSLADays aggregates the step estimates into whole working days,
// counting hour-denominated steps as ceil(hours/8).
func (w *Workflow) TotalSLADays() int {
	total := 0
	for _, s := range w.Steps {
		total += workdays.DayEquivalent(s.EstimatedValue, workdays.Unit(s.EstimatedUnit))
	}
	return total
}

// WorkflowStep is one department's position in a workflow template.
// Step numbers are 1-based and contiguous within a workflow.
type WorkflowStep struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	WorkflowID uuid.UUID `gorm:"type:uuid;index;not null" json:"workflow_id"`

	DepartmentID   uuid.UUID   `gorm:"type:uuid;index;not null" json:"department_id"`
	Department     *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	DepartmentName string      `gorm:"size:100;not null" json:"department_name"`

	StepNumber     int          `gorm:"not null" json:"step_number"`
	EstimatedValue int          `gorm:"not null;default:1" json:"estimated_value"`
	EstimatedUnit  DurationUnit `gorm:"size:10;not null;default:'days'" json:"estimated_unit"`
	Required       bool         `gorm:"default:true" json:"required"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *WorkflowStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// WorkflowStepRequest describes one step when creating or replacing a
// workflow's step list. Order in the slice determines step numbers.
type WorkflowStepRequest struct {
	DepartmentID   string `json:"department_id" validate:"required,uuid"`
	EstimatedValue int    `json:"estimated_value" validate:"required,gt=0"`
	EstimatedUnit  string `json:"estimated_unit" validate:"required,oneof=hours days"`
}

// WorkflowCreateRequest for creating a new workflow
type WorkflowCreateRequest struct {
	Name        string                `json:"name" validate:"required,min=1,max=100"`
	Description string                `json:"description" validate:"max=500"`
	IsDefault   bool                  `json:"is_default"`
	Steps       []WorkflowStepRequest `json:"steps" validate:"required,min=1,dive"`
}

// WorkflowUpdateRequest for updating a workflow. A nil Steps slice leaves
// the step list untouched; a non-nil slice replaces it wholesale.
type WorkflowUpdateRequest struct {
	Name        string                `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string               `json:"description" validate:"omitempty,max=500"`
	IsDefault   *bool                 `json:"is_default"`
	Steps       []WorkflowStepRequest `json:"steps" validate:"omitempty,min=1,dive"`
}

// WorkflowStepResponse for API responses
type WorkflowStepResponse struct {
	ID             uuid.UUID    `json:"id"`
	DepartmentID   uuid.UUID    `json:"department_id"`
	DepartmentName string       `json:"department_name"`
	StepNumber     int          `json:"step_number"`
	EstimatedValue int          `json:"estimated_value"`
	EstimatedUnit  DurationUnit `json:"estimated_unit"`
	Required       bool         `json:"required"`
}

// WorkflowResponse for API responses
type WorkflowResponse struct {
	ID           uuid.UUID              `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	IsDefault    bool                   `json:"is_default"`
	Steps        []WorkflowStepResponse `json:"steps"`
	TotalSLADays int                    `json:"total_sla_days"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func ToWorkflowStepResponse(s *WorkflowStep) WorkflowStepResponse {
	return WorkflowStepResponse{
		ID:             s.ID,
		DepartmentID:   s.DepartmentID,
		DepartmentName: s.DepartmentName,
		StepNumber:     s.StepNumber,
		EstimatedValue: s.EstimatedValue,
		EstimatedUnit:  s.EstimatedUnit,
		Required:       s.Required,
	}
}

func ToWorkflowResponse(w *Workflow) WorkflowResponse {
	resp := WorkflowResponse{
		ID:           w.ID,
		Name:         w.Name,
		Description:  w.Description,
		IsDefault:    w.IsDefault,
		Steps:        make([]WorkflowStepResponse, len(w.Steps)),
		TotalSLADays: w.TotalSLADays(),
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
	for i, s := range w.Steps {
		resp.Steps[i] = ToWorkflowStepResponse(&s)
	}
	return resp
}
