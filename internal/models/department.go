package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department is an operating unit that handles ticket workflow steps.
type Department struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"not null;size:100;uniqueIndex" json:"name"`

	// JSON array of sub-category names offered by this department
	SubCategories string `gorm:"type:text" json:"sub_categories"`

	TicketTypes []TicketType `gorm:"foreignKey:DepartmentID" json:"ticket_types,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// SubCategoryNames decodes the stored sub-category list.
func (d *Department) SubCategoryNames() []string {
	if d.SubCategories == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(d.SubCategories), &names); err != nil {
		return nil
	}
	return names
}

// TicketType categorizes tickets within a department and carries the
// default SLA duration applied when a ticket of this type is created.
type TicketType struct {
	ID           uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	DepartmentID uuid.UUID   `gorm:"type:uuid;index;not null" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`

	Name            string `gorm:"not null;size:100" json:"name"`
	DefaultDuration int    `gorm:"default:7" json:"default_duration"` // working days
	Priority        string `gorm:"size:20;default:'medium'" json:"priority"`
	SubCategory     string `gorm:"size:100" json:"sub_category"`

	// Optional workflow this ticket type routes into
	WorkflowID *uuid.UUID `gorm:"type:uuid;index" json:"workflow_id"`

	SortOrder int `gorm:"default:0" json:"sort_order"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *TicketType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// DepartmentCreateRequest for creating a new department
type DepartmentCreateRequest struct {
	Name          string              `json:"name" validate:"required,min=1,max=100"`
	SubCategories []string            `json:"sub_categories"`
	TicketTypes   []TicketTypeRequest `json:"ticket_types"`
}

// DepartmentUpdateRequest for updating a department
type DepartmentUpdateRequest struct {
	Name          string              `json:"name" validate:"omitempty,min=1,max=100"`
	SubCategories []string            `json:"sub_categories"`
	TicketTypes   []TicketTypeRequest `json:"ticket_types"`
}

// TicketTypeRequest for creating or replacing a ticket type
type TicketTypeRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=100"`
	DefaultDuration int     `json:"default_duration" validate:"gte=0"`
	Priority        string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	SubCategory     string  `json:"sub_category" validate:"max=100"`
	WorkflowID      *string `json:"workflow_id" validate:"omitempty,uuid"`
}

// DepartmentResponse for API responses
type DepartmentResponse struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	SubCategories []string             `json:"sub_categories"`
	TicketTypes   []TicketTypeResponse `json:"ticket_types,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// TicketTypeResponse for API responses
type TicketTypeResponse struct {
	ID              uuid.UUID  `json:"id"`
	DepartmentID    uuid.UUID  `json:"department_id"`
	Name            string     `json:"name"`
	DefaultDuration int        `json:"default_duration"`
	Priority        string     `json:"priority"`
	SubCategory     string     `json:"sub_category,omitempty"`
	WorkflowID      *uuid.UUID `json:"workflow_id,omitempty"`
}

func ToDepartmentResponse(d *Department) DepartmentResponse {
	resp := DepartmentResponse{
		ID:            d.ID,
		Name:          d.Name,
		SubCategories: d.SubCategoryNames(),
		CreatedAt:     d.CreatedAt,
	}

	if len(d.TicketTypes) > 0 {
		resp.TicketTypes = make([]TicketTypeResponse, len(d.TicketTypes))
		for i, tt := range d.TicketTypes {
			resp.TicketTypes[i] = ToTicketTypeResponse(&tt)
		}
	}

	return resp
}

func ToTicketTypeResponse(t *TicketType) TicketTypeResponse {
	return TicketTypeResponse{
		ID:              t.ID,
		DepartmentID:    t.DepartmentID,
		Name:            t.Name,
		DefaultDuration: t.DefaultDuration,
		Priority:        t.Priority,
		SubCategory:     t.SubCategory,
		WorkflowID:      t.WorkflowID,
	}
}

// EncodeSubCategories serializes a sub-category list for storage.
func EncodeSubCategories(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "[]"
	}
	return string(data)
}
