package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SLAStatus classifies how a resolution's actual time compared to its
// expected SLA.
type SLAStatus string

const (
	SLAMet      SLAStatus = "met"
	SLAMissed   SLAStatus = "missed"
	SLAExceeded SLAStatus = "exceeded" // ahead of schedule
)

// WorkflowResolution is the immutable record of one resolve or revert
// action on a ticket, ordered by step number.
type WorkflowResolution struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TicketID uuid.UUID `gorm:"type:uuid;index;not null" json:"ticket_id"`
	Ticket   *Ticket   `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`

	StepNumber     int    `gorm:"not null" json:"step_number"`
	FromDepartment string `gorm:"size:100" json:"from_department"`
	ToDepartment   string `gorm:"size:100" json:"to_department"`

	ResolvedBy     string `gorm:"size:200" json:"resolved_by"`
	ResolutionText string `gorm:"type:text" json:"resolution_text"`

	IsFinalResolution bool `gorm:"default:false" json:"is_final_resolution"`
	IsRevert          bool `gorm:"default:false" json:"is_revert"`

	// SLA evaluation, write-once and never recomputed
	ExpectedSLADays float64   `json:"expected_sla_days"`
	ActualDays      float64   `json:"actual_days"`
	SLAStatus       SLAStatus `gorm:"size:20" json:"sla_status"`

	StepStartedAt *time.Time `json:"step_started_at,omitempty"`
	ResolvedAt    time.Time  `gorm:"index;not null" json:"resolved_at"`

	Attachments []FileAttachment `gorm:"foreignKey:ResolutionID" json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *WorkflowResolution) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// FileAttachment is a file attached to a workflow resolution. The payload
// lives in object storage under ObjectKey; the row keeps metadata only.
type FileAttachment struct {
	ID           uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	ResolutionID uuid.UUID           `gorm:"type:uuid;index;not null" json:"resolution_id"`
	Resolution   *WorkflowResolution `gorm:"foreignKey:ResolutionID" json:"resolution,omitempty"`

	FileName  string `gorm:"size:255;not null" json:"file_name"`
	FileSize  int64  `json:"file_size"`
	MimeType  string `gorm:"size:100" json:"mime_type"`
	ObjectKey string `gorm:"size:500;not null" json:"object_key"`

	UploadedAt time.Time `json:"uploaded_at"`
}

func (a *FileAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ResolveRequest resolves a ticket for a single department outside a
// multi-step workflow.
type ResolveRequest struct {
	ResolutionText string `json:"resolution_text" validate:"required,min=1,max=5000"`
	ResolvedBy     string `json:"resolved_by" validate:"max=200"`
}

// ResolutionResponse for API responses
type ResolutionResponse struct {
	ID                uuid.UUID                `json:"id"`
	TicketID          uuid.UUID                `json:"ticket_id"`
	StepNumber        int                      `json:"step_number"`
	FromDepartment    string                   `json:"from_department,omitempty"`
	ToDepartment      string                   `json:"to_department,omitempty"`
	ResolvedBy        string                   `json:"resolved_by,omitempty"`
	ResolutionText    string                   `json:"resolution_text,omitempty"`
	IsFinalResolution bool                     `json:"is_final_resolution"`
	IsRevert          bool                     `json:"is_revert"`
	ExpectedSLADays   float64                  `json:"expected_sla_days"`
	ActualDays        float64                  `json:"actual_days"`
	SLAStatus         SLAStatus                `json:"sla_status,omitempty"`
	StepStartedAt     *time.Time               `json:"step_started_at,omitempty"`
	ResolvedAt        time.Time                `json:"resolved_at"`
	Attachments       []FileAttachmentResponse `json:"attachments,omitempty"`
}

// FileAttachmentResponse for API responses
type FileAttachmentResponse struct {
	ID         uuid.UUID `json:"id"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func ToResolutionResponse(r *WorkflowResolution) ResolutionResponse {
	resp := ResolutionResponse{
		ID:                r.ID,
		TicketID:          r.TicketID,
		StepNumber:        r.StepNumber,
		FromDepartment:    r.FromDepartment,
		ToDepartment:      r.ToDepartment,
		ResolvedBy:        r.ResolvedBy,
		ResolutionText:    r.ResolutionText,
		IsFinalResolution: r.IsFinalResolution,
		IsRevert:          r.IsRevert,
		ExpectedSLADays:   r.ExpectedSLADays,
		ActualDays:        r.ActualDays,
		SLAStatus:         r.SLAStatus,
		StepStartedAt:     r.StepStartedAt,
		ResolvedAt:        r.ResolvedAt,
	}
	if len(r.Attachments) > 0 {
		resp.Attachments = make([]FileAttachmentResponse, len(r.Attachments))
		for i, a := range r.Attachments {
			resp.Attachments[i] = ToFileAttachmentResponse(&a)
		}
	}
	return resp
}

func ToFileAttachmentResponse(a *FileAttachment) FileAttachmentResponse {
	return FileAttachmentResponse{
		ID:         a.ID,
		FileName:   a.FileName,
		FileSize:   a.FileSize,
		MimeType:   a.MimeType,
		UploadedAt: a.UploadedAt,
	}
}
