package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/repository"
	"github.com/propcare/backend/internal/storage"
	"github.com/propcare/backend/pkg/workdays"
)

const attachmentURLExpiry = 15 * time.Minute

// TicketService owns the ticket lifecycle: creation with SLA due dates,
// partial updates with history, workflow actions, reassignment, reverts,
// closing and resolution attachments.
type TicketService interface {
	CreateTicket(ctx context.Context, req *models.TicketCreateRequest) (*models.TicketResponse, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*models.TicketResponse, error)
	ListTickets(ctx context.Context, filter *models.TicketFilter) ([]models.TicketResponse, int64, error)
	UpdateTicket(ctx context.Context, id uuid.UUID, req *models.TicketUpdateRequest) (*models.TicketResponse, error)
	DeleteTicket(ctx context.Context, id uuid.UUID) error

	AddDepartmentAction(ctx context.Context, id uuid.UUID, req *models.DepartmentActionRequest) (*models.TicketResponse, error)
	Reassign(ctx context.Context, id uuid.UUID, req *models.ReassignRequest) (*models.TicketResponse, error)
	Revert(ctx context.Context, id uuid.UUID, req *models.RevertRequest) (*models.TicketResponse, error)
	CloseTicket(ctx context.Context, id uuid.UUID, closedBy string) (*models.TicketResponse, error)
	ResolveForDepartment(ctx context.Context, id uuid.UUID, req *models.ResolveRequest) (*models.TicketResponse, error)

	GetHistory(ctx context.Context, id uuid.UUID) ([]models.HistoryResponse, error)
	GetResolutions(ctx context.Context, id uuid.UUID) ([]models.ResolutionResponse, error)
	GetStats(ctx context.Context) (*models.TicketStatsResponse, error)

	UploadAttachment(ctx context.Context, resolutionID uuid.UUID, fileName, mimeType string, size int64, r io.Reader) (*models.FileAttachmentResponse, error)
	AttachmentURL(ctx context.Context, attachmentID uuid.UUID) (string, error)

	// PromoteOverdue flips past-due tickets to overdue. Safe to call from
	// multiple places; the underlying update is conditional.
	PromoteOverdue(ctx context.Context) (int64, error)
}

type ticketService struct {
	repo           repository.TicketRepository
	departmentRepo repository.DepartmentRepository
	resolutionRepo repository.ResolutionRepository
	engine         WorkflowEngine
	recorder       *HistoryRecorder
	store          storage.ObjectStorage
	logger         *zap.Logger
	now            func() time.Time
}

func NewTicketService(
	repo repository.TicketRepository,
	departmentRepo repository.DepartmentRepository,
	resolutionRepo repository.ResolutionRepository,
	engine WorkflowEngine,
	recorder *HistoryRecorder,
	store storage.ObjectStorage,
	logger *zap.Logger,
) TicketService {
	return &ticketService{
		repo:           repo,
		departmentRepo: departmentRepo,
		resolutionRepo: resolutionRepo,
		engine:         engine,
		recorder:       recorder,
		store:          store,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *ticketService) CreateTicket(ctx context.Context, req *models.TicketCreateRequest) (*models.TicketResponse, error) {
	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, notFound(fmt.Sprintf("department %q", req.DepartmentID))
	}
	dept, err := s.departmentRepo.FindByID(ctx, deptID)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("department %s", deptID))
	}

	var ticketType *models.TicketType
	if req.TicketTypeID != nil {
		ttID, err := uuid.Parse(*req.TicketTypeID)
		if err != nil {
			return nil, notFound(fmt.Sprintf("ticket type %q", *req.TicketTypeID))
		}
		ticketType, err = s.departmentRepo.FindTicketTypeByID(ctx, ttID)
		if err != nil {
			return nil, asLookupError(err, fmt.Sprintf("ticket type %s", ttID))
		}
		if ticketType.DepartmentID != dept.ID {
			return nil, fmt.Errorf("%w: ticket type %s does not belong to department %s",
				ErrInvalidTransition, ticketType.Name, dept.Name)
		}
	}

	// Workflow routing: explicit request wins, then the ticket type's
	// workflow, then the system default inside the engine.
	var workflowID *uuid.UUID
	if req.WorkflowID != nil {
		wfID, err := uuid.Parse(*req.WorkflowID)
		if err != nil {
			return nil, notFound(fmt.Sprintf("workflow %q", *req.WorkflowID))
		}
		workflowID = &wfID
	} else if ticketType != nil && ticketType.WorkflowID != nil {
		workflowID = ticketType.WorkflowID
	}

	workflow, statuses, err := s.engine.InitializeStepStatuses(ctx, dept.ID, workflowID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	slaDays := s.resolveSLADays(req, ticketType, workflow)
	dueDate := workdays.DueDate(now, slaDays)

	priority := req.Priority
	if priority == "" && ticketType != nil && ticketType.Priority != "" {
		priority = ticketType.Priority
	}
	if priority == "" {
		priority = "medium"
	}

	number, err := s.repo.GenerateTicketNumber(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		TicketNumber: number,
		DepartmentID: dept.ID,
		SubCategory:  req.SubCategory,
		ClientName:   req.ClientName,
		UnitID:       req.UnitID,
		Priority:     priority,
		Status:       models.StatusOpen,
		Assignee:     req.Assignee,
		TicketOwner:  req.TicketOwner,
		SLADays:      slaDays,
		DueDate:      &dueDate,
	}
	if ticketType != nil {
		ttID := ticketType.ID
		ticket.TicketTypeID = &ttID
	}
	if workflow != nil {
		wfID := workflow.ID
		ticket.WorkflowID = &wfID
	}
	if len(statuses) > 0 {
		first := statuses[0]
		ticket.CurrentWorkflowStep = first.StepNumber
		firstDept := first.DepartmentID
		ticket.CurrentDepartmentID = &firstDept
		ticket.CurrentDepartmentName = first.DepartmentName
	}
	if err := ticket.SetStepStatuses(statuses); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ticket.ID, models.ChangeTypeCreated, []models.FieldChange{
		{Field: "status", OldValue: "", NewValue: string(models.StatusOpen)},
	}, req.TicketOwner, "", now)

	s.logger.Info("ticket created",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("department", dept.Name),
		zap.Int("sla_days", slaDays))

	resp := models.ToTicketResponse(ticket)
	resp.DepartmentName = dept.Name
	return &resp, nil
}

// resolveSLADays picks the working-day SLA for a new ticket: an explicit
// request beats the ticket type's default, which beats the workflow's
// aggregate estimate, which beats the system default.
func (s *ticketService) resolveSLADays(req *models.TicketCreateRequest, ticketType *models.TicketType, workflow *models.Workflow) int {
	if req.SLADays != nil && *req.SLADays > 0 {
		return *req.SLADays
	}
	if ticketType != nil && ticketType.DefaultDuration > 0 {
		return ticketType.DefaultDuration
	}
	if workflow != nil {
		if total := workflow.TotalSLADays(); total > 0 {
			return total
		}
	}
	return DefaultSLADays
}

func (s *ticketService) GetTicket(ctx context.Context, id uuid.UUID) (*models.TicketResponse, error) {
	ticket, err := s.repo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

func (s *ticketService) ListTickets(ctx context.Context, filter *models.TicketFilter) ([]models.TicketResponse, int64, error) {
	// Promote past-due tickets before reading so listings never show a
	// stale status. The update is conditional and idempotent.
	if _, err := s.PromoteOverdue(ctx); err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
		s.logger.Warn("overdue promotion before listing failed", zap.Error(err))
	}

	tickets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return []models.TicketResponse{}, 0, nil
		}
		return nil, 0, err
	}

	responses := make([]models.TicketResponse, len(tickets))
	for i := range tickets {
		responses[i] = models.ToTicketResponse(&tickets[i])
	}
	return responses, total, nil
}

func (s *ticketService) UpdateTicket(ctx context.Context, id uuid.UUID, req *models.TicketUpdateRequest) (*models.TicketResponse, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	if ticket.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: ticket %s is closed", ErrInvalidTransition, ticket.TicketNumber)
	}

	// Resolved is earned through the workflow, not set directly while
	// steps remain incomplete.
	if req.Status != nil && *req.Status == models.StatusResolved && !ticket.IsFullyResolved {
		statuses, err := ticket.StepStatuses()
		if err != nil {
			return nil, err
		}
		if !allCompleted(statuses) {
			return nil, fmt.Errorf("%w: ticket %s has incomplete workflow steps",
				ErrInvalidTransition, ticket.TicketNumber)
		}
	}

	changes := s.recorder.DiffUpdate(ticket, req)

	if req.SubCategory != nil {
		ticket.SubCategory = *req.SubCategory
	}
	if req.ClientName != nil {
		ticket.ClientName = *req.ClientName
	}
	if req.UnitID != nil {
		ticket.UnitID = *req.UnitID
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	if req.Status != nil {
		ticket.Status = *req.Status
		if *req.Status == models.StatusResolved {
			ticket.IsFullyResolved = true
		}
	}
	if req.Assignee != nil {
		ticket.Assignee = *req.Assignee
	}
	if req.SLADays != nil && *req.SLADays != ticket.SLADays {
		ticket.SLADays = *req.SLADays
		due := workdays.DueDate(ticket.CreatedAt, *req.SLADays)
		ticket.DueDate = &due
	}

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ticket.ID, models.ChangeTypeFieldChange, changes, req.UpdatedBy, "", s.now())

	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

func (s *ticketService) DeleteTicket(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	return s.repo.Delete(ctx, id)
}

func (s *ticketService) AddDepartmentAction(ctx context.Context, id uuid.UUID, req *models.DepartmentActionRequest) (*models.TicketResponse, error) {
	ticket, err := s.engine.AddDepartmentAction(ctx, id, req)
	if err != nil {
		return nil, err
	}
	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

func (s *ticketService) Reassign(ctx context.Context, id uuid.UUID, req *models.ReassignRequest) (*models.TicketResponse, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	if ticket.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: ticket %s is closed", ErrInvalidTransition, ticket.TicketNumber)
	}

	previous := ticket.Assignee
	if previous == req.Assignee {
		resp := models.ToTicketResponse(ticket)
		return &resp, nil
	}

	ticket.Assignee = req.Assignee
	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ticket.ID, models.ChangeTypeReassignment, []models.FieldChange{
		{Field: "assignee", OldValue: previous, NewValue: req.Assignee},
	}, req.ChangedBy, "", s.now())

	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

func (s *ticketService) Revert(ctx context.Context, id uuid.UUID, req *models.RevertRequest) (*models.TicketResponse, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	if ticket.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: ticket %s is closed", ErrInvalidTransition, ticket.TicketNumber)
	}

	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, notFound(fmt.Sprintf("department %q", req.DepartmentID))
	}
	dept, err := s.departmentRepo.FindByID(ctx, deptID)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("department %s", deptID))
	}

	statuses, err := ticket.StepStatuses()
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("%w: ticket %s has no workflow status", ErrStepNotFound, ticket.TicketNumber)
	}

	now := s.now()
	prevStep := ticket.CurrentWorkflowStep
	prevStatus := ticket.Status

	// Rewind one step. The recorded step number marks the step whose
	// completion is being undone.
	target := prevStep - 1
	if target < 1 {
		target = 1
	}

	for i := range statuses {
		switch {
		case statuses[i].StepNumber < target:
			// untouched
		case statuses[i].StepNumber == target:
			statuses[i].Status = models.StepInProgress
			statuses[i].CompletedAt = nil
		default:
			statuses[i].Status = models.StepPending
			statuses[i].CompletedAt = nil
		}
	}

	ticket.CurrentWorkflowStep = target
	targetDept := dept.ID
	ticket.CurrentDepartmentID = &targetDept
	ticket.CurrentDepartmentName = dept.Name
	ticket.Status = models.StatusInProgress
	ticket.IsFullyResolved = false

	if err := ticket.SetStepStatuses(statuses); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	resolution := &models.WorkflowResolution{
		TicketID:       ticket.ID,
		StepNumber:     prevStep - 1,
		FromDepartment: currentStepName(statuses, prevStep),
		ToDepartment:   dept.Name,
		ResolvedBy:     req.RevertedBy,
		ResolutionText: req.Reason,
		IsRevert:       true,
		ResolvedAt:     now,
	}
	if err := s.resolutionRepo.Create(ctx, resolution); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ticket.ID, models.ChangeTypeRevert, []models.FieldChange{
		{Field: "current_workflow_step", OldValue: fmt.Sprintf("%d", prevStep), NewValue: fmt.Sprintf("%d", target)},
		{Field: "status", OldValue: string(prevStatus), NewValue: string(ticket.Status)},
	}, req.RevertedBy, req.Reason, now)

	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

func (s *ticketService) CloseTicket(ctx context.Context, id uuid.UUID, closedBy string) (*models.TicketResponse, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	if ticket.Status == models.StatusClosed {
		resp := models.ToTicketResponse(ticket)
		return &resp, nil
	}

	previous := ticket.Status
	ticket.Status = models.StatusClosed
	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ticket.ID, models.ChangeTypeClosed, []models.FieldChange{
		{Field: "status", OldValue: string(previous), NewValue: string(models.StatusClosed)},
	}, closedBy, "", s.now())

	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

// ResolveForDepartment resolves a ticket in one stroke for its current
// department, bypassing step-by-step actions. Kept for single-department
// tickets and older clients.
func (s *ticketService) ResolveForDepartment(ctx context.Context, id uuid.UUID, req *models.ResolveRequest) (*models.TicketResponse, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	if ticket.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: ticket %s is closed", ErrInvalidTransition, ticket.TicketNumber)
	}
	if ticket.IsFullyResolved {
		return nil, fmt.Errorf("%w: ticket %s is already resolved", ErrInvalidTransition, ticket.TicketNumber)
	}

	statuses, err := ticket.StepStatuses()
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range statuses {
		statuses[i].Status = models.StepCompleted
		if statuses[i].CompletedAt == nil {
			ts := now
			statuses[i].CompletedAt = &ts
		}
	}

	prevStatus := ticket.Status
	ticket.Status = models.StatusResolved
	ticket.IsFullyResolved = true
	if len(statuses) > 0 {
		ticket.CurrentWorkflowStep = statuses[len(statuses)-1].StepNumber
	}
	if err := ticket.SetStepStatuses(statuses); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	eval := EvaluateSLA(ticket.CreatedAt, now, ticket.SLADays, "days", 1)
	resolution := &models.WorkflowResolution{
		TicketID:          ticket.ID,
		StepNumber:        ticket.CurrentWorkflowStep,
		FromDepartment:    ticket.CurrentDepartmentName,
		ResolvedBy:        req.ResolvedBy,
		ResolutionText:    req.ResolutionText,
		IsFinalResolution: true,
		ExpectedSLADays:   eval.ExpectedDays,
		ActualDays:        eval.ActualDays,
		SLAStatus:         eval.Status,
		ResolvedAt:        now,
	}
	if err := s.resolutionRepo.Create(ctx, resolution); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ticket.ID, models.ChangeTypeFieldChange, []models.FieldChange{
		{Field: "status", OldValue: string(prevStatus), NewValue: string(models.StatusResolved)},
	}, req.ResolvedBy, "", now)

	resp := models.ToTicketResponse(ticket)
	return &resp, nil
}

func (s *ticketService) GetHistory(ctx context.Context, id uuid.UUID) ([]models.HistoryResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	entries, err := s.recorder.List(ctx, id)
	if err != nil {
		return nil, err
	}
	responses := make([]models.HistoryResponse, len(entries))
	for i := range entries {
		responses[i] = models.ToHistoryResponse(&entries[i])
	}
	return responses, nil
}

func (s *ticketService) GetResolutions(ctx context.Context, id uuid.UUID) ([]models.ResolutionResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", id))
	}
	resolutions, err := s.resolutionRepo.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	responses := make([]models.ResolutionResponse, len(resolutions))
	for i := range resolutions {
		responses[i] = models.ToResolutionResponse(&resolutions[i])
	}
	return responses, nil
}

func (s *ticketService) GetStats(ctx context.Context) (*models.TicketStatsResponse, error) {
	return s.repo.GetStats(ctx)
}

func (s *ticketService) UploadAttachment(ctx context.Context, resolutionID uuid.UUID, fileName, mimeType string, size int64, r io.Reader) (*models.FileAttachmentResponse, error) {
	if s.store == nil {
		return nil, repository.ErrStoreUnavailable
	}
	resolution, err := s.resolutionRepo.FindByID(ctx, resolutionID)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("resolution %s", resolutionID))
	}

	attachmentID := uuid.New()
	objectKey := fmt.Sprintf("resolutions/%s/%s/%s", resolution.TicketID, resolutionID, attachmentID)

	if err := s.store.Upload(ctx, objectKey, r, size, mimeType); err != nil {
		return nil, err
	}

	attachment := &models.FileAttachment{
		ID:           attachmentID,
		ResolutionID: resolutionID,
		FileName:     fileName,
		FileSize:     size,
		MimeType:     mimeType,
		ObjectKey:    objectKey,
		UploadedAt:   s.now(),
	}
	if err := s.resolutionRepo.CreateAttachment(ctx, attachment); err != nil {
		// The row is authoritative; without it the object is unreachable.
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			s.logger.Warn("orphaned attachment object", zap.String("object_key", objectKey), zap.Error(rmErr))
		}
		return nil, err
	}

	resp := models.ToFileAttachmentResponse(attachment)
	return &resp, nil
}

func (s *ticketService) AttachmentURL(ctx context.Context, attachmentID uuid.UUID) (string, error) {
	if s.store == nil {
		return "", repository.ErrStoreUnavailable
	}
	attachment, err := s.resolutionRepo.FindAttachmentByID(ctx, attachmentID)
	if err != nil {
		return "", asLookupError(err, fmt.Sprintf("attachment %s", attachmentID))
	}
	return s.store.PresignedURL(ctx, attachment.ObjectKey, attachmentURLExpiry)
}

func (s *ticketService) PromoteOverdue(ctx context.Context) (int64, error) {
	promoted, err := s.repo.PromoteOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if promoted > 0 {
		s.logger.Info("promoted overdue tickets", zap.Int64("count", promoted))
	}
	return promoted, nil
}

// currentStepName returns the department name of the step with the given
// number, falling back to empty.
func currentStepName(statuses []models.WorkflowStepStatus, stepNumber int) string {
	for i := range statuses {
		if statuses[i].StepNumber == stepNumber {
			return statuses[i].DepartmentName
		}
	}
	return ""
}
