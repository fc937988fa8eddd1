package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/repository"
)

// WorkflowEngine advances tickets through their workflow steps: it
// initializes per-step status, records department actions, cascades step
// advancement and determines final resolution.
type WorkflowEngine interface {
	// InitializeStepStatuses builds the per-step progress list for a new
	// ticket. With a workflow id it loads that workflow; otherwise it falls
	// back to the system default; with neither it synthesizes a single-step
	// pseudo-workflow from the ticket's own department. The returned
	// workflow is nil for the pseudo-workflow case.
	InitializeStepStatuses(ctx context.Context, departmentID uuid.UUID, workflowID *uuid.UUID) (*models.Workflow, []models.WorkflowStepStatus, error)

	// AddDepartmentAction records work against one step and advances the
	// ticket accordingly.
	AddDepartmentAction(ctx context.Context, ticketID uuid.UUID, req *models.DepartmentActionRequest) (*models.Ticket, error)

	// CurrentStep returns the first non-completed step, or the last step
	// when every step is completed.
	CurrentStep(ticket *models.Ticket) (*models.WorkflowStepStatus, error)
}

type workflowEngine struct {
	ticketRepo     repository.TicketRepository
	workflowRepo   repository.WorkflowRepository
	departmentRepo repository.DepartmentRepository
	resolutionRepo repository.ResolutionRepository
	recorder       *HistoryRecorder
	logger         *zap.Logger
	now            func() time.Time
}

func NewWorkflowEngine(
	ticketRepo repository.TicketRepository,
	workflowRepo repository.WorkflowRepository,
	departmentRepo repository.DepartmentRepository,
	resolutionRepo repository.ResolutionRepository,
	recorder *HistoryRecorder,
	logger *zap.Logger,
) WorkflowEngine {
	return &workflowEngine{
		ticketRepo:     ticketRepo,
		workflowRepo:   workflowRepo,
		departmentRepo: departmentRepo,
		resolutionRepo: resolutionRepo,
		recorder:       recorder,
		logger:         logger,
		now:            time.Now,
	}
}

func (e *workflowEngine) InitializeStepStatuses(ctx context.Context, departmentID uuid.UUID, workflowID *uuid.UUID) (*models.Workflow, []models.WorkflowStepStatus, error) {
	var workflow *models.Workflow
	var err error

	if workflowID != nil {
		workflow, err = e.workflowRepo.FindByID(ctx, *workflowID)
		if err != nil {
			return nil, nil, asLookupError(err, fmt.Sprintf("workflow %s", *workflowID))
		}
	} else {
		workflow, err = e.workflowRepo.FindDefault(ctx)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}

	if workflow != nil && workflow.StepCount() > 0 {
		return workflow, buildStepStatuses(workflow), nil
	}

	// No workflow anywhere: single-step pseudo-workflow from the ticket's
	// own department.
	dept, err := e.departmentRepo.FindByID(ctx, departmentID)
	if err != nil {
		return nil, nil, asLookupError(err, fmt.Sprintf("department %s", departmentID))
	}
	return nil, []models.WorkflowStepStatus{{
		StepNumber:     1,
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Status:         models.StepInProgress,
	}}, nil
}

func (e *workflowEngine) AddDepartmentAction(ctx context.Context, ticketID uuid.UUID, req *models.DepartmentActionRequest) (*models.Ticket, error) {
	ticket, err := e.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("ticket %s", ticketID))
	}
	if ticket.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: ticket %s is closed", ErrInvalidTransition, ticket.TicketNumber)
	}

	// Read the canonical workflow once up front; its step count is
	// authoritative for the rest of the operation. The in-memory status
	// array may lag behind it and is extended below.
	canonical, err := e.canonicalWorkflow(ctx, ticket)
	if err != nil {
		return nil, err
	}

	statuses, err := ticket.StepStatuses()
	if err != nil {
		return nil, fmt.Errorf("decode workflow status for ticket %s: %w", ticket.TicketNumber, err)
	}
	if len(statuses) == 0 {
		if canonical != nil {
			statuses = buildStepStatuses(canonical)
		} else {
			_, statuses, err = e.InitializeStepStatuses(ctx, ticket.DepartmentID, nil)
			if err != nil {
				return nil, err
			}
		}
	}

	stepCount := len(statuses)
	if canonical != nil {
		stepCount = canonical.StepCount()
	}
	if req.StepNumber < 1 || req.StepNumber > stepCount {
		return nil, fmt.Errorf("%w: step %d of %d", ErrStepNotFound, req.StepNumber, stepCount)
	}

	// Lazily extend the status array when the canonical workflow carries
	// steps the ticket has never seen; steps stay dense and 1-based.
	if canonical != nil && len(statuses) < stepCount {
		for n := len(statuses) + 1; n <= stepCount; n++ {
			ws := canonical.StepByNumber(n)
			if ws == nil {
				return nil, fmt.Errorf("%w: step %d missing from workflow %s", ErrStepNotFound, n, canonical.Name)
			}
			statuses = append(statuses, models.WorkflowStepStatus{
				StepNumber:     n,
				DepartmentID:   ws.DepartmentID,
				DepartmentName: ws.DepartmentName,
				Status:         models.StepPending,
			})
		}
	}

	now := e.now()
	completing := req.IsComplete || models.ActionType(req.ActionType) == models.ActionCompleted

	action := models.DepartmentAction{
		ID:          uuid.New(),
		Type:        models.ActionType(req.ActionType),
		Notes:       req.Notes,
		Timestamp:   now,
		IsComplete:  completing,
		PerformedBy: req.PerformedBy,
		NewAssignee: req.NewAssignee,
	}

	step := &statuses[req.StepNumber-1]
	step.Actions = append(step.Actions, action)

	prevStatus := ticket.Status
	prevStep := ticket.CurrentWorkflowStep
	prevDept := ticket.CurrentDepartmentName
	prevAssignee := ticket.Assignee

	if completing {
		step.Status = models.StepCompleted
		step.CompletedAt = &now

		// Everything after the completed step is pending again, whatever
		// an earlier revert left behind.
		for i := req.StepNumber; i < len(statuses); i++ {
			statuses[i].Status = models.StepPending
			statuses[i].CompletedAt = nil
		}

		isLast := req.StepNumber == stepCount
		if isLast && allCompleted(statuses) {
			ticket.Status = models.StatusResolved
			ticket.IsFullyResolved = true
			ticket.CurrentWorkflowStep = stepCount
		} else if !isLast {
			next := &statuses[req.StepNumber]
			ticket.CurrentWorkflowStep = req.StepNumber + 1
			deptID := next.DepartmentID
			ticket.CurrentDepartmentID = &deptID
			ticket.CurrentDepartmentName = next.DepartmentName
			if ticket.Status == models.StatusOpen {
				ticket.Status = models.StatusInProgress
			}
		}

		if err := e.recordStepResolution(ctx, ticket, statuses, req, step, now); err != nil {
			return nil, err
		}
	} else {
		step.Status = models.StepInProgress
		if ticket.Status == models.StatusOpen {
			ticket.Status = models.StatusInProgress
		}
	}

	if req.NewAssignee != "" {
		ticket.Assignee = req.NewAssignee
	}

	if err := ticket.SetStepStatuses(statuses); err != nil {
		return nil, err
	}
	if err := e.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	e.recorder.Record(ctx, ticket.ID, models.ChangeTypeFieldChange,
		stepAdvanceChanges(prevStatus, prevStep, prevDept, prevAssignee, ticket),
		req.PerformedBy, "", now)

	return ticket, nil
}

func (e *workflowEngine) CurrentStep(ticket *models.Ticket) (*models.WorkflowStepStatus, error) {
	statuses, err := ticket.StepStatuses()
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("%w: ticket %s has no workflow status", ErrStepNotFound, ticket.TicketNumber)
	}
	for i := range statuses {
		if statuses[i].Status != models.StepCompleted {
			return &statuses[i], nil
		}
	}
	return &statuses[len(statuses)-1], nil
}

// canonicalWorkflow resolves the workflow governing a ticket: its assigned
// workflow, else the system default, else nil for pseudo-workflow tickets.
func (e *workflowEngine) canonicalWorkflow(ctx context.Context, ticket *models.Ticket) (*models.Workflow, error) {
	if ticket.WorkflowID != nil {
		wf, err := e.workflowRepo.FindByID(ctx, *ticket.WorkflowID)
		if err != nil {
			return nil, asLookupError(err, fmt.Sprintf("workflow %s", *ticket.WorkflowID))
		}
		return wf, nil
	}
	wf, err := e.workflowRepo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return wf, nil
}

// recordStepResolution writes the immutable resolution record for a
// completed step, with its SLA verdict.
func (e *workflowEngine) recordStepResolution(ctx context.Context, ticket *models.Ticket, statuses []models.WorkflowStepStatus, req *models.DepartmentActionRequest, step *models.WorkflowStepStatus, now time.Time) error {
	eval := EvaluateSLA(ticket.CreatedAt, now, ticket.SLADays, "days", req.StepNumber)

	toDept := ""
	if req.StepNumber < len(statuses) {
		toDept = statuses[req.StepNumber].DepartmentName
	}

	resolution := &models.WorkflowResolution{
		TicketID:          ticket.ID,
		StepNumber:        req.StepNumber,
		FromDepartment:    step.DepartmentName,
		ToDepartment:      toDept,
		ResolvedBy:        req.PerformedBy,
		ResolutionText:    req.Notes,
		IsFinalResolution: ticket.IsFullyResolved,
		ExpectedSLADays:   eval.ExpectedDays,
		ActualDays:        eval.ActualDays,
		SLAStatus:         eval.Status,
		StepStartedAt:     stepStartedAt(step),
		ResolvedAt:        now,
	}
	return e.resolutionRepo.Create(ctx, resolution)
}

func buildStepStatuses(workflow *models.Workflow) []models.WorkflowStepStatus {
	statuses := make([]models.WorkflowStepStatus, len(workflow.Steps))
	for i, ws := range workflow.Steps {
		state := models.StepPending
		if ws.StepNumber == 1 {
			state = models.StepInProgress
		}
		statuses[i] = models.WorkflowStepStatus{
			StepNumber:     ws.StepNumber,
			DepartmentID:   ws.DepartmentID,
			DepartmentName: ws.DepartmentName,
			Status:         state,
		}
	}
	return statuses
}

func allCompleted(statuses []models.WorkflowStepStatus) bool {
	for i := range statuses {
		if statuses[i].Status != models.StepCompleted {
			return false
		}
	}
	return true
}

// stepStartedAt returns the timestamp of the first start action recorded
// on the step, if any.
func stepStartedAt(step *models.WorkflowStepStatus) *time.Time {
	for i := range step.Actions {
		if step.Actions[i].Type == models.ActionInProgress {
			ts := step.Actions[i].Timestamp
			return &ts
		}
	}
	return nil
}

func stepAdvanceChanges(prevStatus models.TicketStatus, prevStep int, prevDept, prevAssignee string, ticket *models.Ticket) []models.FieldChange {
	var changes []models.FieldChange
	if prevStatus != ticket.Status {
		changes = append(changes, models.FieldChange{
			Field: "status", OldValue: string(prevStatus), NewValue: string(ticket.Status),
		})
	}
	if prevStep != ticket.CurrentWorkflowStep {
		changes = append(changes, models.FieldChange{
			Field:    "current_workflow_step",
			OldValue: fmt.Sprintf("%d", prevStep),
			NewValue: fmt.Sprintf("%d", ticket.CurrentWorkflowStep),
		})
	}
	if prevDept != ticket.CurrentDepartmentName {
		changes = append(changes, models.FieldChange{
			Field: "current_department", OldValue: prevDept, NewValue: ticket.CurrentDepartmentName,
		})
	}
	if prevAssignee != ticket.Assignee {
		changes = append(changes, models.FieldChange{
			Field: "assignee", OldValue: prevAssignee, NewValue: ticket.Assignee,
		})
	}
	return changes
}
