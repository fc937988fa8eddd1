package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/models"
)

// In-memory repository fakes. Lookups that miss return
// gorm.ErrRecordNotFound, matching the real implementations.

type fakeTicketRepo struct {
	tickets map[uuid.UUID]*models.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[uuid.UUID]*models.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeTicketRepo) List(ctx context.Context, filter *models.TicketFilter) ([]models.Ticket, int64, error) {
	var out []models.Ticket
	for _, t := range r.tickets {
		if filter != nil && filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *models.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if _, ok := r.tickets[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *fakeTicketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GenerateTicketNumber(ctx context.Context) (string, error) {
	r.seq++
	return fmt.Sprintf("TKT-2026-%06d", r.seq), nil
}

func (r *fakeTicketRepo) GetStats(ctx context.Context) (*models.TicketStatsResponse, error) {
	stats := &models.TicketStatsResponse{}
	for _, t := range r.tickets {
		stats.Total++
		switch t.Status {
		case models.StatusOpen:
			stats.Open++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusOverdue:
			stats.Overdue++
		case models.StatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

func (r *fakeTicketRepo) PromoteOverdue(ctx context.Context, now time.Time) (int64, error) {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var promoted int64
	for _, t := range r.tickets {
		if t.DueDate != nil && t.DueDate.Before(cutoff) && !t.Status.TerminalForOverdue() {
			t.Status = models.StatusOverdue
			promoted++
		}
	}
	return promoted, nil
}

func (r *fakeTicketRepo) ListMissingWorkflowStatus(ctx context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range r.tickets {
		if t.WorkflowStatus == "" {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeWorkflowRepo struct {
	workflows map[uuid.UUID]*models.Workflow
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{workflows: make(map[uuid.UUID]*models.Workflow)}
}

func (r *fakeWorkflowRepo) Create(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == uuid.Nil {
		workflow.ID = uuid.New()
	}
	if workflow.IsDefault {
		for _, w := range r.workflows {
			w.IsDefault = false
		}
	}
	cp := *workflow
	r.workflows[workflow.ID] = &cp
	return nil
}

func (r *fakeWorkflowRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	w, ok := r.workflows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWorkflowRepo) FindDefault(ctx context.Context) (*models.Workflow, error) {
	for _, w := range r.workflows {
		if w.IsDefault {
			cp := *w
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkflowRepo) List(ctx context.Context) ([]models.Workflow, error) {
	var out []models.Workflow
	for _, w := range r.workflows {
		out = append(out, *w)
	}
	return out, nil
}

func (r *fakeWorkflowRepo) Update(ctx context.Context, workflow *models.Workflow) error {
	if _, ok := r.workflows[workflow.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if workflow.IsDefault {
		for id, w := range r.workflows {
			if id != workflow.ID {
				w.IsDefault = false
			}
		}
	}
	cp := *workflow
	r.workflows[workflow.ID] = &cp
	return nil
}

func (r *fakeWorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.workflows, id)
	return nil
}

func (r *fakeWorkflowRepo) SetDefault(ctx context.Context, id uuid.UUID) error {
	target, ok := r.workflows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, w := range r.workflows {
		w.IsDefault = false
	}
	target.IsDefault = true
	return nil
}

func (r *fakeWorkflowRepo) ReplaceSteps(ctx context.Context, workflowID uuid.UUID, steps []models.WorkflowStep) error {
	w, ok := r.workflows[workflowID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range steps {
		steps[i].StepNumber = i + 1
		steps[i].WorkflowID = workflowID
	}
	w.Steps = steps
	return nil
}

type fakeDepartmentRepo struct {
	departments map[uuid.UUID]*models.Department
	ticketTypes map[uuid.UUID]*models.TicketType
}

func newFakeDepartmentRepo() *fakeDepartmentRepo {
	return &fakeDepartmentRepo{
		departments: make(map[uuid.UUID]*models.Department),
		ticketTypes: make(map[uuid.UUID]*models.TicketType),
	}
}

func (r *fakeDepartmentRepo) addDepartment(name string) *models.Department {
	dept := &models.Department{ID: uuid.New(), Name: name}
	r.departments[dept.ID] = dept
	return dept
}

func (r *fakeDepartmentRepo) addTicketType(dept *models.Department, name string, duration int) *models.TicketType {
	tt := &models.TicketType{
		ID:              uuid.New(),
		DepartmentID:    dept.ID,
		Name:            name,
		DefaultDuration: duration,
		Priority:        "medium",
	}
	r.ticketTypes[tt.ID] = tt
	return tt
}

func (r *fakeDepartmentRepo) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == uuid.Nil {
		dept.ID = uuid.New()
	}
	cp := *dept
	r.departments[dept.ID] = &cp
	return nil
}

func (r *fakeDepartmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	d, ok := r.departments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDepartmentRepo) FindByName(ctx context.Context, name string) (*models.Department, error) {
	for _, d := range r.departments {
		if d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDepartmentRepo) List(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	for _, d := range r.departments {
		out = append(out, *d)
	}
	return out, nil
}

func (r *fakeDepartmentRepo) Update(ctx context.Context, dept *models.Department) error {
	if _, ok := r.departments[dept.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *dept
	r.departments[dept.ID] = &cp
	return nil
}

func (r *fakeDepartmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.departments, id)
	return nil
}

func (r *fakeDepartmentRepo) ReplaceTicketTypes(ctx context.Context, deptID uuid.UUID, types []models.TicketType) error {
	for id, tt := range r.ticketTypes {
		if tt.DepartmentID == deptID {
			delete(r.ticketTypes, id)
		}
	}
	for i := range types {
		if types[i].ID == uuid.Nil {
			types[i].ID = uuid.New()
		}
		types[i].DepartmentID = deptID
		cp := types[i]
		r.ticketTypes[cp.ID] = &cp
	}
	return nil
}

func (r *fakeDepartmentRepo) FindTicketTypeByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error) {
	tt, ok := r.ticketTypes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tt
	return &cp, nil
}

type fakeResolutionRepo struct {
	resolutions []*models.WorkflowResolution
	attachments map[uuid.UUID]*models.FileAttachment
}

func newFakeResolutionRepo() *fakeResolutionRepo {
	return &fakeResolutionRepo{attachments: make(map[uuid.UUID]*models.FileAttachment)}
}

func (r *fakeResolutionRepo) Create(ctx context.Context, resolution *models.WorkflowResolution) error {
	if resolution.ID == uuid.Nil {
		resolution.ID = uuid.New()
	}
	cp := *resolution
	r.resolutions = append(r.resolutions, &cp)
	return nil
}

func (r *fakeResolutionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.WorkflowResolution, error) {
	for _, res := range r.resolutions {
		if res.ID == id {
			cp := *res
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeResolutionRepo) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.WorkflowResolution, error) {
	var out []models.WorkflowResolution
	for _, res := range r.resolutions {
		if res.TicketID == ticketID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StepNumber != out[j].StepNumber {
			return out[i].StepNumber < out[j].StepNumber
		}
		return out[i].ResolvedAt.Before(out[j].ResolvedAt)
	})
	return out, nil
}

func (r *fakeResolutionRepo) CreateAttachment(ctx context.Context, attachment *models.FileAttachment) error {
	if attachment.ID == uuid.Nil {
		attachment.ID = uuid.New()
	}
	cp := *attachment
	r.attachments[attachment.ID] = &cp
	return nil
}

func (r *fakeResolutionRepo) FindAttachmentByID(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error) {
	a, ok := r.attachments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeHistoryRepo struct {
	entries []*models.TicketHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *models.TicketHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.TicketHistory, error) {
	var out []models.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeHistoryRepo) byTicket(ticketID uuid.UUID) []*models.TicketHistory {
	var out []*models.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out
}
