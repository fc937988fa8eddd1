package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/propcare/backend/internal/models"
)

type fakeObjectStore struct {
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[objectKey] = data
	return nil
}

func (s *fakeObjectStore) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	data, ok := s.objects[objectKey]
	if !ok {
		return nil, errors.New("object missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeObjectStore) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if _, ok := s.objects[objectKey]; !ok {
		return "", errors.New("object missing")
	}
	return "https://storage.local/" + objectKey, nil
}

func (s *fakeObjectStore) Remove(ctx context.Context, objectKey string) error {
	delete(s.objects, objectKey)
	return nil
}

type serviceFixture struct {
	*engineFixture
	svc   *ticketService
	store *fakeObjectStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	ef := newEngineFixture(t)
	logger := zap.NewNop()
	recorder := NewHistoryRecorder(ef.histRepo, logger)
	store := newFakeObjectStore()

	svc := NewTicketService(ef.ticketRepo, ef.deptRepo, ef.resRepo, ef.engine, recorder, store, logger).(*ticketService)
	return &serviceFixture{engineFixture: ef, svc: svc, store: store}
}

func (f *serviceFixture) createTicket(t *testing.T, req *models.TicketCreateRequest) *models.TicketResponse {
	t.Helper()
	if req == nil {
		req = &models.TicketCreateRequest{
			DepartmentID: f.maintenance.ID.String(),
			ClientName:   "Al Noor Properties",
			UnitID:       "B-204",
		}
	}
	resp, err := f.svc.CreateTicket(context.Background(), req)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return resp
}

func TestCreateTicket(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tt := f.deptRepo.addTicketType(f.maintenance, "Repair Request", 3)

	ttID := tt.ID.String()
	resp := f.createTicket(t, &models.TicketCreateRequest{
		DepartmentID: f.maintenance.ID.String(),
		TicketTypeID: &ttID,
		ClientName:   "Al Noor Properties",
		UnitID:       "B-204",
	})

	if resp.Status != models.StatusOpen {
		t.Errorf("status = %q, want open", resp.Status)
	}
	if !strings.HasPrefix(resp.TicketNumber, "TKT-") {
		t.Errorf("ticket number = %q", resp.TicketNumber)
	}
	if resp.SLADays != 3 {
		t.Errorf("sla days = %d, want ticket type default 3", resp.SLADays)
	}
	if resp.DueDate == nil {
		t.Fatal("due date not set")
	}
	if wd := resp.DueDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
		t.Errorf("due date landed on %v", wd)
	}
	if len(resp.WorkflowStatus) != 3 {
		t.Errorf("workflow statuses = %d, want 3 from default workflow", len(resp.WorkflowStatus))
	}
	if resp.CurrentWorkflowStep != 1 || resp.CurrentDepartmentName != "Maintenance" {
		t.Errorf("current step wrong: %d %q", resp.CurrentWorkflowStep, resp.CurrentDepartmentName)
	}
	if resp.Priority != "medium" {
		t.Errorf("priority = %q, want ticket type default", resp.Priority)
	}

	entries, err := f.histRepo.ListByTicket(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ChangeType != models.ChangeTypeCreated {
		t.Errorf("creation history missing: %+v", entries)
	}
}

func TestCreateTicketSLAPrecedence(t *testing.T) {
	f := newServiceFixture(t)

	t.Run("explicit sla wins", func(t *testing.T) {
		sla := 12
		resp := f.createTicket(t, &models.TicketCreateRequest{
			DepartmentID: f.maintenance.ID.String(),
			ClientName:   "client",
			SLADays:      &sla,
		})
		if resp.SLADays != 12 {
			t.Errorf("sla days = %d, want 12", resp.SLADays)
		}
	})

	t.Run("workflow aggregate when no type", func(t *testing.T) {
		// 2 days + 3 days + 8 hours -> 6 working days
		resp := f.createTicket(t, nil)
		if resp.SLADays != 6 {
			t.Errorf("sla days = %d, want workflow total 6", resp.SLADays)
		}
	})

	t.Run("system default with nothing else", func(t *testing.T) {
		bare := newServiceFixture(t)
		if err := bare.workflowRepo.Delete(context.Background(), bare.workflow.ID); err != nil {
			t.Fatal(err)
		}
		resp := bare.createTicket(t, nil)
		if resp.SLADays != DefaultSLADays {
			t.Errorf("sla days = %d, want %d", resp.SLADays, DefaultSLADays)
		}
	})
}

func TestCreateTicketRejectsForeignTicketType(t *testing.T) {
	f := newServiceFixture(t)
	tt := f.deptRepo.addTicketType(f.accounts, "Billing Dispute", 5)

	ttID := tt.ID.String()
	_, err := f.svc.CreateTicket(context.Background(), &models.TicketCreateRequest{
		DepartmentID: f.maintenance.ID.String(),
		TicketTypeID: &ttID,
		ClientName:   "client",
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateTicket(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	t.Run("direct resolved rejected while steps incomplete", func(t *testing.T) {
		resp := f.createTicket(t, nil)
		resolved := models.StatusResolved
		_, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{Status: &resolved})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("direct resolved allowed once steps complete", func(t *testing.T) {
		resp := f.createTicket(t, nil)

		ticket, err := f.ticketRepo.FindByID(ctx, resp.ID)
		if err != nil {
			t.Fatal(err)
		}
		statuses, err := ticket.StepStatuses()
		if err != nil {
			t.Fatal(err)
		}
		now := time.Now()
		for i := range statuses {
			statuses[i].Status = models.StepCompleted
			statuses[i].CompletedAt = &now
		}
		if err := ticket.SetStepStatuses(statuses); err != nil {
			t.Fatal(err)
		}
		if err := f.ticketRepo.Update(ctx, ticket); err != nil {
			t.Fatal(err)
		}

		resolved := models.StatusResolved
		updated, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{Status: &resolved})
		if err != nil {
			t.Fatal(err)
		}
		if updated.Status != models.StatusResolved {
			t.Errorf("status = %q, want resolved", updated.Status)
		}
		if !updated.IsFullyResolved {
			t.Error("direct resolution left is_fully_resolved false")
		}
	})

	t.Run("field change recorded in history", func(t *testing.T) {
		resp := f.createTicket(t, nil)
		updated, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{
			Priority:  strPtr("urgent"),
			UpdatedBy: "manager",
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.Priority != "urgent" {
			t.Errorf("priority = %q", updated.Priority)
		}

		entries, err := f.histRepo.ListByTicket(ctx, resp.ID)
		if err != nil {
			t.Fatal(err)
		}
		// creation entry plus the update
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
	})

	t.Run("no-op update appends no history", func(t *testing.T) {
		resp := f.createTicket(t, nil)
		before := len(f.histRepo.byTicket(resp.ID))
		if _, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{}); err != nil {
			t.Fatal(err)
		}
		if got := len(f.histRepo.byTicket(resp.ID)); got != before {
			t.Errorf("history grew from %d to %d on no-op", before, got)
		}
	})

	t.Run("sla change recomputes due date", func(t *testing.T) {
		resp := f.createTicket(t, nil)
		sla := 20
		updated, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{SLADays: &sla})
		if err != nil {
			t.Fatal(err)
		}
		if updated.SLADays != 20 {
			t.Errorf("sla days = %d", updated.SLADays)
		}
		if updated.DueDate == nil || !updated.DueDate.After(*resp.DueDate) {
			t.Error("due date not pushed out by larger SLA")
		}
	})

	t.Run("closed ticket rejected", func(t *testing.T) {
		resp := f.createTicket(t, nil)
		if _, err := f.svc.CloseTicket(ctx, resp.ID, "admin"); err != nil {
			t.Fatal(err)
		}
		_, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{Priority: strPtr("low")})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestReassign(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	updated, err := f.svc.Reassign(ctx, resp.ID, &models.ReassignRequest{Assignee: "sara", ChangedBy: "manager"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Assignee != "sara" {
		t.Errorf("assignee = %q", updated.Assignee)
	}

	entries := f.histRepo.byTicket(resp.ID)
	var reassignments int
	for _, e := range entries {
		if e.ChangeType == models.ChangeTypeReassignment {
			reassignments++
		}
	}
	if reassignments != 1 {
		t.Errorf("reassignment entries = %d, want 1", reassignments)
	}

	// Same assignee again is a no-op.
	if _, err := f.svc.Reassign(ctx, resp.ID, &models.ReassignRequest{Assignee: "sara"}); err != nil {
		t.Fatal(err)
	}
	if got := len(f.histRepo.byTicket(resp.ID)); got != len(entries) {
		t.Error("no-op reassignment appended history")
	}
}

func TestRevert(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	completeStep(t, f.engineFixture, resp.ID, 1)

	updated, err := f.svc.Revert(ctx, resp.ID, &models.RevertRequest{
		DepartmentID: f.maintenance.ID.String(),
		Reason:       "missing invoice copy",
		RevertedBy:   "accounts-lead",
	})
	if err != nil {
		t.Fatal(err)
	}

	if updated.CurrentWorkflowStep != 1 {
		t.Errorf("current step = %d, want 1", updated.CurrentWorkflowStep)
	}
	if updated.Status != models.StatusInProgress {
		t.Errorf("status = %q, want in_progress", updated.Status)
	}
	if updated.CurrentDepartmentName != "Maintenance" {
		t.Errorf("current department = %q", updated.CurrentDepartmentName)
	}

	statuses := updated.WorkflowStatus
	if statuses[0].Status != models.StepInProgress || statuses[0].CompletedAt != nil {
		t.Errorf("reverted step wrong: %+v", statuses[0])
	}
	if statuses[1].Status != models.StepPending {
		t.Errorf("later step = %q, want pending", statuses[1].Status)
	}

	var revert *models.WorkflowResolution
	for _, r := range f.resRepo.resolutions {
		if r.IsRevert {
			revert = r
		}
	}
	if revert == nil {
		t.Fatal("no revert resolution recorded")
	}
	if revert.StepNumber != 1 {
		t.Errorf("revert step number = %d, want 1", revert.StepNumber)
	}
	if revert.ResolutionText != "missing invoice copy" {
		t.Errorf("revert reason = %q", revert.ResolutionText)
	}

	var revertEntries int
	for _, e := range f.histRepo.byTicket(resp.ID) {
		if e.ChangeType == models.ChangeTypeRevert {
			revertEntries++
		}
	}
	if revertEntries != 1 {
		t.Errorf("revert history entries = %d, want 1", revertEntries)
	}
}

func TestRevertAtFirstStepStaysAtOne(t *testing.T) {
	f := newServiceFixture(t)
	resp := f.createTicket(t, nil)

	updated, err := f.svc.Revert(context.Background(), resp.ID, &models.RevertRequest{
		DepartmentID: f.maintenance.ID.String(),
		Reason:       "wrong category",
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.CurrentWorkflowStep != 1 {
		t.Errorf("current step = %d, want clamped to 1", updated.CurrentWorkflowStep)
	}
}

func TestRevertUnknownDepartment(t *testing.T) {
	f := newServiceFixture(t)
	resp := f.createTicket(t, nil)

	_, err := f.svc.Revert(context.Background(), resp.ID, &models.RevertRequest{
		DepartmentID: "6a6e2c0a-6a4c-4f9e-9a53-000000000000",
		Reason:       "x",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCloseTicket(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	closed, err := f.svc.CloseTicket(ctx, resp.ID, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if closed.Status != models.StatusClosed {
		t.Errorf("status = %q, want closed", closed.Status)
	}

	// Closing again is a no-op, not an error.
	before := len(f.histRepo.byTicket(resp.ID))
	again, err := f.svc.CloseTicket(ctx, resp.ID, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != models.StatusClosed {
		t.Errorf("status = %q", again.Status)
	}
	if got := len(f.histRepo.byTicket(resp.ID)); got != before {
		t.Error("repeat close appended history")
	}
}

func TestListTicketsPromotesOverdueFirst(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	// Push the due date into the past directly.
	ticket, err := f.ticketRepo.FindByID(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(0, 0, -3)
	ticket.DueDate = &past
	if err := f.ticketRepo.Update(ctx, ticket); err != nil {
		t.Fatal(err)
	}

	tickets, total, err := f.svc.ListTickets(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if tickets[0].Status != models.StatusOverdue {
		t.Errorf("status = %q, want overdue after promotion", tickets[0].Status)
	}

	// Promotion is idempotent: a second listing changes nothing.
	tickets, _, err = f.svc.ListTickets(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tickets[0].Status != models.StatusOverdue {
		t.Errorf("status flipped on second listing: %q", tickets[0].Status)
	}
}

func TestResolveForDepartment(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	resolved, err := f.svc.ResolveForDepartment(ctx, resp.ID, &models.ResolveRequest{
		ResolutionText: "valve replaced",
		ResolvedBy:     "tech",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.StatusResolved || !resolved.IsFullyResolved {
		t.Errorf("ticket not resolved: %q fully=%v", resolved.Status, resolved.IsFullyResolved)
	}
	for _, st := range resolved.WorkflowStatus {
		if st.Status != models.StepCompleted {
			t.Errorf("step %d = %q, want completed", st.StepNumber, st.Status)
		}
	}

	if len(f.resRepo.resolutions) != 1 {
		t.Fatalf("resolutions = %d, want 1", len(f.resRepo.resolutions))
	}
	res := f.resRepo.resolutions[0]
	if !res.IsFinalResolution {
		t.Error("resolution not marked final")
	}
	if res.SLAStatus == "" {
		t.Error("sla verdict missing")
	}

	// Resolving twice is rejected.
	_, err = f.svc.ResolveForDepartment(ctx, resp.ID, &models.ResolveRequest{ResolutionText: "again"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestAttachments(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	completeStep(t, f.engineFixture, resp.ID, 1)
	resolution := f.resRepo.resolutions[0]

	payload := []byte("inspection report")
	attachment, err := f.svc.UploadAttachment(ctx, resolution.ID, "report.pdf", "application/pdf",
		int64(len(payload)), bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if attachment.FileName != "report.pdf" || attachment.FileSize != int64(len(payload)) {
		t.Errorf("attachment metadata wrong: %+v", attachment)
	}
	if len(f.store.objects) != 1 {
		t.Errorf("stored objects = %d, want 1", len(f.store.objects))
	}

	url, err := f.svc.AttachmentURL(ctx, attachment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "https://storage.local/") {
		t.Errorf("url = %q", url)
	}
}

func TestGetStats(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.createTicket(t, nil)
	second := f.createTicket(t, nil)
	if _, err := f.svc.CloseTicket(ctx, second.ID, "admin"); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Open != 1 || stats.Closed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetHistoryOrdering(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp := f.createTicket(t, nil)

	for i, p := range []string{"high", "low", "urgent"} {
		if _, err := f.svc.UpdateTicket(ctx, resp.ID, &models.TicketUpdateRequest{
			Priority:  strPtr(p),
			UpdatedBy: fmt.Sprintf("user-%d", i),
		}); err != nil {
			t.Fatal(err)
		}
	}

	history, err := f.svc.GetHistory(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 {
		t.Fatalf("entries = %d, want 4 (created + 3 updates)", len(history))
	}
}
