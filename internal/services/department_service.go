package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/repository"
)

// DepartmentService manages departments and their ticket types.
type DepartmentService interface {
	CreateDepartment(ctx context.Context, req *models.DepartmentCreateRequest) (*models.DepartmentResponse, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*models.DepartmentResponse, error)
	ListDepartments(ctx context.Context) ([]models.DepartmentResponse, error)
	UpdateDepartment(ctx context.Context, id uuid.UUID, req *models.DepartmentUpdateRequest) (*models.DepartmentResponse, error)
	DeleteDepartment(ctx context.Context, id uuid.UUID) error
}

type departmentService struct {
	repo   repository.DepartmentRepository
	logger *zap.Logger
}

func NewDepartmentService(repo repository.DepartmentRepository, logger *zap.Logger) DepartmentService {
	return &departmentService{repo: repo, logger: logger}
}

func (s *departmentService) CreateDepartment(ctx context.Context, req *models.DepartmentCreateRequest) (*models.DepartmentResponse, error) {
	dept := &models.Department{
		Name:          req.Name,
		SubCategories: models.EncodeSubCategories(req.SubCategories),
		TicketTypes:   buildTicketTypes(req.TicketTypes),
	}

	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, dept.ID)
	if err != nil {
		return nil, err
	}
	resp := models.ToDepartmentResponse(created)
	return &resp, nil
}

func (s *departmentService) GetDepartment(ctx context.Context, id uuid.UUID) (*models.DepartmentResponse, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("department %s", id))
	}
	resp := models.ToDepartmentResponse(dept)
	return &resp, nil
}

func (s *departmentService) ListDepartments(ctx context.Context) ([]models.DepartmentResponse, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return []models.DepartmentResponse{}, nil
		}
		return nil, err
	}

	responses := make([]models.DepartmentResponse, len(departments))
	for i := range departments {
		responses[i] = models.ToDepartmentResponse(&departments[i])
	}
	return responses, nil
}

func (s *departmentService) UpdateDepartment(ctx context.Context, id uuid.UUID, req *models.DepartmentUpdateRequest) (*models.DepartmentResponse, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("department %s", id))
	}

	if req.Name != "" {
		dept.Name = req.Name
	}
	if req.SubCategories != nil {
		dept.SubCategories = models.EncodeSubCategories(req.SubCategories)
	}

	if err := s.repo.Update(ctx, dept); err != nil {
		return nil, err
	}

	if req.TicketTypes != nil {
		if err := s.repo.ReplaceTicketTypes(ctx, id, buildTicketTypes(req.TicketTypes)); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := models.ToDepartmentResponse(updated)
	return &resp, nil
}

func (s *departmentService) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return asLookupError(err, fmt.Sprintf("department %s", id))
	}
	return s.repo.Delete(ctx, id)
}

func buildTicketTypes(reqs []models.TicketTypeRequest) []models.TicketType {
	types := make([]models.TicketType, len(reqs))
	for i, tr := range reqs {
		tt := models.TicketType{
			Name:            tr.Name,
			DefaultDuration: tr.DefaultDuration,
			Priority:        tr.Priority,
			SubCategory:     tr.SubCategory,
			SortOrder:       i,
		}
		if tt.DefaultDuration == 0 {
			tt.DefaultDuration = DefaultSLADays
		}
		if tt.Priority == "" {
			tt.Priority = "medium"
		}
		if tr.WorkflowID != nil {
			if wfID, err := uuid.Parse(*tr.WorkflowID); err == nil {
				tt.WorkflowID = &wfID
			}
		}
		types[i] = tt
	}
	return types
}
