package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/database"
	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/repository"
)

const (
	defaultWorkflowCacheKey = "workflow:default"
	workflowCacheTTL        = 10 * time.Minute
)

// WorkflowService manages workflow templates: ordered department steps
// with estimated durations, at most one marked as the system default.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, req *models.WorkflowCreateRequest) (*models.WorkflowResponse, error)
	GetWorkflow(ctx context.Context, id uuid.UUID) (*models.WorkflowResponse, error)
	GetDefaultWorkflow(ctx context.Context) (*models.WorkflowResponse, error)
	ListWorkflows(ctx context.Context) ([]models.WorkflowResponse, error)
	UpdateWorkflow(ctx context.Context, id uuid.UUID, req *models.WorkflowUpdateRequest) (*models.WorkflowResponse, error)
	SetDefaultWorkflow(ctx context.Context, id uuid.UUID) error
	DeleteWorkflow(ctx context.Context, id uuid.UUID) error
}

type workflowService struct {
	repo           repository.WorkflowRepository
	departmentRepo repository.DepartmentRepository
	cache          *database.CacheStore
	logger         *zap.Logger
}

func NewWorkflowService(repo repository.WorkflowRepository, departmentRepo repository.DepartmentRepository, cache *database.CacheStore, logger *zap.Logger) WorkflowService {
	return &workflowService{
		repo:           repo,
		departmentRepo: departmentRepo,
		cache:          cache,
		logger:         logger,
	}
}

func (s *workflowService) CreateWorkflow(ctx context.Context, req *models.WorkflowCreateRequest) (*models.WorkflowResponse, error) {
	steps, err := s.buildSteps(ctx, req.Steps)
	if err != nil {
		return nil, err
	}

	workflow := &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
		Steps:       steps,
	}

	if err := s.repo.Create(ctx, workflow); err != nil {
		return nil, err
	}
	s.invalidateDefaultCache(ctx)

	created, err := s.repo.FindByID(ctx, workflow.ID)
	if err != nil {
		return nil, err
	}
	resp := models.ToWorkflowResponse(created)
	return &resp, nil
}

func (s *workflowService) GetWorkflow(ctx context.Context, id uuid.UUID) (*models.WorkflowResponse, error) {
	workflow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("workflow %s", id))
	}
	resp := models.ToWorkflowResponse(workflow)
	return &resp, nil
}

func (s *workflowService) GetDefaultWorkflow(ctx context.Context) (*models.WorkflowResponse, error) {
	if s.cache != nil {
		var cached models.Workflow
		if ok, err := s.cache.Get(ctx, defaultWorkflowCacheKey, &cached); err == nil && ok {
			resp := models.ToWorkflowResponse(&cached)
			return &resp, nil
		}
	}

	workflow, err := s.repo.FindDefault(ctx)
	if err != nil {
		return nil, asLookupError(err, "default workflow")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, defaultWorkflowCacheKey, workflow, workflowCacheTTL); err != nil {
			s.logger.Warn("cache default workflow", zap.Error(err))
		}
	}

	resp := models.ToWorkflowResponse(workflow)
	return &resp, nil
}

func (s *workflowService) ListWorkflows(ctx context.Context) ([]models.WorkflowResponse, error) {
	workflows, err := s.repo.List(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return []models.WorkflowResponse{}, nil
		}
		return nil, err
	}

	responses := make([]models.WorkflowResponse, len(workflows))
	for i, w := range workflows {
		responses[i] = models.ToWorkflowResponse(&w)
	}
	return responses, nil
}

func (s *workflowService) UpdateWorkflow(ctx context.Context, id uuid.UUID, req *models.WorkflowUpdateRequest) (*models.WorkflowResponse, error) {
	workflow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asLookupError(err, fmt.Sprintf("workflow %s", id))
	}

	if req.Name != "" {
		workflow.Name = req.Name
	}
	if req.Description != nil {
		workflow.Description = *req.Description
	}
	if req.IsDefault != nil {
		workflow.IsDefault = *req.IsDefault
	}

	if err := s.repo.Update(ctx, workflow); err != nil {
		return nil, err
	}

	if req.Steps != nil {
		steps, err := s.buildSteps(ctx, req.Steps)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceSteps(ctx, id, steps); err != nil {
			return nil, err
		}
	}
	s.invalidateDefaultCache(ctx)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := models.ToWorkflowResponse(updated)
	return &resp, nil
}

func (s *workflowService) SetDefaultWorkflow(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetDefault(ctx, id); err != nil {
		return asLookupError(err, fmt.Sprintf("workflow %s", id))
	}
	s.invalidateDefaultCache(ctx)
	return nil
}

func (s *workflowService) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return asLookupError(err, fmt.Sprintf("workflow %s", id))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateDefaultCache(ctx)
	return nil
}

// buildSteps resolves step requests into denormalized workflow steps with
// dense 1-based numbering, failing fast when a department is missing.
func (s *workflowService) buildSteps(ctx context.Context, reqs []models.WorkflowStepRequest) ([]models.WorkflowStep, error) {
	steps := make([]models.WorkflowStep, len(reqs))
	for i, sr := range reqs {
		deptID, err := uuid.Parse(sr.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: department id %q", ErrNotFound, sr.DepartmentID)
		}
		dept, err := s.departmentRepo.FindByID(ctx, deptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound(fmt.Sprintf("department %s", deptID))
			}
			return nil, err
		}
		steps[i] = models.WorkflowStep{
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			StepNumber:     i + 1,
			EstimatedValue: sr.EstimatedValue,
			EstimatedUnit:  models.DurationUnit(sr.EstimatedUnit),
			Required:       true,
		}
	}
	return steps, nil
}

func (s *workflowService) invalidateDefaultCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, defaultWorkflowCacheKey); err != nil {
		s.logger.Warn("invalidate default workflow cache", zap.Error(err))
	}
}
