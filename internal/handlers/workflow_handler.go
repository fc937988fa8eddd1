package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/services"
	"github.com/propcare/backend/pkg/utils"
)

type WorkflowHandler struct {
	service  services.WorkflowService
	validate *validator.Validate
}

func NewWorkflowHandler(service services.WorkflowService, validate *validator.Validate) *WorkflowHandler {
	return &WorkflowHandler{service: service, validate: validate}
}

// CreateWorkflow handles POST /api/workflows
func (h *WorkflowHandler) CreateWorkflow(c *fiber.Ctx) error {
	var req models.WorkflowCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	workflow, err := h.service.CreateWorkflow(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "workflow created", workflow)
}

// ListWorkflows handles GET /api/workflows
func (h *WorkflowHandler) ListWorkflows(c *fiber.Ctx) error {
	workflows, err := h.service.ListWorkflows(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", workflows)
}

// GetDefaultWorkflow handles GET /api/workflows/default
func (h *WorkflowHandler) GetDefaultWorkflow(c *fiber.Ctx) error {
	workflow, err := h.service.GetDefaultWorkflow(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", workflow)
}

// GetWorkflow handles GET /api/workflows/:id
func (h *WorkflowHandler) GetWorkflow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid workflow id")
	}

	workflow, err := h.service.GetWorkflow(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", workflow)
}

// UpdateWorkflow handles PUT /api/workflows/:id
func (h *WorkflowHandler) UpdateWorkflow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid workflow id")
	}

	var req models.WorkflowUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	workflow, err := h.service.UpdateWorkflow(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "workflow updated", workflow)
}

// SetDefaultWorkflow handles POST /api/workflows/:id/default
func (h *WorkflowHandler) SetDefaultWorkflow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid workflow id")
	}

	if err := h.service.SetDefaultWorkflow(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "default workflow set", nil)
}

// DeleteWorkflow handles DELETE /api/workflows/:id
func (h *WorkflowHandler) DeleteWorkflow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid workflow id")
	}

	if err := h.service.DeleteWorkflow(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "workflow deleted", nil)
}
