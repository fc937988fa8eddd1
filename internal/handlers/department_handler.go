package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/services"
	"github.com/propcare/backend/pkg/utils"
)

type DepartmentHandler struct {
	service  services.DepartmentService
	validate *validator.Validate
}

func NewDepartmentHandler(service services.DepartmentService, validate *validator.Validate) *DepartmentHandler {
	return &DepartmentHandler{service: service, validate: validate}
}

// CreateDepartment handles POST /api/departments
func (h *DepartmentHandler) CreateDepartment(c *fiber.Ctx) error {
	var req models.DepartmentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	dept, err := h.service.CreateDepartment(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "department created", dept)
}

// ListDepartments handles GET /api/departments
func (h *DepartmentHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.service.ListDepartments(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", departments)
}

// GetDepartment handles GET /api/departments/:id
func (h *DepartmentHandler) GetDepartment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid department id")
	}

	dept, err := h.service.GetDepartment(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", dept)
}

// UpdateDepartment handles PUT /api/departments/:id
func (h *DepartmentHandler) UpdateDepartment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid department id")
	}

	var req models.DepartmentUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	dept, err := h.service.UpdateDepartment(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "department updated", dept)
}

// DeleteDepartment handles DELETE /api/departments/:id
func (h *DepartmentHandler) DeleteDepartment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid department id")
	}

	if err := h.service.DeleteDepartment(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "department deleted", nil)
}
