package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/propcare/backend/internal/models"
	"github.com/propcare/backend/internal/services"
	"github.com/propcare/backend/pkg/utils"
)

type TicketHandler struct {
	service  services.TicketService
	validate *validator.Validate
}

func NewTicketHandler(service services.TicketService, validate *validator.Validate) *TicketHandler {
	return &TicketHandler{service: service, validate: validate}
}

// CreateTicket handles POST /api/tickets
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	var req models.TicketCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.service.CreateTicket(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "ticket created", ticket)
}

// ListTickets handles GET /api/tickets
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	filter := &models.TicketFilter{
		Search: c.Query("search"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 20),
	}

	if v := c.Query("department_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid department_id")
		}
		filter.DepartmentID = &id
	}
	if v := c.Query("status"); v != "" {
		status := models.TicketStatus(v)
		filter.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		filter.Priority = &v
	}
	if v := c.Query("assignee"); v != "" {
		filter.Assignee = &v
	}

	tickets, total, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.PaginatedSuccessResponse(c, tickets, total, filter.Page, filter.Limit)
}

// GetStats handles GET /api/tickets/stats
func (h *TicketHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", stats)
}

// GetTicket handles GET /api/tickets/:id
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := h.service.GetTicket(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", ticket)
}

// UpdateTicket handles PUT /api/tickets/:id
func (h *TicketHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var req models.TicketUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.service.UpdateTicket(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "ticket updated", ticket)
}

// DeleteTicket handles DELETE /api/tickets/:id
func (h *TicketHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	if err := h.service.DeleteTicket(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "ticket deleted", nil)
}

// AddDepartmentAction handles POST /api/tickets/:id/actions
func (h *TicketHandler) AddDepartmentAction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var req models.DepartmentActionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.service.AddDepartmentAction(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "action recorded", ticket)
}

// Reassign handles POST /api/tickets/:id/reassign
func (h *TicketHandler) Reassign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var req models.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.service.Reassign(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "ticket reassigned", ticket)
}

// Revert handles POST /api/tickets/:id/revert
func (h *TicketHandler) Revert(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var req models.RevertRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.service.Revert(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "ticket reverted", ticket)
}

// CloseTicket handles POST /api/tickets/:id/close
func (h *TicketHandler) CloseTicket(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var req struct {
		ClosedBy string `json:"closed_by"`
	}
	_ = c.BodyParser(&req)

	ticket, err := h.service.CloseTicket(c.Context(), id, req.ClosedBy)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "ticket closed", ticket)
}

// ResolveTicket handles POST /api/tickets/:id/resolve
func (h *TicketHandler) ResolveTicket(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var req models.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.service.ResolveForDepartment(c.Context(), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "ticket resolved", ticket)
}

// GetHistory handles GET /api/tickets/:id/history
func (h *TicketHandler) GetHistory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	history, err := h.service.GetHistory(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", history)
}

// GetResolutions handles GET /api/tickets/:id/resolutions
func (h *TicketHandler) GetResolutions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	resolutions, err := h.service.GetResolutions(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", resolutions)
}

// UploadAttachment handles POST /api/resolutions/:id/attachments
func (h *TicketHandler) UploadAttachment(c *fiber.Ctx) error {
	resolutionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid resolution id")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "failed to read file")
	}
	defer file.Close()

	attachment, err := h.service.UploadAttachment(
		c.Context(), resolutionID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "attachment uploaded", attachment)
}

// GetAttachmentURL handles GET /api/attachments/:id/url
func (h *TicketHandler) GetAttachmentURL(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid attachment id")
	}

	url, err := h.service.AttachmentURL(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", fiber.Map{"url": url})
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
