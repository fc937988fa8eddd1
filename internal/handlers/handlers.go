package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/propcare/backend/internal/repository"
	"github.com/propcare/backend/internal/services"
	"github.com/propcare/backend/pkg/utils"
)

// serviceError maps typed service errors onto HTTP status codes.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrStepNotFound):
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrStoreUnavailable):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
}
