package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/database"
	"github.com/propcare/backend/pkg/utils"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health. The service stays up without its store and
// reports degraded instead of failing.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := database.Ping(c.Context(), h.db); err != nil {
		status = "degraded"
		dbStatus = "unavailable"
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", fiber.Map{
		"status":   status,
		"database": dbStatus,
	})
}
