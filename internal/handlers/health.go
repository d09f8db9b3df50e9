package handlers

import (
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/classify"
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/airaware/aqi-analytics/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Health handles health check requests
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   utils.Version,
	})
}

// Categories lists the AQI bands with their health guidance
// GET /categories
func (h *Handler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": classify.HealthImpacts()})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
