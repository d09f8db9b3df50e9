package handlers

import (
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Dataset describes the loaded dataset and its validation report
// GET /dataset
func (h *Handler) Dataset(c *fiber.Ctx) error {
	summary, err := h.datasetService.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// InvalidateDataset drops the cached dataset and trained models
// POST /admin/dataset/invalidate
func (h *Handler) InvalidateDataset(c *fiber.Ctx) error {
	h.datasetService.Invalidate()
	logging.InfoCtx(c.UserContext(), "Dataset cache invalidated")
	return c.JSON(models.InvalidateResponse{Invalidated: true})
}

// Anomalies flags unusual AQI readings
// GET /dataset/anomalies?country=India&method=zscore
func (h *Handler) Anomalies(c *fiber.Ctx) error {
	results, err := h.datasetService.Anomalies(c.UserContext(), c.Query("country"), c.Query("method"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"anomalies": results})
}
