package handlers

import (
	"github.com/airaware/aqi-analytics/internal/downsampling"
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/airaware/aqi-analytics/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Regressor runs the batch forecast over every country and persists it
// POST /regressor
func (h *Handler) Regressor(c *fiber.Ctx) error {
	var body models.RegressorRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return invalidBody(err)
		}
	}

	report, err := h.forecastService.RunBatch(c.UserContext(), services.BatchOptions{Workers: body.Workers})
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// Regression serves a persisted forecast table, optionally reduced to
// max_points rows for charting
// GET /api/regression?country=India&max_points=60&mode=lttb
func (h *Handler) Regression(c *fiber.Ctx) error {
	country := c.Query("country")

	mode, err := downsampling.ParseMode(c.Query("mode"))
	if err != nil {
		return services.NewServiceError(services.CodeInvalidRequest, err.Error())
	}
	maxPoints := c.QueryInt("max_points", 0)
	if maxPoints < 0 {
		return services.NewServiceError(services.CodeInvalidRequest, "max_points must not be negative")
	}

	rows, err := h.forecastService.ForecastRows(country)
	if err != nil {
		return err
	}

	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	if maxPoints > 0 {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = r.PredictedAQI
		}
		if indices, err = downsampling.Select(values, mode, maxPoints); err != nil {
			return services.NewServiceError(services.CodeInvalidRequest, err.Error())
		}
	}

	out := make([]models.RegressionRow, len(indices))
	for i, idx := range indices {
		out[i] = models.RegressionRow{
			Country:      country,
			Date:         rows[idx].Date.Format(utils.DateLayout),
			PredictedAQI: rows[idx].PredictedAQI,
		}
	}
	return c.JSON(out)
}

// Metrics serves the persisted metrics summary
// GET /api/metrics
func (h *Handler) Metrics(c *fiber.Ctx) error {
	rows, err := h.forecastService.MetricsSummary()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"metrics": rows})
}
