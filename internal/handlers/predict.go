package handlers

import (
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/classify"
	"github.com/airaware/aqi-analytics/internal/analytics/features"
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/airaware/aqi-analytics/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Predict runs a real-time what-if forecast
// POST /predict
func (h *Handler) Predict(c *fiber.Ctx) error {
	var body models.PredictRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(err)
	}

	if missing := body.MissingFields(); len(missing) > 0 {
		return services.NewServiceErrorWithDetails(services.CodeInvalidRequest, "Missing required fields",
			map[string]interface{}{"missing": missing})
	}

	date, err := parseDate(body.Date)
	if err != nil {
		return services.NewServiceErrorWithDetails(services.CodeInvalidRequest, "date must be YYYY-MM-DD or RFC3339",
			map[string]interface{}{"date": body.Date})
	}

	result, err := h.forecastService.Predict(c.UserContext(), services.PredictRequest{
		Country: body.Country,
		Region:  body.Region,
		Exogenous: features.Exogenous{
			Temperature:      *body.Temperature,
			RelativeHumidity: *body.RelativeHumidity,
			WindSpeed:        *body.WindSpeed,
		},
		Date: date,
	})
	if err != nil {
		return err
	}

	points := result.Forecast.Points
	resp := models.PredictResponse{
		Country:       result.Country,
		Predictions:   make([]models.Prediction, len(points)),
		StartDate:     result.Forecast.StartDate.Format(utils.DateLayout),
		EndDate:       result.Forecast.EndDate.Format(utils.DateLayout),
		PaddedHistory: result.Forecast.Padded,
	}
	for i, p := range points {
		resp.Predictions[i] = models.Prediction{Date: p.Date.Format(utils.DateLayout), AQI: p.AQI}
	}
	if len(points) > 0 {
		resp.Category = string(classify.Categorize(points[0].AQI))
		resp.HealthMessage = classify.HealthMessage(points[0].AQI)
	}
	return c.JSON(resp)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(utils.DateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
