package handlers

import (
	"testing"

	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/airaware/aqi-analytics/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressor(t *testing.T) {
	a := setupTestApp(t, map[string]int{"Chile": 120, "Tiny": 20})

	resp := a.do(t, "GET", "/api/regression?country=Chile", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, services.CodeResultNotFound, errorCode(t, resp))

	resp = a.do(t, "POST", "/regressor", `{"workers": 1}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report services.BatchReport
	decode(t, resp, &report)
	require.Len(t, report.Countries, 2)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, services.CodeInsufficientHistory, report.Countries[1].Code)

	resp = a.do(t, "GET", "/api/regression?country=Chile", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var rows []models.RegressionRow
	decode(t, resp, &rows)
	require.Len(t, rows, 180)
	assert.Equal(t, "Chile", rows[0].Country)
	assert.Equal(t, "2022-05-01", rows[0].Date)

	resp = a.do(t, "GET", "/api/regression?country=Chile&max_points=30", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &rows)
	require.Len(t, rows, 30)
	assert.Equal(t, "2022-05-01", rows[0].Date)
	assert.Equal(t, "2022-10-27", rows[29].Date)

	resp = a.do(t, "GET", "/api/regression?country=Chile&max_points=2", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, "GET", "/api/regression?country=Chile&mode=m4", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, "GET", "/api/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var metrics struct {
		Metrics []storage.MetricsRow `json:"metrics"`
	}
	decode(t, resp, &metrics)
	require.Len(t, metrics.Metrics, 1)
	assert.Equal(t, "Chile", metrics.Metrics[0].Country)
}

func TestRegressor_EmptyBody(t *testing.T) {
	a := setupTestApp(t, map[string]int{"Tiny": 20})

	resp := a.do(t, "POST", "/regressor", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report services.BatchReport
	decode(t, resp, &report)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
}

func TestRegression_RequiresCountry(t *testing.T) {
	a := setupTestApp(t, map[string]int{"Chile": 120})

	resp := a.do(t, "GET", "/api/regression", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.CodeInvalidRequest, errorCode(t, resp))
}
