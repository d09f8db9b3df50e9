package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/middleware"
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/airaware/aqi-analytics/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type csvLoader string

func (l csvLoader) Load(ctx context.Context) (*dataset.Dataset, error) {
	return dataset.Read(ctx, strings.NewReader(string(l)), "memory.csv")
}

func syntheticCSV(days map[string]int) string {
	var b strings.Builder
	b.WriteString("Country,Date,AQI,Temperature,RelativeHumidity,WindSpeed\n")
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for k, country := range []string{"Chile", "India", "Tiny"} {
		for i := 0; i < days[country]; i++ {
			phase := 2 * math.Pi * float64(i) / 30
			fmt.Fprintf(&b, "%s,%s,%.2f,%.2f,%.2f,%.2f\n", country, start.AddDate(0, 0, i).Format("2006-01-02"),
				60+40*float64(k)+25*math.Sin(phase), 20+5*math.Cos(phase), 55+10*math.Sin(phase/2), 3+math.Mod(float64(i), 4))
		}
	}
	return b.String()
}

type testApp struct {
	app   *fiber.App
	store *storage.FileStore
}

func setupTestApp(t *testing.T, days map[string]int) *testApp {
	t.Helper()
	logger := logging.NewNop()

	cfg := config.DefaultConfig()
	cfg.Dataset.CachePolicy = config.CachePolicyCached
	cfg.Forecast.Model.NumTrees = 15
	cfg.Forecast.Model.MaxDepth = 3
	cfg.Forecast.Workers = 2
	cfg.Classification.ForestTrees = 8
	cfg.Classification.ForestMaxDepth = 4
	cfg.Storage.ResultsDir = t.TempDir()

	store, err := storage.NewFileStore(cfg.Storage.ResultsDir, logger)
	require.NoError(t, err)
	cache := dataset.NewCache(csvLoader(syntheticCSV(days)), cfg.Dataset, logger)

	h := New(logger,
		services.NewForecastService(logger, cache, store, nil, cfg.Forecast),
		services.NewClassificationService(logger, cache, store, cfg.Classification),
		services.NewClusterService(logger, cache, cfg.Clustering),
		services.NewDatasetService(logger, cache),
	)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Get("/health", h.Health)
	app.Get("/categories", h.Categories)
	app.Post("/predict", h.Predict)
	app.Post("/regressor", h.Regressor)
	app.Get("/api/regression", h.Regression)
	app.Get("/api/metrics", h.Metrics)
	app.Post("/classifier", h.Classifier)
	app.Post("/cluster", h.Cluster)
	app.Get("/dataset", h.Dataset)
	app.Get("/dataset/anomalies", h.Anomalies)
	app.Post("/admin/dataset/invalidate", h.InvalidateDataset)
	app.Use(h.NotFound)

	return &testApp{app: app, store: store}
}

func (a *testApp) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req, 60_000)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var errResp models.ErrorResponse
	decode(t, resp, &errResp)
	return errResp.Error.Code
}
