package router

import (
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/handlers"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/middleware"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Services groups the domain services the HTTP layer serves
type Services struct {
	Forecast       *services.ForecastService
	Classification *services.ClassificationService
	Cluster        *services.ClusterService
	Dataset        *services.DatasetService
}

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, svc Services) *handlers.Handler {
	h := handlers.New(logger, svc.Forecast, svc.Classification, svc.Cluster, svc.Dataset)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	app.Get("/health", h.Health)
	app.Get("/categories", h.Categories)

	// Forecasting
	app.Post("/predict", h.Predict)
	app.Post("/regressor", h.Regressor)

	// Persisted results
	api := app.Group("/api")
	api.Get("/regression", h.Regression)
	api.Get("/metrics", h.Metrics)

	// Analysis
	app.Post("/classifier", h.Classifier)
	app.Post("/cluster", h.Cluster)

	app.Get("/dataset", h.Dataset)
	app.Get("/dataset/anomalies", h.Anomalies)

	admin := app.Group("/admin")
	admin.Post("/dataset/invalidate", h.InvalidateDataset)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, svc Services, cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "AQI Analytics",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, svc)

	return app
}
