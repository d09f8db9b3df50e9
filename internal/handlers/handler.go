package handlers

import (
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger *logging.Logger

	forecastService       *services.ForecastService
	classificationService *services.ClassificationService
	clusterService        *services.ClusterService
	datasetService        *services.DatasetService
}

// New creates a new handler instance
func New(
	logger *logging.Logger,
	forecastService *services.ForecastService,
	classificationService *services.ClassificationService,
	clusterService *services.ClusterService,
	datasetService *services.DatasetService,
) *Handler {
	return &Handler{
		logger:                logger,
		forecastService:       forecastService,
		classificationService: classificationService,
		clusterService:        clusterService,
		datasetService:        datasetService,
	}
}

func invalidBody(err error) error {
	return services.NewServiceErrorWithDetails(services.CodeInvalidRequest, "Failed to parse JSON body",
		map[string]interface{}{"error": err.Error()})
}
