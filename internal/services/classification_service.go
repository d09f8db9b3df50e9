package services

import (
	"context"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/classify"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/storage"
	"github.com/airaware/aqi-analytics/internal/utils"
)

// ClassificationService compares AQI category classifiers on the whole
// dataset and persists the summary
type ClassificationService struct {
	logger *logging.Logger
	cache  *dataset.Cache
	store  storage.ResultStore
	cfg    config.ClassificationConfig
}

// NewClassificationService creates a ClassificationService
func NewClassificationService(logger *logging.Logger, cache *dataset.Cache, store storage.ResultStore, cfg config.ClassificationConfig) *ClassificationService {
	return &ClassificationService{logger: logger, cache: cache, store: store, cfg: cfg}
}

// Run trains every classifier family and writes the classification summary
func (s *ClassificationService) Run(ctx context.Context) (*classify.Report, error) {
	start := time.Now()

	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	samples := classify.BuildSamples(ds.Observations)
	report, err := classify.Run(ctx, samples, classify.Models(s.cfg), s.cfg)
	if err != nil {
		return nil, toServiceError(err, map[string]interface{}{"dropped_rows": samples.Dropped})
	}

	rows := make([]storage.ClassificationRow, len(report.Models))
	for i := range report.Models {
		m := &report.Models[i]
		m.Accuracy = utils.JSONSafe(m.Accuracy)
		m.Precision = utils.JSONSafe(m.Precision)
		m.Recall = utils.JSONSafe(m.Recall)
		m.F1 = utils.JSONSafe(m.F1)
		rows[i] = storage.ClassificationRow{
			Model:     m.Model,
			Accuracy:  m.Accuracy,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
		}
	}
	if err := s.store.SaveClassification(rows); err != nil {
		return nil, toServiceError(err, nil)
	}

	s.logger.WithContext(ctx).Info("Classification completed",
		"models", len(report.Models),
		"train_rows", report.TrainRows,
		"test_rows", report.TestRows,
		"dropped_rows", report.DroppedRows,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
