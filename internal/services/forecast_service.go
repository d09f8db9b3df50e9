package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics"
	"github.com/airaware/aqi-analytics/internal/analytics/features"
	"github.com/airaware/aqi-analytics/internal/analytics/forecast"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/queue"
	"github.com/airaware/aqi-analytics/internal/storage"
	"github.com/airaware/aqi-analytics/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	purposeRealtime = "realtime"
	purposeBatch    = "batch"
)

// ForecastService trains per-country regressors and runs the 180-day
// simulation, either for one what-if request or for every country at once
type ForecastService struct {
	logger  *logging.Logger
	cache   *dataset.Cache
	store   storage.ResultStore
	events  *queue.EventPublisher
	trainer *forecast.Trainer
	engine  *forecast.Engine
	cfg     config.ForecastConfig

	models *modelCache
	flight singleflight.Group
}

// NewForecastService creates a ForecastService. events may be nil.
func NewForecastService(
	logger *logging.Logger,
	cache *dataset.Cache,
	store storage.ResultStore,
	events *queue.EventPublisher,
	cfg config.ForecastConfig,
) *ForecastService {
	s := &ForecastService{
		logger:  logger,
		cache:   cache,
		store:   store,
		events:  events,
		trainer: forecast.NewTrainer(cfg, logger),
		engine:  forecast.NewEngine(cfg.Horizon, cfg.HistorySize, logger),
		cfg:     cfg,
		models:  newModelCache(),
	}
	cache.OnInvalidate(s.models.clear)
	return s
}

// PredictRequest is a real-time what-if request
type PredictRequest struct {
	Country   string
	Region    string // accepted for compatibility, not used by the model
	Exogenous features.Exogenous
	Date      time.Time // first forecast day
}

// PredictResult is the outcome of a what-if request
type PredictResult struct {
	Country  string
	Forecast *forecast.Result
	Model    forecast.ModelInfo
}

// Predict trains on the country's full history (or reuses the cached
// model under train_once) and simulates forward from req.Date with the
// weather held constant
func (s *ForecastService) Predict(ctx context.Context, req PredictRequest) (*PredictResult, error) {
	if req.Country == "" {
		return nil, NewServiceError(CodeInvalidRequest, "country is required")
	}
	if !req.Exogenous.Valid() {
		return nil, NewServiceError(CodeInvalidRequest, "temperature, relative_humidity and wind_speed must be finite numbers")
	}
	if req.Date.IsZero() {
		return nil, NewServiceError(CodeInvalidRequest, "date is required")
	}

	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	ctx = logging.WithCountry(ctx, req.Country)
	details := map[string]interface{}{"country": req.Country}
	table, err := trainableTable(ds, req.Country)
	if err != nil {
		return nil, toServiceError(err, details)
	}

	fitted, err := s.fitted(ctx, purposeRealtime, req.Country, ds.Version, func(ctx context.Context) (*forecast.Fitted, error) {
		return s.trainer.Fit(ctx, table)
	})
	if err != nil {
		return nil, toServiceError(err, details)
	}

	result, err := s.engine.Run(ctx, forecast.Request{
		Model:     fitted.Model,
		Seed:      forecast.SeedHistory(table, s.cfg.HistorySize),
		Exogenous: req.Exogenous,
		Start:     req.Date,
	})
	if err != nil {
		return nil, toServiceError(err, details)
	}
	cleanPoints(result.Points)

	s.logger.WithContext(ctx).Info("Real-time forecast completed",
		"region", req.Region,
		"start_date", result.StartDate.Format(utils.DateLayout),
		"padded", result.Padded,
	)
	s.publish(ctx, queue.ForecastEvent{
		RunID:     uuid.NewString(),
		Kind:      queue.KindRealtime,
		Country:   req.Country,
		Status:    queue.StatusCompleted,
		Points:    len(result.Points),
		StartDate: result.StartDate.Format(utils.DateLayout),
		EndDate:   result.EndDate.Format(utils.DateLayout),
	})

	return &PredictResult{Country: req.Country, Forecast: result, Model: fitted.Info}, nil
}

// CountryForecast is the batch outcome for one country
type CountryForecast struct {
	Country  string                       `json:"country"`
	Metrics  *analytics.RegressionMetrics `json:"metrics,omitempty"`
	Forecast []forecast.Point             `json:"forecast,omitempty"`
	Model    *forecast.ModelInfo          `json:"model,omitempty"`
	Error    string                       `json:"error,omitempty"`
	Code     string                       `json:"code,omitempty"`
}

// BatchReport is the outcome of a batch run
type BatchReport struct {
	RunID     string            `json:"run_id"`
	Countries []CountryForecast `json:"regressor"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Duration  time.Duration     `json:"duration_ns"`
}

// BatchOptions tunes a batch run
type BatchOptions struct {
	Workers int // parallel countries, defaults to the configured value
}

// RunBatch forecasts every country of the dataset. Countries are processed
// in parallel on a bounded pool; a failing country is reported and does
// not stop the others. Results are persisted in country order once all
// countries finished.
func (s *ForecastService) RunBatch(ctx context.Context, opts BatchOptions) (*BatchReport, error) {
	start := time.Now()

	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = s.cfg.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	countries := ds.Countries()
	report := &BatchReport{
		RunID:     uuid.NewString(),
		Countries: make([]CountryForecast, len(countries)),
	}
	logger := s.logger.With("run_id", report.RunID)
	logger.Info("Batch forecast started", "countries", len(countries), "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, country := range countries {
		g.Go(func() error {
			report.Countries[i] = s.forecastCountry(gctx, ds, country)
			// only cancellation aborts the run
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, toServiceError(err, map[string]interface{}{"run_id": report.RunID})
	}

	var metricsRows []storage.MetricsRow
	for i := range report.Countries {
		cf := &report.Countries[i]
		if cf.Error == "" {
			if err := s.persist(cf); err != nil {
				cf.Error = err.Error()
				cf.Code = CodeInternal
			}
		}
		if cf.Error != "" {
			report.Failed++
			logger.Warn("Country forecast failed", "country", cf.Country, "code", cf.Code, "error", cf.Error)
		} else {
			report.Succeeded++
			metricsRows = append(metricsRows, storage.MetricsRow{
				Country: cf.Country,
				R2:      cf.Metrics.R2,
				MAE:     cf.Metrics.MAE,
				RMSE:    cf.Metrics.RMSE,
			})
		}
		s.publish(ctx, batchEvent(report.RunID, *cf))
	}

	if len(metricsRows) > 0 {
		if err := s.store.AppendMetrics(metricsRows); err != nil {
			return nil, toServiceError(fmt.Errorf("failed to append metrics summary: %w", err), nil)
		}
	}

	report.Duration = time.Since(start)
	logger.Info("Batch forecast finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"latency_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// forecastCountry evaluates on a chronological hold-out and simulates from
// the last trainable rows with their mean weather as constant inputs
func (s *ForecastService) forecastCountry(ctx context.Context, ds *dataset.Dataset, country string) CountryForecast {
	ctx = logging.WithCountry(ctx, country)
	out := CountryForecast{Country: country}
	fail := func(err error) CountryForecast {
		svcErr := toServiceError(err, nil)
		out.Error = svcErr.Message
		out.Code = svcErr.Code
		return out
	}

	table, err := trainableTable(ds, country)
	if err != nil {
		return fail(err)
	}

	fitted, err := s.fitted(ctx, purposeBatch, country, ds.Version, func(ctx context.Context) (*forecast.Fitted, error) {
		return s.trainer.FitEvaluate(ctx, table)
	})
	if err != nil {
		return fail(err)
	}
	if fitted.Info.Metrics == nil {
		return fail(fmt.Errorf("%w: %d trainable rows leave no test split", forecast.ErrInsufficientHistory, len(table)))
	}

	seed := table.Tail(s.cfg.HistorySize)
	result, err := s.engine.Run(ctx, forecast.Request{
		Model:     fitted.Model,
		Seed:      forecast.EntriesFromTable(seed),
		Exogenous: seed.MeanExogenous(),
	})
	if err != nil {
		return fail(err)
	}
	cleanPoints(result.Points)

	metrics := cleanMetrics(fitted.Info.Metrics.Rounded())
	info := fitted.Info
	out.Metrics = &metrics
	out.Model = &info
	out.Forecast = result.Points
	return out
}

func (s *ForecastService) persist(cf *CountryForecast) error {
	rows := make([]storage.ForecastRow, len(cf.Forecast))
	for i, p := range cf.Forecast {
		rows[i] = storage.ForecastRow{Date: p.Date, PredictedAQI: p.AQI}
	}
	return s.store.SaveForecast(cf.Country, rows)
}

// fitted trains a model, or under train_once returns the cached one.
// Concurrent requests for the same key share a single training run. The
// shared run is detached from any one caller's cancellation; each caller
// stops waiting when its own context ends.
func (s *ForecastService) fitted(ctx context.Context, purpose, country, version string, train func(context.Context) (*forecast.Fitted, error)) (*forecast.Fitted, error) {
	if s.cfg.TrainingPolicy != config.TrainingPolicyTrainOnce {
		return train(ctx)
	}

	key := modelKey(purpose, country, version)
	if f, ok := s.models.get(key); ok {
		s.logger.WithContext(ctx).Debug("Reusing trained model", "country", country, "purpose", purpose)
		return f, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		f, err := train(shared)
		if err != nil {
			return nil, err
		}
		s.models.put(key, f)
		return f, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*forecast.Fitted), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CachedModels returns how many fitted models are held for reuse
func (s *ForecastService) CachedModels() int {
	return s.models.len()
}

// ForecastRows returns a persisted forecast table
func (s *ForecastService) ForecastRows(country string) ([]storage.ForecastRow, error) {
	if country == "" {
		return nil, NewServiceError(CodeInvalidRequest, "country query parameter is required")
	}
	rows, err := s.store.LoadForecast(country)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewServiceErrorWithDetails(CodeResultNotFound,
				fmt.Sprintf("no forecast stored for %s", country),
				map[string]interface{}{"country": country})
		}
		return nil, toServiceError(err, nil)
	}
	for i := range rows {
		rows[i].PredictedAQI = utils.CleanAQI(rows[i].PredictedAQI)
	}
	return rows, nil
}

// MetricsSummary returns every persisted metrics line
func (s *ForecastService) MetricsSummary() ([]storage.MetricsRow, error) {
	rows, err := s.store.LoadMetrics()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewServiceError(CodeResultNotFound, "no metrics summary stored")
		}
		return nil, toServiceError(err, nil)
	}
	return rows, nil
}

func (s *ForecastService) publish(ctx context.Context, ev queue.ForecastEvent) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.EventPublishTimeout)
	defer cancel()
	// failures are logged by the publisher and never fail the forecast
	_ = s.events.PublishForecast(pctx, ev)
}

func batchEvent(runID string, cf CountryForecast) queue.ForecastEvent {
	ev := queue.ForecastEvent{
		RunID:   runID,
		Kind:    queue.KindBatch,
		Country: cf.Country,
		Status:  queue.StatusCompleted,
		Metrics: cf.Metrics,
		Points:  len(cf.Forecast),
	}
	if cf.Error != "" {
		ev.Status = queue.StatusFailed
		ev.Error = cf.Error
	}
	if n := len(cf.Forecast); n > 0 {
		ev.StartDate = cf.Forecast[0].Date.Format(utils.DateLayout)
		ev.EndDate = cf.Forecast[n-1].Date.Format(utils.DateLayout)
	}
	return ev
}

func trainableTable(ds *dataset.Dataset, country string) (features.Table, error) {
	series, err := ds.Series(country)
	if err != nil {
		return nil, err
	}
	table := features.Trainable(features.Build(series))
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: %s has no row with %d days of history and complete weather",
			forecast.ErrInsufficientHistory, country, features.MaxLag)
	}
	return table, nil
}

func cleanPoints(points []forecast.Point) {
	for i := range points {
		points[i].AQI = utils.CleanAQI(points[i].AQI)
	}
}

func cleanMetrics(m analytics.RegressionMetrics) analytics.RegressionMetrics {
	return analytics.RegressionMetrics{
		R2:   utils.JSONSafe(m.R2),
		MAE:  utils.JSONSafe(m.MAE),
		RMSE: utils.JSONSafe(m.RMSE),
	}
}
