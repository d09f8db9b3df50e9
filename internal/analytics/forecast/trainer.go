package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics"
	"github.com/airaware/aqi-analytics/internal/analytics/features"
	"github.com/airaware/aqi-analytics/internal/analytics/gbdt"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/logging"
)

// Algorithm names the regressor family fitted by the trainer
const Algorithm = "gradient_boosting"

// Trainer fits one regressor per country over the fixed feature schema
type Trainer struct {
	params       gbdt.Params
	testFraction float64
	logger       *logging.Logger
}

// NewTrainer creates a trainer from the forecast configuration
func NewTrainer(cfg config.ForecastConfig, logger *logging.Logger) *Trainer {
	if logger == nil {
		logger = logging.Global()
	}
	return &Trainer{
		params:       gbdt.ParamsFromConfig(cfg.Model),
		testFraction: cfg.TestFraction,
		logger:       logger,
	}
}

// Fitted is a trained model together with its metadata
type Fitted struct {
	Model *gbdt.Model
	Info  ModelInfo
}

// Fit trains on every row of a trainable table
func (t *Trainer) Fit(ctx context.Context, table features.Table) (*Fitted, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: no trainable rows", ErrInsufficientHistory)
	}

	model, err := t.train(ctx, table)
	if err != nil {
		return nil, err
	}

	return &Fitted{
		Model: model,
		Info:  t.info(len(table), 0, nil),
	}, nil
}

// FitEvaluate holds out the most recent share of rows, trains on the rest
// and scores the hold-out. The returned model is the one trained on the
// earlier rows.
func (t *Trainer) FitEvaluate(ctx context.Context, table features.Table) (*Fitted, error) {
	train, test := ChronologicalSplit(table, t.testFraction)
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: %d trainable rows leave no training split", ErrInsufficientHistory, len(table))
	}

	model, err := t.train(ctx, train)
	if err != nil {
		return nil, err
	}

	var metrics *analytics.RegressionMetrics
	if len(test) > 0 {
		m := analytics.Evaluate(test.Target(), model.PredictBatch(test.Matrix()))
		metrics = &m
	}

	return &Fitted{
		Model: model,
		Info:  t.info(len(train), len(test), metrics),
	}, nil
}

func (t *Trainer) train(ctx context.Context, table features.Table) (*gbdt.Model, error) {
	start := time.Now()
	model, err := gbdt.Train(ctx, table.Matrix(), table.Target(), t.params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrModelFit, err)
	}

	t.logger.WithContext(ctx).Debug("Regressor trained",
		"rows", len(table),
		"trees", model.NumTrees(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return model, nil
}

func (t *Trainer) info(trainRows, testRows int, metrics *analytics.RegressionMetrics) ModelInfo {
	return ModelInfo{
		Algorithm: Algorithm,
		Parameters: map[string]interface{}{
			"n_estimators":     t.params.NumTrees,
			"max_depth":        t.params.MaxDepth,
			"learning_rate":    t.params.LearningRate,
			"subsample":        t.params.Subsample,
			"colsample_bytree": t.params.ColsampleByTree,
			"seed":             t.params.Seed,
		},
		Metrics:   metrics,
		TrainRows: trainRows,
		TestRows:  testRows,
	}
}

// ChronologicalSplit keeps order and assigns the most recent
// ceil(fraction*n) rows to the test split
func ChronologicalSplit(table features.Table, fraction float64) (train, test features.Table) {
	n := len(table)
	testRows := int(math.Ceil(fraction * float64(n)))
	if testRows > n {
		testRows = n
	}
	if testRows < 0 {
		testRows = 0
	}
	return table[:n-testRows], table[n-testRows:]
}

// SeedHistory returns the last size trainable rows as simulation seed
func SeedHistory(table features.Table, size int) []Entry {
	return EntriesFromTable(table.Tail(size))
}
