package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/features"
	"github.com/airaware/aqi-analytics/internal/logging"
)

// DefaultHorizon is the number of days simulated forward
const DefaultHorizon = 180

// Engine runs the autoregressive simulation loop
type Engine struct {
	horizon     int
	historySize int
	logger      *logging.Logger
}

// NewEngine creates an engine. Non-positive values fall back to the
// defaults of 180 steps and a 30-entry window.
func NewEngine(horizon, historySize int, logger *logging.Logger) *Engine {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if historySize <= 0 {
		historySize = features.MaxLag
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Engine{horizon: horizon, historySize: historySize, logger: logger}
}

// Horizon returns the number of steps per run
func (e *Engine) Horizon() int {
	return e.horizon
}

// Request describes one simulation
type Request struct {
	Model     Regressor
	Seed      []Entry            // most recent history, oldest first
	Exogenous features.Exogenous // held constant for every step
	Start     time.Time          // first forecast date; zero means the day after the seed
}

// Run produces one point per day for the configured horizon. Each step is
// built from the current window, predicted, and pushed back into it, so
// steps are strictly sequential. The context is checked between steps.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Model == nil {
		return nil, fmt.Errorf("%w: no model", ErrModelFit)
	}

	buffer, err := NewHistoryBuffer(req.Seed, e.historySize)
	if err != nil {
		return nil, err
	}

	next := req.Start
	if next.IsZero() {
		next = buffer.Last().Date.AddDate(0, 0, 1)
	}
	next = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)

	if buffer.Padded() > 0 {
		e.logger.WithContext(ctx).Warn("Seed history padded",
			"seed_rows", len(req.Seed),
			"padded", buffer.Padded(),
		)
	}

	points := make([]Point, 0, e.horizon)
	for step := 0; step < e.horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lags, rolls := buffer.lagFeatures()
		x := features.Vector(next, req.Exogenous, lags, rolls)
		aqi := req.Model.Predict(x)

		points = append(points, Point{Date: next, AQI: aqi})
		buffer.Push(Entry{Date: next, AQI: aqi})
		next = next.AddDate(0, 0, 1)
	}

	return &Result{
		Points:    points,
		StartDate: points[0].Date,
		EndDate:   points[len(points)-1].Date,
		Padded:    buffer.Padded(),
	}, nil
}
