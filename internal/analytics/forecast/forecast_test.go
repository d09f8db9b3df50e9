package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/features"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// generateSeries creates a weekly-seasonal AQI series with weather inputs
func generateSeries(n int) dataset.Series {
	series := make(dataset.Series, n)
	for i := 0; i < n; i++ {
		series[i] = dataset.Observation{
			Country:          "India",
			Date:             testStart.AddDate(0, 0, i),
			AQI:              60 + 15*math.Sin(2*math.Pi*float64(i)/7) + float64(i%5),
			Temperature:      20 + float64(i%10),
			RelativeHumidity: 55 + float64(i%7),
			WindSpeed:        3 + float64(i%3),
		}
	}
	return series
}

// generateSeed creates n consecutive entries ending the day before 2024-01-01
func generateSeed(values ...float64) []Entry {
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	seed := make([]Entry, len(values))
	for i, v := range values {
		seed[i] = Entry{Date: end.AddDate(0, 0, i-len(values)+1), AQI: v}
	}
	return seed
}

func constantSeed(n int, v float64) []Entry {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return generateSeed(values...)
}

func testForecastConfig() config.ForecastConfig {
	cfg := config.DefaultConfig().Forecast
	cfg.Model.NumTrees = 40
	cfg.Model.MaxDepth = 4
	cfg.Model.LearningRate = 0.2
	return cfg
}

// regressorFunc adapts a function to the Regressor interface
type regressorFunc func(x []float64) float64

func (f regressorFunc) Predict(x []float64) float64 { return f(x) }

// lastValue predicts aqi_lag_1
var lastValue = regressorFunc(func(x []float64) float64 { return x[6] })

// rollingThree predicts aqi_roll_3
var rollingThree = regressorFunc(func(x []float64) float64 { return x[11] })

func TestHistoryBuffer_PadsWithEarliestEntry(t *testing.T) {
	values := []float64{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	seed := generateSeed(values...)

	buffer, err := NewHistoryBuffer(seed, 30)
	require.NoError(t, err)

	require.Equal(t, 30, buffer.Len())
	assert.Equal(t, 20, buffer.Padded())

	entries := buffer.Entries()
	for i := 0; i < 20; i++ {
		if entries[i].AQI != 11 {
			t.Errorf("Entry %d: expected padded AQI 11, got %v", i, entries[i].AQI)
		}
		assert.Equal(t, seed[0].Date, entries[i].Date)
	}
	for i := 20; i < 30; i++ {
		assert.Equal(t, values[i-20], entries[i].AQI)
	}
}

func TestHistoryBuffer_KeepsMostRecent(t *testing.T) {
	values := make([]float64, 45)
	for i := range values {
		values[i] = float64(i)
	}

	buffer, err := NewHistoryBuffer(generateSeed(values...), 30)
	require.NoError(t, err)

	assert.Equal(t, 30, buffer.Len())
	assert.Equal(t, 0, buffer.Padded())
	assert.Equal(t, 44.0, buffer.Lag(1))
	assert.Equal(t, 15.0, buffer.Lag(30))
	assert.Equal(t, 43.0, buffer.RollingMean(3))
}

func TestHistoryBuffer_EmptySeed(t *testing.T) {
	_, err := NewHistoryBuffer(nil, 30)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	_, err = NewHistoryBuffer(constantSeed(5, 1), 10)
	assert.Error(t, err, "window smaller than the largest lag")
}

func TestHistoryBuffer_LengthInvariant(t *testing.T) {
	buffer, err := NewHistoryBuffer(constantSeed(3, 50), 30)
	require.NoError(t, err)

	date := buffer.Last().Date
	for step := 0; step < 180; step++ {
		date = date.AddDate(0, 0, 1)
		buffer.Push(Entry{Date: date, AQI: float64(step)})
		if buffer.Len() != 30 {
			t.Fatalf("Step %d: buffer length %d, expected 30", step, buffer.Len())
		}
		assert.Equal(t, float64(step), buffer.Lag(1))
	}
	assert.Equal(t, date, buffer.Last().Date)
}

func TestEngine_ContiguousDatesAfterSeed(t *testing.T) {
	engine := NewEngine(180, 30, logging.NewNop())
	seed := constantSeed(30, 42)

	result, err := engine.Run(context.Background(), Request{Model: lastValue, Seed: seed})
	require.NoError(t, err)
	require.Len(t, result.Points, 180)

	expected := seed[len(seed)-1].Date.AddDate(0, 0, 1)
	for i, p := range result.Points {
		if !p.Date.Equal(expected) {
			t.Fatalf("Point %d: expected date %s, got %s", i, expected.Format("2006-01-02"), p.Date.Format("2006-01-02"))
		}
		assert.Equal(t, 42.0, p.AQI)
		expected = expected.AddDate(0, 0, 1)
	}
	assert.Equal(t, result.Points[0].Date, result.StartDate)
	assert.Equal(t, result.Points[179].Date, result.EndDate)
}

func TestEngine_FeedsPredictionsBack(t *testing.T) {
	engine := NewEngine(3, 30, logging.NewNop())
	seed := append(constantSeed(27, 50), generateSeed(50, 60, 70)...)

	result, err := engine.Run(context.Background(), Request{Model: rollingThree, Seed: seed[len(seed)-30:]})
	require.NoError(t, err)

	got := result.Values()
	assert.InDelta(t, 60.0, got[0], 1e-12)
	assert.InDelta(t, (60.0+70+60)/3, got[1], 1e-12)
	assert.InDelta(t, (70+60+got[1])/3, got[2], 1e-12)
}

func TestEngine_UsesExogenousAndCalendar(t *testing.T) {
	var seen [][]float64
	recorder := regressorFunc(func(x []float64) float64 {
		seen = append(seen, append([]float64(nil), x...))
		return 1
	})

	engine := NewEngine(2, 30, logging.NewNop())
	start := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	exo := features.Exogenous{Temperature: 25, RelativeHumidity: 60, WindSpeed: 5}

	_, err := engine.Run(context.Background(), Request{Model: recorder, Seed: constantSeed(30, 10), Exogenous: exo, Start: start})
	require.NoError(t, err)
	require.Len(t, seen, 2)

	assert.Equal(t, []float64{25, 60, 5, 12, 31, 1}, seen[0][:6])
	assert.Equal(t, []float64{25, 60, 5, 1, 1, 2}, seen[1][:6])
	// lag_1 of the second step is the first prediction
	assert.Equal(t, 1.0, seen[1][6])
	assert.Equal(t, 10.0, seen[1][7])
}

func TestEngine_PaddedSeed(t *testing.T) {
	engine := NewEngine(5, 30, logging.NewNop())

	result, err := engine.Run(context.Background(), Request{Model: lastValue, Seed: constantSeed(10, 33)})
	require.NoError(t, err)
	assert.Equal(t, 20, result.Padded)
	assert.Len(t, result.Points, 5)
}

func TestEngine_Errors(t *testing.T) {
	engine := NewEngine(10, 30, logging.NewNop())

	_, err := engine.Run(context.Background(), Request{Model: lastValue})
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	_, err = engine.Run(context.Background(), Request{Seed: constantSeed(30, 1)})
	assert.True(t, errors.Is(err, ErrModelFit))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Run(ctx, Request{Model: lastValue, Seed: constantSeed(30, 1)})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngine_Defaults(t *testing.T) {
	engine := NewEngine(0, 0, nil)
	assert.Equal(t, DefaultHorizon, engine.Horizon())
	assert.Equal(t, features.MaxLag, engine.historySize)
}

func TestChronologicalSplit(t *testing.T) {
	table := features.Trainable(features.Build(generateSeries(81)))
	require.Len(t, table, 51)

	train, test := ChronologicalSplit(table, 0.2)
	assert.Len(t, test, 11) // ceil(10.2)
	assert.Len(t, train, 40)
	assert.True(t, train[len(train)-1].Date.Before(test[0].Date))

	train, test = ChronologicalSplit(table, 0)
	assert.Len(t, train, 51)
	assert.Empty(t, test)
}

func TestTrainer_FitEvaluate(t *testing.T) {
	table := features.Trainable(features.Build(generateSeries(200)))
	trainer := NewTrainer(testForecastConfig(), logging.NewNop())

	fitted, err := trainer.FitEvaluate(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, Algorithm, fitted.Info.Algorithm)
	assert.Equal(t, 34, fitted.Info.TestRows)
	assert.Equal(t, 136, fitted.Info.TrainRows)
	require.NotNil(t, fitted.Info.Metrics)
	assert.Greater(t, fitted.Info.Metrics.R2, 0.0)
	assert.Greater(t, fitted.Info.Metrics.RMSE, 0.0)
}

func TestTrainer_InsufficientHistory(t *testing.T) {
	trainer := NewTrainer(testForecastConfig(), logging.NewNop())

	_, err := trainer.Fit(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	// a country with fewer rows than the largest lag has no trainable rows
	short := features.Trainable(features.Build(generateSeries(25)))
	_, err = trainer.FitEvaluate(context.Background(), short)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
}

func TestForecast_Idempotent(t *testing.T) {
	table := features.Trainable(features.Build(generateSeries(150)))
	trainer := NewTrainer(testForecastConfig(), logging.NewNop())

	fitted, err := trainer.Fit(context.Background(), table)
	require.NoError(t, err)

	engine := NewEngine(180, 30, logging.NewNop())
	req := Request{
		Model:     fitted.Model,
		Seed:      SeedHistory(table, 30),
		Exogenous: table.Tail(30).MeanExogenous(),
	}

	first, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), req)
	require.NoError(t, err)

	// bit-identical
	assert.Equal(t, first.Values(), second.Values())

	refit, err := trainer.Fit(context.Background(), table)
	require.NoError(t, err)
	req.Model = refit.Model
	third, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Values(), third.Values())
}

func TestForecast_RealTimeScenario(t *testing.T) {
	table := features.Trainable(features.Build(generateSeries(150)))
	fitted, err := NewTrainer(testForecastConfig(), logging.NewNop()).Fit(context.Background(), table)
	require.NoError(t, err)

	seed := append(constantSeed(28, 50), generateSeed(60, 70)...)
	// rebase dates so the seed stays contiguous
	for i := range seed {
		seed[i].Date = time.Date(2023, 12, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	result, err := NewEngine(180, 30, logging.NewNop()).Run(context.Background(), Request{
		Model:     fitted.Model,
		Seed:      seed,
		Exogenous: features.Exogenous{Temperature: 25, RelativeHumidity: 60, WindSpeed: 5},
		Start:     start,
	})
	require.NoError(t, err)

	require.Len(t, result.Points, 180)
	assert.Equal(t, "2024-01-01", result.Points[0].Date.Format("2006-01-02"))
	assert.Equal(t, 0, result.Padded)
	for i, p := range result.Points {
		if math.IsNaN(p.AQI) || math.IsInf(p.AQI, 0) || p.AQI < 0 {
			t.Errorf("Point %d: unexpected AQI %v", i, p.AQI)
		}
	}
}
