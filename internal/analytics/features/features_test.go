package features

import (
	"math"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday

func makeSeries(n int) dataset.Series {
	series := make(dataset.Series, n)
	for i := 0; i < n; i++ {
		series[i] = dataset.Observation{
			Country:          "India",
			Date:             day0.AddDate(0, 0, i),
			AQI:              float64(i),
			Temperature:      20,
			RelativeHumidity: 50,
			WindSpeed:        3,
		}
	}
	return series
}

func TestSchema(t *testing.T) {
	require.Equal(t, 18, NumFeatures)
	assert.Equal(t, "Temperature", Names[0])
	assert.Equal(t, "aqi_lag_30", Names[10])
	assert.Equal(t, "dayofweek_cos", Names[17])
}

func TestBuild_LagsAndRolling(t *testing.T) {
	table := Build(makeSeries(40))
	require.Len(t, table, 40)

	row := table[35]
	assert.Equal(t, [5]float64{34, 32, 28, 21, 5}, row.Lags)
	// rolling means include the current row
	assert.Equal(t, (33.0+34+35)/3, row.Rolls[0])
	assert.Equal(t, 32.0, row.Rolls[1])
	assert.Equal(t, 28.5, row.Rolls[2])

	assert.True(t, math.IsNaN(table[29].Lags[4]))
	assert.True(t, math.IsNaN(table[1].Rolls[0]))
	assert.False(t, math.IsNaN(table[2].Rolls[0]))
}

func TestTrainable_RequiresFullHistory(t *testing.T) {
	table := Trainable(Build(makeSeries(40)))

	require.Len(t, table, 10)
	assert.Equal(t, day0.AddDate(0, 0, MaxLag), table[0].Date)
	assert.Equal(t, []float64{30, 31, 32, 33, 34, 35, 36, 37, 38, 39}, table.Target())
}

func TestTrainable_DropsMissingWeather(t *testing.T) {
	series := makeSeries(40)
	series[35].WindSpeed = math.NaN()
	// a missing weather value does not break the lags of later rows
	table := Trainable(Build(series))

	require.Len(t, table, 9)
	for _, row := range table {
		assert.NotEqual(t, day0.AddDate(0, 0, 35), row.Date)
	}
	assert.Equal(t, 35.0, table[5].Lags[0])
}

func TestMatrix_VectorLayout(t *testing.T) {
	table := Trainable(Build(makeSeries(31)))
	require.Len(t, table, 1)

	m := table.Matrix()
	require.Len(t, m, 1)
	v := m[0]
	require.Len(t, v, NumFeatures)

	// 2024-01-31 is a Wednesday
	assert.Equal(t, []float64{20, 50, 3, 1, 31, 2}, v[:6])
	assert.Equal(t, []float64{29, 27, 23, 16, 0}, v[6:11])
	assert.InDelta(t, math.Sin(2*math.Pi/12), v[14], 1e-12)
	assert.InDelta(t, math.Cos(2*math.Pi*2/7), v[17], 1e-12)
}

func TestCalendar_MondayIsZero(t *testing.T) {
	_, _, dow := Calendar(day0)
	assert.Equal(t, 0, dow)

	_, _, dow = Calendar(day0.AddDate(0, 0, 6))
	assert.Equal(t, 6, dow)
}

func TestCyclical_YearBoundaryContinuity(t *testing.T) {
	dec := Cyclical(12, 0)
	jan := Cyclical(1, 0)
	jun := Cyclical(6, 0)

	distance := func(a, b [4]float64) float64 {
		return math.Hypot(a[0]-b[0], a[1]-b[1])
	}

	// December and January are neighbours on the circle
	assert.InDelta(t, distance(jan, Cyclical(2, 0)), distance(dec, jan), 1e-12)
	assert.Less(t, distance(dec, jan), distance(dec, jun))
	assert.InDelta(t, 0.0, dec[0], 1e-12)
	assert.InDelta(t, 1.0, dec[1], 1e-12)
}

func TestMeanExogenousAndTail(t *testing.T) {
	table := Build(makeSeries(5))
	table[4].Exo.Temperature = 30

	tail := table.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, 25.0, tail.MeanExogenous().Temperature)
	assert.Len(t, table.Tail(10), 5)
	assert.Equal(t, Exogenous{}, Table{}.MeanExogenous())
}
