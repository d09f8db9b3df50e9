package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Country,Status,AQI,Temperature,RelativeHumidity,WindSpeed
2022-01-03,India,Good,120,25,60,5
2022-01-01,India,Good,100,24,61,4
2022-01-02,India,Good,NA,24.5,62,4.5
2022-01-01,Brazil,Good,40,30,70,3
not-a-date,Brazil,Good,45,30,70,3
2022-01-02,,Good,45,30,70,3
2022-01-02,Brazil,Good,-5,x,70,3
`

func readSample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Read(context.Background(), strings.NewReader(sampleCSV), "sample")
	require.NoError(t, err)
	return ds
}

func TestRead_CoercesAndReports(t *testing.T) {
	ds := readSample(t)

	assert.Equal(t, 7, ds.Report.RowsRead)
	assert.Equal(t, 2, ds.Report.RowsDropped)
	assert.Equal(t, 5, ds.Len())

	assert.Equal(t, 1, ds.Report.Failures[ColumnDate][ReasonBadDate])
	assert.Equal(t, 1, ds.Report.Failures[ColumnCountry][ReasonNoCountry])
	assert.Equal(t, 1, ds.Report.Failures[ColumnAQI][ReasonEmpty])
	assert.Equal(t, 1, ds.Report.Failures[ColumnAQI][ReasonNegative])
	assert.Equal(t, 1, ds.Report.FailureCount(ColumnTemperature))
	assert.False(t, ds.Report.Clean())
	assert.NotEmpty(t, ds.Version)
}

func TestRead_FillsMissingAQIWithMean(t *testing.T) {
	ds := readSample(t)

	// numeric AQI values: 120, 100, 40, -5
	expected := (120.0 + 100.0 + 40.0 - 5.0) / 4
	assert.Equal(t, 1, ds.Report.AQIFilled)
	assert.InDelta(t, expected, ds.Report.AQIFillValue, 1e-9)

	india, err := ds.Series("India")
	require.NoError(t, err)
	assert.InDelta(t, expected, india[1].AQI, 1e-9)
}

func TestRead_NegativeAQIKeptAndReported(t *testing.T) {
	ds := readSample(t)

	brazil, err := ds.Series("Brazil")
	require.NoError(t, err)
	require.Len(t, brazil, 2)
	assert.Equal(t, -5.0, brazil[1].AQI)
	assert.Equal(t, 1, ds.Report.Failures[ColumnAQI][ReasonNegative])
}

func TestRead_HeaderWithByteOrderMark(t *testing.T) {
	data := "\ufeffCountry,Date,AQI,Temperature,RelativeHumidity,WindSpeed\n" +
		"India,2022-01-01,100,24,61,4\n" +
		"India,2022-01-02,110,25,60,5\n"

	ds, err := Read(context.Background(), strings.NewReader(data), "bom")
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Report.RowsDropped)

	india, err := ds.Series("India")
	require.NoError(t, err)
	require.Len(t, india, 2)
	assert.Equal(t, "India", india[0].Country)
	assert.Equal(t, 100.0, india[0].AQI)
}

func TestRead_MissingWeatherStaysMissing(t *testing.T) {
	ds := readSample(t)

	brazil, err := ds.Series("Brazil")
	require.NoError(t, err)
	require.Len(t, brazil, 2)
	assert.True(t, brazil[0].HasWeather())
	assert.True(t, math.IsNaN(brazil[1].Temperature))
	assert.False(t, brazil[1].HasWeather())
}

func TestSeries_SortedByDate(t *testing.T) {
	ds := readSample(t)

	india, err := ds.Series("India")
	require.NoError(t, err)
	require.Len(t, india, 3)
	for i := 1; i < len(india); i++ {
		assert.True(t, india[i-1].Date.Before(india[i].Date))
	}
	assert.Equal(t, []float64{100, india[1].AQI, 120}, india.AQI())
}

func TestSeries_UnknownCountry(t *testing.T) {
	ds := readSample(t)

	_, err := ds.Series("Atlantis")
	assert.True(t, errors.Is(err, ErrUnknownCountry))
	assert.Equal(t, []string{"Brazil", "India"}, ds.Countries())
}

func TestRead_MissingColumns(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader("Date,Country,AQI\n2022-01-01,India,10\n"), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Temperature")
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader(""), "empty")
	assert.Error(t, err)
}

func TestParseDate_Layouts(t *testing.T) {
	want := time.Date(2023, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2023-03-07", "2023/03/07", "03/07/2023", "2023-03-07 13:45:00", "2023-03-07T13:45:00Z"} {
		got, ok := parseDate(raw)
		if !ok {
			t.Errorf("parseDate(%q) failed", raw)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, want %v", raw, got, want)
		}
	}
}

type countingLoader struct {
	calls atomic.Int32
}

func (l *countingLoader) Load(ctx context.Context) (*Dataset, error) {
	l.calls.Add(1)
	return Read(ctx, strings.NewReader(sampleCSV), "counting")
}

func TestCache_ReloadPolicy(t *testing.T) {
	loader := &countingLoader{}
	cache := NewCache(loader, config.DatasetConfig{CachePolicy: config.CachePolicyReload}, logging.NewNop())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestCache_CachedPolicy(t *testing.T) {
	loader := &countingLoader{}
	cache := NewCache(loader, config.DatasetConfig{CachePolicy: config.CachePolicyCached}, logging.NewNop())

	invalidated := 0
	cache.OnInvalidate(func() { invalidated++ })

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load())

	cache.Invalidate()
	third, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, third.Version)
	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Equal(t, 1, invalidated)
}

func TestCache_TTLExpiry(t *testing.T) {
	loader := &countingLoader{}
	cache := NewCache(loader, config.DatasetConfig{
		CachePolicy: config.CachePolicyCached,
		CacheTTL:    time.Minute,
	}, logging.NewNop())

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Final.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	ds, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)

	_, err = NewFileLoader(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	assert.Error(t, err)
}
