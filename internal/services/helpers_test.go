package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/storage"
	"github.com/stretchr/testify/require"
)

// csvLoader serves a fixed CSV document
type csvLoader struct {
	data string
}

func (l csvLoader) Load(ctx context.Context) (*dataset.Dataset, error) {
	return dataset.Read(ctx, strings.NewReader(l.data), "memory.csv")
}

// generateCSV builds smooth synthetic series, days rows per country
func generateCSV(days map[string]int) string {
	var b strings.Builder
	b.WriteString("Country,Date,AQI,Temperature,RelativeHumidity,WindSpeed\n")
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	offset := 0.0
	for _, country := range []string{"Chile", "India", "Tiny"} {
		n, ok := days[country]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			phase := 2 * math.Pi * float64(i) / 30
			aqi := 60 + offset + 25*math.Sin(phase)
			temp := 20 + 5*math.Cos(phase)
			rh := 55 + 10*math.Sin(phase/2)
			wind := 3 + math.Mod(float64(i), 4)
			fmt.Fprintf(&b, "%s,%s,%.2f,%.2f,%.2f,%.2f\n",
				country, start.AddDate(0, 0, i).Format("2006-01-02"), aqi, temp, rh, wind)
		}
		offset += 40
	}
	return b.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dataset.CachePolicy = config.CachePolicyCached
	cfg.Forecast.Model.NumTrees = 20
	cfg.Forecast.Model.MaxDepth = 3
	cfg.Forecast.Workers = 2
	cfg.Classification.ForestTrees = 10
	cfg.Classification.ForestMaxDepth = 5
	cfg.Storage.ResultsDir = t.TempDir()
	return cfg
}

type fixture struct {
	cfg   *config.Config
	cache *dataset.Cache
	store *storage.FileStore
}

func newFixture(t *testing.T, days map[string]int) *fixture {
	t.Helper()
	cfg := testConfig(t)
	logger := logging.NewNop()

	store, err := storage.NewFileStore(cfg.Storage.ResultsDir, logger)
	require.NoError(t, err)

	return &fixture{
		cfg:   cfg,
		cache: dataset.NewCache(csvLoader{data: generateCSV(days)}, cfg.Dataset, logger),
		store: store,
	}
}

func requireCode(t *testing.T, err error, code string) *ServiceError {
	t.Helper()
	require.Error(t, err)
	svcErr, ok := err.(*ServiceError)
	require.Truef(t, ok, "expected *ServiceError, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code, svcErr.Message)
	return svcErr
}
