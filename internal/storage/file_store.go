package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airaware/aqi-analytics/internal/logging"
)

// File names inside the results directory
const (
	forecastSuffix        = "_forecast.csv"
	MetricsSummaryFile    = "metrics_summary.csv"
	ClassificationFile    = "Classification_Result.csv"
	forecastDateLayout    = "2006-01-02"
	defaultFilePermission = 0o644
)

var (
	forecastHeader       = []string{"Date", "Predicted_AQI"}
	metricsHeader        = []string{"Country", "R2", "MAE", "RMSE"}
	classificationHeader = []string{"Model", "Accuracy", "Precision", "Recall", "F1-Score"}
)

// FileStore keeps results as CSV files in one directory
type FileStore struct {
	dir    string
	logger *logging.Logger

	mu sync.Mutex // serializes writers of the shared summary files
}

// NewFileStore creates the results directory if needed
func NewFileStore(dir string, logger *logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the results directory
func (s *FileStore) Dir() string {
	return s.dir
}

// ForecastPath returns the file holding a country's forecast
func (s *FileStore) ForecastPath(country string) string {
	return filepath.Join(s.dir, sanitizeFileName(country)+forecastSuffix)
}

// SaveForecast writes the table to a temporary file and renames it into
// place so readers never see a partial table
func (s *FileStore) SaveForecast(country string, rows []ForecastRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, forecastHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.Date.Format(forecastDateLayout),
			formatFloat(r.PredictedAQI),
		})
	}

	path := s.ForecastPath(country)
	if err := writeAtomic(path, records); err != nil {
		return fmt.Errorf("failed to save forecast for %s: %w", country, err)
	}

	s.logger.Debug("Forecast saved", "country", country, "rows", len(rows), "path", path)
	return nil
}

// LoadForecast reads a persisted forecast table
func (s *FileStore) LoadForecast(country string) ([]ForecastRow, error) {
	records, err := readAll(s.ForecastPath(country))
	if err != nil {
		return nil, err
	}

	rows := make([]ForecastRow, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("forecast for %s line %d: expected 2 fields, got %d", country, i+2, len(rec))
		}
		date, err := time.Parse(forecastDateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("forecast for %s line %d: %w", country, i+2, err)
		}
		aqi, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("forecast for %s line %d: %w", country, i+2, err)
		}
		rows = append(rows, ForecastRow{Date: date, PredictedAQI: aqi})
	}
	return rows, nil
}

// AppendMetrics appends metric lines; the header is written only when the
// file is created
func (s *FileStore) AppendMetrics(rows []MetricsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, MetricsSummaryFile)
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFilePermission)
	if err != nil {
		return fmt.Errorf("failed to open metrics summary: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if isNew {
		if err := w.Write(metricsHeader); err != nil {
			return fmt.Errorf("failed to write metrics header: %w", err)
		}
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Country, formatFloat(r.R2), formatFloat(r.MAE), formatFloat(r.RMSE)}); err != nil {
			return fmt.Errorf("failed to write metrics for %s: %w", r.Country, err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoadMetrics reads the metrics summary
func (s *FileStore) LoadMetrics() ([]MetricsRow, error) {
	records, err := readAll(filepath.Join(s.dir, MetricsSummaryFile))
	if err != nil {
		return nil, err
	}

	rows := make([]MetricsRow, 0, len(records))
	for i, rec := range records {
		if len(rec) < 4 {
			return nil, fmt.Errorf("metrics summary line %d: expected 4 fields, got %d", i+2, len(rec))
		}
		values := make([]float64, 3)
		for j := range values {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("metrics summary line %d: %w", i+2, err)
			}
			values[j] = v
		}
		rows = append(rows, MetricsRow{Country: rec[0], R2: values[0], MAE: values[1], RMSE: values[2]})
	}
	return rows, nil
}

// SaveClassification replaces the classification summary
func (s *FileStore) SaveClassification(rows []ClassificationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([][]string, 0, len(rows)+1)
	records = append(records, classificationHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.Model,
			formatFloat(r.Accuracy),
			formatFloat(r.Precision),
			formatFloat(r.Recall),
			formatFloat(r.F1),
		})
	}
	return writeAtomic(filepath.Join(s.dir, ClassificationFile), records)
}

func writeAtomic(path string, records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.csv")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	buffered := bufio.NewWriterSize(tmp, 64*1024)
	w := csv.NewWriter(buffered)
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := buffered.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), defaultFilePermission); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readAll returns the data records of a CSV file without its header
func readAll(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return r.ReadAll()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sanitizeFileName keeps country names readable while preventing path
// traversal out of the results directory
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "\x00", "")
	cleaned := replacer.Replace(strings.TrimSpace(name))
	if cleaned == "" || strings.Trim(cleaned, ".") == "" {
		return "_"
	}
	return cleaned
}
