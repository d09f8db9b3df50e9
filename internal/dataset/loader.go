package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Coercion failure reasons recorded in the validation report
const (
	ReasonEmpty      = "empty"
	ReasonNotNumeric = "not_numeric"
	ReasonNonFinite  = "non_finite"
	ReasonNegative   = "negative"
	ReasonBadDate    = "unparseable_date"
	ReasonNoCountry  = "empty_country"
)

// maxReportSamples bounds the number of failure samples kept in a report
const maxReportSamples = 50

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var numericColumns = []string{ColumnAQI, ColumnTemperature, ColumnRelativeHumidity, ColumnWindSpeed}

// Loader produces dataset snapshots
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// FileLoader reads a CSV file from disk
type FileLoader struct {
	Path string
}

// NewFileLoader creates a loader for the given CSV path
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// Load reads and cleans the CSV file
func (l *FileLoader) Load(ctx context.Context) (*Dataset, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", l.Path, err)
	}
	defer func() { _ = f.Close() }()

	return Read(ctx, f, l.Path)
}

// Read parses CSV content. Malformed cells never abort the load: numeric
// cells become missing, rows with an unparseable date or empty country are
// dropped, and each case is recorded in the report.
func Read(ctx context.Context, r io.Reader, source string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset %s is empty", source)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", source, err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", source, err)
	}

	report := newReport()
	var observations []Observation

	line := 1
	for {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("dataset %s line %d: %w", source, line, err)
		}
		report.RowsRead++

		obs, ok := parseRecord(record, index, line, &report)
		if !ok {
			report.RowsDropped++
			continue
		}
		observations = append(observations, obs)
	}

	fillMissingAQI(observations, &report)

	return newDataset(observations, report, uuid.New().String(), source, time.Now()), nil
}

// columnIndex maps required column names to their positions
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	required := append([]string{ColumnCountry, ColumnDate}, numericColumns...)
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return index, nil
}

func cell(record []string, index map[string]int, column string) string {
	i := index[column]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRecord(record []string, index map[string]int, line int, report *Report) (Observation, bool) {
	country := cell(record, index, ColumnCountry)
	if country == "" {
		report.addFailure(line, ColumnCountry, "", ReasonNoCountry)
		return Observation{}, false
	}

	rawDate := cell(record, index, ColumnDate)
	date, ok := parseDate(rawDate)
	if !ok {
		report.addFailure(line, ColumnDate, rawDate, ReasonBadDate)
		return Observation{}, false
	}

	values := make(map[string]float64, len(numericColumns))
	for _, col := range numericColumns {
		raw := cell(record, index, col)
		v, reason := parseNumeric(raw)
		if reason == "" && col == ColumnAQI && v < 0 {
			// kept as-is, only reported
			reason = ReasonNegative
		}
		if reason != "" {
			report.addFailure(line, col, raw, reason)
		}
		values[col] = v
	}

	return Observation{
		Country:          country,
		Date:             date,
		AQI:              values[ColumnAQI],
		Temperature:      values[ColumnTemperature],
		RelativeHumidity: values[ColumnRelativeHumidity],
		WindSpeed:        values[ColumnWindSpeed],
	}, true
}

// parseDate accepts the date layouts seen in exported weather datasets and
// truncates to the calendar day in UTC
func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseNumeric returns NaN and a reason when the cell cannot be used
func parseNumeric(raw string) (float64, string) {
	switch strings.ToLower(raw) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return math.NaN(), ReasonEmpty
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN(), ReasonNotNumeric
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return math.NaN(), ReasonNonFinite
	}
	return v, ""
}

// fillMissingAQI replaces missing AQI with the dataset-wide mean
func fillMissingAQI(observations []Observation, report *Report) {
	valid := make([]float64, 0, len(observations))
	for _, o := range observations {
		if !math.IsNaN(o.AQI) {
			valid = append(valid, o.AQI)
		}
	}
	if len(valid) == 0 {
		return
	}

	mean := stat.Mean(valid, nil)
	report.AQIFillValue = mean
	for i := range observations {
		if math.IsNaN(observations[i].AQI) {
			observations[i].AQI = mean
			report.AQIFilled++
		}
	}
}
