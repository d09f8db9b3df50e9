package classify

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/airaware/aqi-analytics/internal/analytics"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
)

// ErrNoSamples is returned when nothing is left to train or test on
var ErrNoSamples = errors.New("no usable samples")

// FeatureNames are the weather columns used as classifier inputs
var FeatureNames = []string{dataset.ColumnTemperature, dataset.ColumnRelativeHumidity}

// Samples is the labelled feature matrix built from a dataset
type Samples struct {
	Rows    [][]float64
	Labels  []int // indices into Categories
	Dropped int   // observations with a missing feature
}

// BuildSamples labels every observation by its AQI band
func BuildSamples(observations []dataset.Observation) Samples {
	var s Samples
	for _, o := range observations {
		if math.IsNaN(o.Temperature) || math.IsNaN(o.RelativeHumidity) || math.IsNaN(o.AQI) {
			s.Dropped++
			continue
		}
		s.Rows = append(s.Rows, []float64{o.Temperature, o.RelativeHumidity})
		s.Labels = append(s.Labels, categoryIndex(Categorize(o.AQI)))
	}
	return s
}

func categoryIndex(c Category) int {
	for i, v := range Categories {
		if v == c {
			return i
		}
	}
	return len(Categories) - 1
}

// Models returns the classifier families compared by Run, in report order
func Models(cfg config.ClassificationConfig) []Classifier {
	return []Classifier{
		NewLogistic(cfg.LogisticMaxIter, cfg.LogisticStepSize),
		NewKNN(cfg.KNNNeighbors),
		NewForest(cfg.ForestTrees, cfg.ForestMaxDepth, cfg.Seed),
	}
}

// Report is the outcome of one classification run
type Report struct {
	Models      []Metrics `json:"models"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`
	DroppedRows int       `json:"dropped_rows"`
}

// Run splits the samples, scales them on the training split, fits every
// model and scores it on the test split
func Run(ctx context.Context, samples Samples, models []Classifier, cfg config.ClassificationConfig) (*Report, error) {
	if len(samples.Rows) == 0 {
		return nil, ErrNoSamples
	}

	trainIdx, testIdx := StratifiedSplit(samples.Labels, cfg.TestFraction, cfg.Seed)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, fmt.Errorf("%w: %d samples cannot be split", ErrNoSamples, len(samples.Rows))
	}

	trainRows, trainLabels := pick(samples, trainIdx)
	testRows, testLabels := pick(samples, testIdx)

	scaler, trainScaled, err := analytics.FitTransform(trainRows)
	if err != nil {
		return nil, err
	}
	testScaled, err := scaler.Transform(testRows)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TrainRows:   len(trainIdx),
		TestRows:    len(testIdx),
		DroppedRows: samples.Dropped,
	}

	for _, model := range models {
		if err := model.Fit(ctx, trainScaled, trainLabels, len(Categories)); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", model.Name(), err)
		}

		predicted := make([]int, len(testScaled))
		for i, row := range testScaled {
			predicted[i] = model.Predict(row)
		}
		report.Models = append(report.Models, Score(model.Name(), testLabels, predicted))
	}

	return report, nil
}

func pick(samples Samples, idx []int) ([][]float64, []int) {
	rows := make([][]float64, len(idx))
	labels := make([]int, len(idx))
	for i, j := range idx {
		rows[i] = samples.Rows[j]
		labels[i] = samples.Labels[j]
	}
	return rows, labels
}
