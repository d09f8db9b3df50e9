// Package gbdt implements a deterministic gradient-boosted regression tree
// ensemble with a squared-error objective.
//
// Trees are grown depth-wise on quantile-binned features (at most 256 bins
// per feature). Each round draws a Bernoulli row subsample and a column
// subsample from a seeded source, so the same data, parameters and seed
// always produce the same model.
package gbdt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/airaware/aqi-analytics/internal/config"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyTrainingSet is returned when there are no rows to fit
	ErrEmptyTrainingSet = errors.New("empty training set")
	// ErrInvalidInput is returned for ragged or non-finite training data
	ErrInvalidInput = errors.New("invalid training data")
)

const (
	maxBins      = 256
	minSplitGain = 1e-6
)

// Params holds boosting hyperparameters
type Params struct {
	NumTrees        int
	MaxDepth        int
	LearningRate    float64
	Subsample       float64
	ColsampleByTree float64
	Lambda          float64
	MinChildWeight  float64
	Seed            int64
}

// ParamsFromConfig converts the model section of the configuration
func ParamsFromConfig(cfg config.ModelConfig) Params {
	return Params{
		NumTrees:        cfg.NumTrees,
		MaxDepth:        cfg.MaxDepth,
		LearningRate:    cfg.LearningRate,
		Subsample:       cfg.Subsample,
		ColsampleByTree: cfg.ColsampleByTree,
		Lambda:          cfg.Lambda,
		MinChildWeight:  cfg.MinChildWeight,
		Seed:            cfg.Seed,
	}
}

// Validate checks parameter ranges
func (p Params) Validate() error {
	switch {
	case p.NumTrees < 1:
		return fmt.Errorf("num trees must be positive: %d", p.NumTrees)
	case p.MaxDepth < 1:
		return fmt.Errorf("max depth must be positive: %d", p.MaxDepth)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning rate must be in (0, 1]: %v", p.LearningRate)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1]: %v", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1]: %v", p.ColsampleByTree)
	case p.Lambda < 0:
		return fmt.Errorf("lambda must be non-negative: %v", p.Lambda)
	case p.MinChildWeight < 0:
		return fmt.Errorf("min child weight must be non-negative: %v", p.MinChildWeight)
	}
	return nil
}

// Model is a fitted ensemble. It is safe for concurrent use.
type Model struct {
	baseScore   float64
	trees       []tree
	numFeatures int
}

// Predict returns the prediction for a single feature vector
func (m *Model) Predict(x []float64) float64 {
	out := m.baseScore
	for i := range m.trees {
		out += m.trees[i].predict(x)
	}
	return out
}

// PredictBatch predicts every row
func (m *Model) PredictBatch(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = m.Predict(row)
	}
	return out
}

// NumTrees returns the number of boosting rounds in the model
func (m *Model) NumTrees() int {
	return len(m.trees)
}

// NumFeatures returns the input width the model was trained on
func (m *Model) NumFeatures() int {
	return m.numFeatures
}

// BaseScore returns the initial prediction before any tree
func (m *Model) BaseScore() float64 {
	return m.baseScore
}

// Train fits an ensemble to rows and targets
func Train(ctx context.Context, rows [][]float64, target []float64, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(rows) != len(target) {
		return nil, fmt.Errorf("%w: %d rows but %d targets", ErrInvalidInput, len(rows), len(target))
	}

	numFeatures := len(rows[0])
	for i, row := range rows {
		if len(row) != numFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrInvalidInput, i, len(row), numFeatures)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite feature in row %d", ErrInvalidInput, i)
			}
		}
		if math.IsNaN(target[i]) || math.IsInf(target[i], 0) {
			return nil, fmt.Errorf("%w: non-finite target in row %d", ErrInvalidInput, i)
		}
	}

	b := newBuilder(rows, target, p)
	model := &Model{
		baseScore:   stat.Mean(target, nil),
		trees:       make([]tree, 0, p.NumTrees),
		numFeatures: numFeatures,
	}

	pred := make([]float64, len(rows))
	for i := range pred {
		pred[i] = model.baseScore
	}

	for round := 0; round < p.NumTrees; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range b.grad {
			b.grad[i] = pred[i] - target[i]
		}

		t := b.grow()
		model.trees = append(model.trees, t)
		for i, row := range rows {
			pred[i] += t.predict(row)
		}
	}

	return model, nil
}

// builder carries the per-fit state shared by every boosting round
type builder struct {
	params  Params
	rng     *rand.Rand
	cuts    [][]float64 // per feature: ascending thresholds, x < cut goes left
	bins    [][]uint8   // per feature: bin index of every row
	grad    []float64
	numRows int
}

func newBuilder(rows [][]float64, target []float64, p Params) *builder {
	numFeatures := len(rows[0])
	b := &builder{
		params:  p,
		rng:     rand.New(rand.NewSource(p.Seed)),
		cuts:    make([][]float64, numFeatures),
		bins:    make([][]uint8, numFeatures),
		grad:    make([]float64, len(target)),
		numRows: len(rows),
	}

	column := make([]float64, len(rows))
	for f := 0; f < numFeatures; f++ {
		for i, row := range rows {
			column[i] = row[f]
		}
		b.cuts[f] = quantileCuts(column)
		b.bins[f] = make([]uint8, len(rows))
		for i, v := range column {
			b.bins[f][i] = uint8(binOf(b.cuts[f], v))
		}
	}
	return b
}

// quantileCuts derives split thresholds for one feature. Few distinct values
// get a cut between every neighbour; otherwise cuts follow the quantiles.
func quantileCuts(column []float64) []float64 {
	sorted := append([]float64(nil), column...)
	sort.Float64s(sorted)

	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}

	if len(unique) <= maxBins {
		cuts := make([]float64, 0, len(unique))
		for i := 1; i < len(unique); i++ {
			cuts = append(cuts, (unique[i-1]+unique[i])/2)
		}
		return cuts
	}

	cuts := make([]float64, 0, maxBins-1)
	for q := 1; q < maxBins; q++ {
		v := sorted[q*len(sorted)/maxBins]
		if v == sorted[0] {
			continue
		}
		if len(cuts) == 0 || v > cuts[len(cuts)-1] {
			cuts = append(cuts, v)
		}
	}
	return cuts
}

// binOf returns the number of cuts that are <= v
func binOf(cuts []float64, v float64) int {
	return sort.Search(len(cuts), func(i int) bool { return cuts[i] > v })
}

// sampleRows draws the Bernoulli row subsample of one round
func (b *builder) sampleRows() []int {
	rows := make([]int, 0, b.numRows)
	if b.params.Subsample >= 1 {
		for i := 0; i < b.numRows; i++ {
			rows = append(rows, i)
		}
		return rows
	}
	for i := 0; i < b.numRows; i++ {
		if b.rng.Float64() < b.params.Subsample {
			rows = append(rows, i)
		}
	}
	return rows
}

// sampleFeatures draws the column subsample of one round, ascending
func (b *builder) sampleFeatures() []int {
	n := len(b.cuts)
	k := int(math.Floor(b.params.ColsampleByTree * float64(n)))
	if k < 1 {
		k = 1
	}
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := b.rng.Perm(n)[:k]
	sort.Ints(picked)
	return picked
}

func (b *builder) grow() tree {
	rows := b.sampleRows()
	features := b.sampleFeatures()

	t := tree{}
	if len(rows) == 0 {
		t.nodes = append(t.nodes, node{leaf: true})
		return t
	}
	b.split(&t, rows, features, 0)
	return t
}

// split grows the subtree for rows and returns its node index
func (b *builder) split(t *tree, rows []int, features []int, depth int) int {
	g, h := 0.0, float64(len(rows))
	for _, r := range rows {
		g += b.grad[r]
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{
		leaf:  true,
		value: -g / (h + b.params.Lambda) * b.params.LearningRate,
	})

	if depth >= b.params.MaxDepth || len(rows) < 2 {
		return idx
	}

	best, ok := b.bestSplit(rows, features, g, h)
	if !ok {
		return idx
	}

	left := make([]int, 0, best.leftCount)
	right := make([]int, 0, len(rows)-best.leftCount)
	binsOfFeature := b.bins[best.feature]
	for _, r := range rows {
		if int(binsOfFeature[r]) <= best.bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	leftIdx := b.split(t, left, features, depth+1)
	rightIdx := b.split(t, right, features, depth+1)

	t.nodes[idx] = node{
		feature:   best.feature,
		threshold: b.cuts[best.feature][best.bin],
		left:      leftIdx,
		right:     rightIdx,
	}
	return idx
}

type candidate struct {
	feature   int
	bin       int
	gain      float64
	leftCount int
}

func (b *builder) bestSplit(rows []int, features []int, g, h float64) (candidate, bool) {
	lambda := b.params.Lambda
	minChild := b.params.MinChildWeight
	parent := g * g / (h + lambda)

	best := candidate{gain: minSplitGain}
	found := false

	var gradHist [maxBins]float64
	var countHist [maxBins]int

	for _, f := range features {
		cuts := b.cuts[f]
		if len(cuts) == 0 {
			continue
		}
		numBins := len(cuts) + 1
		for i := 0; i < numBins; i++ {
			gradHist[i] = 0
			countHist[i] = 0
		}
		binsOfFeature := b.bins[f]
		for _, r := range rows {
			bin := binsOfFeature[r]
			gradHist[bin] += b.grad[r]
			countHist[bin]++
		}

		gl, cl := 0.0, 0
		for bin := 0; bin < numBins-1; bin++ {
			gl += gradHist[bin]
			cl += countHist[bin]
			hl := float64(cl)
			hr := h - hl
			if hl < minChild || hr < minChild || cl == 0 || cl == len(rows) {
				continue
			}
			gr := g - gl
			gain := 0.5 * (gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent)
			if gain > best.gain {
				best = candidate{feature: f, bin: bin, gain: gain, leftCount: cl}
				found = true
			}
		}
	}
	return best, found
}
