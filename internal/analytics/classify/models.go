package classify

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Classifier is a multi-class model over scaled feature rows. Labels are
// indices into Categories.
type Classifier interface {
	Name() string
	Fit(ctx context.Context, rows [][]float64, labels []int, numClasses int) error
	Predict(row []float64) int
}

// Logistic is multinomial logistic regression with L2 regularization,
// fitted by full-batch gradient descent
type Logistic struct {
	MaxIter  int
	StepSize float64
	C        float64 // inverse regularization strength

	weights [][]float64 // per class: bias followed by feature weights
}

// NewLogistic creates a logistic regression classifier
func NewLogistic(maxIter int, stepSize float64) *Logistic {
	return &Logistic{MaxIter: maxIter, StepSize: stepSize, C: 1}
}

// Name returns the model name
func (l *Logistic) Name() string { return "Logistic Regression" }

// Fit minimizes mean cross-entropy plus ||w||²/(2·C·n)
func (l *Logistic) Fit(ctx context.Context, rows [][]float64, labels []int, numClasses int) error {
	n := len(rows)
	if n == 0 {
		return ErrNoSamples
	}
	dim := len(rows[0]) + 1

	l.weights = make([][]float64, numClasses)
	grad := make([][]float64, numClasses)
	for k := range l.weights {
		l.weights[k] = make([]float64, dim)
		grad[k] = make([]float64, dim)
	}

	penalty := 1 / (l.C * float64(n))
	probs := make([]float64, numClasses)
	x := make([]float64, dim)
	x[0] = 1

	for iter := 0; iter < l.MaxIter; iter++ {
		if iter%50 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		for k := range grad {
			for j := range grad[k] {
				grad[k][j] = 0
			}
		}

		for i, row := range rows {
			copy(x[1:], row)
			l.softmax(x, probs)
			for k := range probs {
				d := probs[k]
				if labels[i] == k {
					d--
				}
				floats.AddScaled(grad[k], d/float64(n), x)
			}
		}

		maxStep := 0.0
		for k := range l.weights {
			// bias is not regularized
			for j := 1; j < dim; j++ {
				grad[k][j] += penalty * l.weights[k][j]
			}
			floats.AddScaled(l.weights[k], -l.StepSize, grad[k])
			maxStep = math.Max(maxStep, l.StepSize*floats.Norm(grad[k], math.Inf(1)))
		}
		if maxStep < 1e-6 {
			break
		}
	}
	return nil
}

func (l *Logistic) softmax(x, out []float64) {
	for k, w := range l.weights {
		out[k] = floats.Dot(w, x)
	}
	maxScore := floats.Max(out)
	sum := 0.0
	for k := range out {
		out[k] = math.Exp(out[k] - maxScore)
		sum += out[k]
	}
	floats.Scale(1/sum, out)
}

// Predict returns the most probable class
func (l *Logistic) Predict(row []float64) int {
	x := make([]float64, len(row)+1)
	x[0] = 1
	copy(x[1:], row)
	probs := make([]float64, len(l.weights))
	l.softmax(x, probs)
	return floats.MaxIdx(probs)
}

// KNN is a k-nearest-neighbours majority-vote classifier
type KNN struct {
	K int

	rows       [][]float64
	labels     []int
	numClasses int
}

// NewKNN creates a k-nearest-neighbours classifier
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Name returns the model name
func (m *KNN) Name() string { return "KNN" }

// Fit memorizes the training set
func (m *KNN) Fit(_ context.Context, rows [][]float64, labels []int, numClasses int) error {
	if len(rows) == 0 {
		return ErrNoSamples
	}
	m.rows = rows
	m.labels = labels
	m.numClasses = numClasses
	return nil
}

// Predict votes among the K closest training rows. Ties go to the lowest
// class index.
func (m *KNN) Predict(row []float64) int {
	type neighbour struct {
		dist  float64
		index int
	}
	ns := make([]neighbour, len(m.rows))
	for i, r := range m.rows {
		ns[i] = neighbour{dist: floats.Distance(row, r, 2), index: i}
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })

	k := m.K
	if k > len(ns) {
		k = len(ns)
	}
	votes := make([]float64, m.numClasses)
	for _, n := range ns[:k] {
		votes[m.labels[n.index]]++
	}
	return floats.MaxIdx(votes)
}

// Forest is a random forest of gini classification trees grown on
// bootstrap samples with sqrt(features) candidates per split
type Forest struct {
	NumTrees int
	MaxDepth int
	Seed     int64

	trees      []*classTree
	numClasses int
}

// NewForest creates a random forest classifier
func NewForest(numTrees, maxDepth int, seed int64) *Forest {
	return &Forest{NumTrees: numTrees, MaxDepth: maxDepth, Seed: seed}
}

// Name returns the model name
func (f *Forest) Name() string { return "Random Forest Tree" }

// Fit grows every tree
func (f *Forest) Fit(ctx context.Context, rows [][]float64, labels []int, numClasses int) error {
	if len(rows) == 0 {
		return ErrNoSamples
	}
	f.numClasses = numClasses
	f.trees = make([]*classTree, 0, f.NumTrees)

	rng := rand.New(rand.NewSource(f.Seed))
	numFeatures := len(rows[0])
	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(numFeatures)))))

	for t := 0; t < f.NumTrees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample := make([]int, len(rows))
		for i := range sample {
			sample[i] = rng.Intn(len(rows))
		}
		g := &treeGrower{
			rows:        rows,
			labels:      labels,
			numClasses:  numClasses,
			maxDepth:    f.MaxDepth,
			maxFeatures: maxFeatures,
			rng:         rng,
		}
		f.trees = append(f.trees, g.grow(sample))
	}
	return nil
}

// Predict averages the class distributions of all trees
func (f *Forest) Predict(row []float64) int {
	votes := make([]float64, f.numClasses)
	for _, t := range f.trees {
		floats.Add(votes, t.predict(row))
	}
	return floats.MaxIdx(votes)
}

type classNode struct {
	feature     int
	threshold   float64
	left, right *classNode
	dist        []float64 // class distribution, leaves only
}

type classTree struct {
	root *classNode
}

func (t *classTree) predict(row []float64) []float64 {
	n := t.root
	for n.dist == nil {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.dist
}

type treeGrower struct {
	rows        [][]float64
	labels      []int
	numClasses  int
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
}

func (g *treeGrower) grow(sample []int) *classTree {
	return &classTree{root: g.node(sample, 0)}
}

func (g *treeGrower) counts(sample []int) []float64 {
	c := make([]float64, g.numClasses)
	for _, i := range sample {
		c[g.labels[i]]++
	}
	return c
}

func (g *treeGrower) leaf(counts []float64) *classNode {
	dist := make([]float64, len(counts))
	copy(dist, counts)
	floats.Scale(1/floats.Sum(dist), dist)
	return &classNode{dist: dist}
}

func (g *treeGrower) node(sample []int, depth int) *classNode {
	counts := g.counts(sample)
	if depth >= g.maxDepth || len(sample) < 2 || gini(counts) == 0 {
		return g.leaf(counts)
	}

	feature, threshold, ok := g.bestSplit(sample, counts)
	if !ok {
		return g.leaf(counts)
	}

	var left, right []int
	for _, i := range sample {
		if g.rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &classNode{
		feature:   feature,
		threshold: threshold,
		left:      g.node(left, depth+1),
		right:     g.node(right, depth+1),
	}
}

func (g *treeGrower) bestSplit(sample []int, counts []float64) (int, float64, bool) {
	numFeatures := len(g.rows[0])
	candidates := g.rng.Perm(numFeatures)

	total := float64(len(sample))
	bestImpurity := gini(counts)
	bestFeature, bestThreshold, found := 0, 0.0, false

	sorted := make([]int, len(sample))
	leftCounts := make([]float64, g.numClasses)
	rightCounts := make([]float64, g.numClasses)

	// like sklearn, keep drawing features past maxFeatures until a valid
	// split is found
	for tried, f := range candidates {
		if tried >= g.maxFeatures && found {
			break
		}

		copy(sorted, sample)
		sort.SliceStable(sorted, func(a, b int) bool { return g.rows[sorted[a]][f] < g.rows[sorted[b]][f] })

		for k := range leftCounts {
			leftCounts[k] = 0
		}
		copy(rightCounts, counts)

		for pos := 0; pos < len(sorted)-1; pos++ {
			label := g.labels[sorted[pos]]
			leftCounts[label]++
			rightCounts[label]--

			v, next := g.rows[sorted[pos]][f], g.rows[sorted[pos+1]][f]
			if v == next {
				continue
			}

			nl := float64(pos + 1)
			nr := total - nl
			impurity := (nl*gini(leftCounts) + nr*gini(rightCounts)) / total
			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = (v + next) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(counts []float64) float64 {
	total := floats.Sum(counts)
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}
