// Package cluster groups a country's pollution and weather records with
// DBSCAN, choosing eps at the knee of the k-distance curve.
package cluster

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/airaware/aqi-analytics/internal/analytics"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Noise is the label of points that belong to no cluster
const Noise = -1

// fallbackEps is used when the k-distance curve is degenerate
const fallbackEps = 0.5

// ErrNoCompleteRows is returned when a country has no row with every feature
var ErrNoCompleteRows = errors.New("no complete rows to cluster")

// FeatureNames are the clustered columns, in vector order
var FeatureNames = []string{
	dataset.ColumnAQI, dataset.ColumnTemperature, dataset.ColumnRelativeHumidity, dataset.ColumnWindSpeed,
}

// Record is one clustered observation
type Record struct {
	AQI              float64 `json:"AQI"`
	Temperature      float64 `json:"Temperature"`
	RelativeHumidity float64 `json:"RelativeHumidity"`
	WindSpeed        float64 `json:"WindSpeed"`
	Cluster          int     `json:"Cluster"`
}

// Summary describes one cluster (or the noise group)
type Summary struct {
	Cluster int                `json:"cluster"`
	Count   int                `json:"count"`
	Means   map[string]float64 `json:"means"`
}

// Result is the clustering outcome for one country
type Result struct {
	Country         string    `json:"country"`
	Eps             float64   `json:"eps"`
	SilhouetteScore float64   `json:"silhouette_score"`
	NoisePoints     int       `json:"noise_points"`
	NumClusters     int       `json:"num_clusters"`
	DroppedRows     int       `json:"dropped_rows"`
	Summaries       []Summary `json:"summary"`
	Records         []Record  `json:"clusters"`
}

// Params controls neighbourhood sizes
type Params struct {
	Neighbors  int // k of the k-distance curve, the point itself included
	MinSamples int // DBSCAN core threshold, the point itself included
}

// Run clusters one country's series
func Run(ctx context.Context, country string, series dataset.Series, p Params) (*Result, error) {
	var records []Record
	var rows [][]float64
	dropped := 0
	for _, o := range series {
		row := []float64{o.AQI, o.Temperature, o.RelativeHumidity, o.WindSpeed}
		if floats.HasNaN(row) {
			dropped++
			continue
		}
		rows = append(rows, row)
		records = append(records, Record{
			AQI:              o.AQI,
			Temperature:      o.Temperature,
			RelativeHumidity: o.RelativeHumidity,
			WindSpeed:        o.WindSpeed,
		})
	}
	if len(rows) == 0 {
		return nil, ErrNoCompleteRows
	}

	_, scaled, err := analytics.FitTransform(rows)
	if err != nil {
		return nil, err
	}

	distances, err := KDistances(ctx, scaled, p.Neighbors)
	if err != nil {
		return nil, err
	}
	eps := ChooseEps(distances)

	labels, err := DBSCAN(ctx, scaled, eps, p.MinSamples)
	if err != nil {
		return nil, err
	}
	silhouette, err := Silhouette(ctx, scaled, labels)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Country:         country,
		Eps:             eps,
		SilhouetteScore: silhouette,
		DroppedRows:     dropped,
	}
	for i := range records {
		records[i].Cluster = labels[i]
		if labels[i] == Noise {
			result.NoisePoints++
		}
	}
	result.Records = records
	result.Summaries = summarize(rows, labels)
	for _, s := range result.Summaries {
		if s.Cluster != Noise {
			result.NumClusters++
		}
	}
	return result, nil
}

// KDistances returns, in ascending order, every point's distance to its
// k-th nearest neighbour where the point itself is the first neighbour
func KDistances(ctx context.Context, rows [][]float64, k int) ([]float64, error) {
	n := len(rows)
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	out := make([]float64, n)
	dists := make([]float64, n)
	for i := range rows {
		if err := checkEvery(ctx, i); err != nil {
			return nil, err
		}
		for j := range rows {
			dists[j] = floats.Distance(rows[i], rows[j], 2)
		}
		sort.Float64s(dists)
		out[i] = dists[k-1]
	}
	sort.Float64s(out)
	return out, nil
}

// ChooseEps picks the knee of an ascending convex curve: the point where
// the normalized curve falls furthest below the diagonal. A curve with no
// such point falls back to its median.
func ChooseEps(distances []float64) float64 {
	n := len(distances)
	if n == 0 {
		return fallbackEps
	}

	lo, hi := distances[0], distances[n-1]
	knee, best := -1, 0.0
	if n > 2 && hi > lo {
		for i, d := range distances {
			x := float64(i) / float64(n-1)
			y := (d - lo) / (hi - lo)
			if diff := x - y; diff > best {
				best = diff
				knee = i
			}
		}
	}

	eps := 0.0
	if knee >= 0 {
		eps = distances[knee]
	} else {
		eps = stat.Quantile(0.5, stat.Empirical, distances, nil)
	}
	if eps <= 0 {
		eps = fallbackEps
	}
	return eps
}

// DBSCAN labels every row with a cluster index starting at 0, or Noise.
// Neighbourhoods are closed balls of radius eps that include the point.
func DBSCAN(ctx context.Context, rows [][]float64, eps float64, minSamples int) ([]int, error) {
	n := len(rows)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	neighbours := make([][]int, n)
	for i := range rows {
		if err := checkEvery(ctx, i); err != nil {
			return nil, err
		}
		for j := range rows {
			if floats.Distance(rows[i], rows[j], 2) <= eps {
				neighbours[i] = append(neighbours[i], j)
			}
		}
	}

	core := func(i int) bool { return len(neighbours[i]) >= minSamples }
	visited := make([]bool, n)
	cluster := 0
	for i := range rows {
		if visited[i] || !core(i) {
			continue
		}

		queue := []int{i}
		visited[i] = true
		labels[i] = cluster
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if !core(p) {
				continue
			}
			for _, q := range neighbours[p] {
				if labels[q] == Noise {
					labels[q] = cluster
				}
				if !visited[q] {
					visited[q] = true
					queue = append(queue, q)
				}
			}
		}
		cluster++
	}
	return labels, nil
}

// Silhouette returns the mean silhouette coefficient, treating Noise as a
// label of its own. It is 0 unless there are between 2 and n-1 labels.
func Silhouette(ctx context.Context, rows [][]float64, labels []int) (float64, error) {
	n := len(rows)
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	if len(groups) < 2 || len(groups) > n-1 {
		return 0, nil
	}

	keys := make([]int, 0, len(groups))
	for l := range groups {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	total := 0.0
	for i := range rows {
		if err := checkEvery(ctx, i); err != nil {
			return 0, err
		}
		own := groups[labels[i]]
		if len(own) == 1 {
			continue
		}

		a := 0.0
		for _, j := range own {
			a += floats.Distance(rows[i], rows[j], 2)
		}
		a /= float64(len(own) - 1)

		b := math.Inf(1)
		for _, l := range keys {
			if l == labels[i] {
				continue
			}
			d := 0.0
			for _, j := range groups[l] {
				d += floats.Distance(rows[i], rows[j], 2)
			}
			b = math.Min(b, d/float64(len(groups[l])))
		}

		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n), nil
}

func summarize(rows [][]float64, labels []int) []Summary {
	byLabel := make(map[int][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}

	keys := make([]int, 0, len(byLabel))
	for l := range byLabel {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	out := make([]Summary, 0, len(keys))
	column := make([]float64, 0, len(rows))
	for _, l := range keys {
		members := byLabel[l]
		s := Summary{Cluster: l, Count: len(members), Means: make(map[string]float64, len(FeatureNames))}
		for f, name := range FeatureNames {
			column = column[:0]
			for _, i := range members {
				column = append(column, rows[i][f])
			}
			s.Means[name] = stat.Mean(column, nil)
		}
		out = append(out, s)
	}
	return out
}

func checkEvery(ctx context.Context, i int) error {
	if i%256 == 0 {
		return ctx.Err()
	}
	return nil
}
