package classify

import "sort"

// ClassScore is the per-class part of a classification report
type ClassScore struct {
	Label     Category `json:"label"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1_score"`
	Support   int      `json:"support"`
}

// Metrics summarizes one model on the test split
type Metrics struct {
	Model     string       `json:"model"`
	Accuracy  float64      `json:"accuracy"`
	Precision float64      `json:"precision"` // support-weighted
	Recall    float64      `json:"recall"`    // support-weighted
	F1        float64      `json:"f1_score"`  // support-weighted
	Classes   []ClassScore `json:"classes"`
	Labels    []Category   `json:"labels"`           // confusion matrix axis, labels present in the test split
	Confusion [][]int      `json:"confusion_matrix"` // rows actual, columns predicted
}

// Score compares predictions against the truth. Undefined ratios (no
// predicted or no actual members) count as 0.
func Score(model string, actual, predicted []int) Metrics {
	m := Metrics{Model: model}
	if len(actual) == 0 || len(actual) != len(predicted) {
		return m
	}

	present := make(map[int]bool)
	correct := 0
	for i := range actual {
		present[actual[i]] = true
		if actual[i] == predicted[i] {
			correct++
		}
	}
	m.Accuracy = float64(correct) / float64(len(actual))

	labels := make([]int, 0, len(present))
	for l := range present {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	total := float64(len(actual))
	for _, l := range labels {
		tp, fp, fn, support := 0, 0, 0, 0
		for i := range actual {
			switch {
			case actual[i] == l && predicted[i] == l:
				tp++
			case predicted[i] == l:
				fp++
			case actual[i] == l:
				fn++
			}
			if actual[i] == l {
				support++
			}
		}

		precision := ratio(tp, tp+fp)
		recall := ratio(tp, tp+fn)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		m.Classes = append(m.Classes, ClassScore{
			Label:     Categories[l],
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		})

		w := float64(support) / total
		m.Precision += w * precision
		m.Recall += w * recall
		m.F1 += w * f1
	}

	m.Labels, m.Confusion = confusion(labels, actual, predicted)
	return m
}

// confusion counts actual/predicted pairs over the given labels only
func confusion(labels, actual, predicted []int) ([]Category, [][]int) {
	pos := make(map[int]int, len(labels))
	names := make([]Category, len(labels))
	matrix := make([][]int, len(labels))
	for i, l := range labels {
		pos[l] = i
		names[i] = Categories[l]
		matrix[i] = make([]int, len(labels))
	}

	for i := range actual {
		r, okR := pos[actual[i]]
		c, okC := pos[predicted[i]]
		if okR && okC {
			matrix[r][c]++
		}
	}
	return names, matrix
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
