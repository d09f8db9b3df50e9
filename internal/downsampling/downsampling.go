package downsampling

import (
	"fmt"
	"math"
)

// Mode represents the downsampling mode
type Mode string

const (
	// ModeNone means no downsampling
	ModeNone Mode = "none"
	// ModeLTTB uses Largest-Triangle-Three-Buckets algorithm
	ModeLTTB Mode = "lttb"
	// ModeMinMax keeps min and max values per bucket (preserves peaks/spikes)
	ModeMinMax Mode = "minmax"
)

// MinThreshold is the smallest point budget accepted
const MinThreshold = 3

// ValidModes returns all valid downsampling modes
func ValidModes() []Mode {
	return []Mode{ModeNone, ModeLTTB, ModeMinMax}
}

// ParseMode maps a query value to a Mode, empty means LTTB
func ParseMode(mode string) (Mode, error) {
	if mode == "" {
		return ModeLTTB, nil
	}
	for _, m := range ValidModes() {
		if string(m) == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid downsampling mode: %s (valid: none, lttb, minmax)", mode)
}

// Select returns the ascending indices of the values to keep so that at
// most threshold points remain. Series already under budget are kept whole.
func Select(values []float64, mode Mode, threshold int) ([]int, error) {
	if threshold < MinThreshold && mode != ModeNone {
		return nil, fmt.Errorf("threshold must be at least %d, got %d", MinThreshold, threshold)
	}

	switch mode {
	case ModeNone:
		return allIndices(len(values)), nil
	case ModeLTTB:
		return lttb(values, threshold), nil
	case ModeMinMax:
		return minmax(values, threshold), nil
	default:
		return nil, fmt.Errorf("invalid downsampling mode: %s", mode)
	}
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// lttb implements the Largest-Triangle-Three-Buckets algorithm over an
// evenly spaced series (daily forecasts)
func lttb(data []float64, threshold int) []int {
	if len(data) <= threshold {
		return allIndices(len(data))
	}

	sampled := make([]int, 0, threshold)
	sampled = append(sampled, 0)

	// Bucket size (excluding first and last points)
	bucketSize := float64(len(data)-2) / float64(threshold-2)

	// Index of the point selected in the previous bucket
	a := 0

	for i := 0; i < threshold-2; i++ {
		avgStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		avgEnd := int(math.Floor(float64(i+2)*bucketSize)) + 1
		if avgEnd > len(data) {
			avgEnd = len(data)
		}

		var avgX, avgY float64
		for j := avgStart; j < avgEnd; j++ {
			avgX += float64(j)
			avgY += data[j]
		}
		n := float64(avgEnd - avgStart)
		avgX /= n
		avgY /= n

		rangeOffs := int(math.Floor(float64(i)*bucketSize)) + 1
		rangeTo := int(math.Floor(float64(i+1)*bucketSize)) + 1

		ax, ay := float64(a), data[a]
		maxArea := -1.0
		next := rangeOffs
		for j := rangeOffs; j < rangeTo; j++ {
			area := math.Abs((ax-avgX)*(data[j]-ay)-(ax-float64(j))*(avgY-ay)) * 0.5
			if area > maxArea {
				maxArea = area
				next = j
			}
		}

		sampled = append(sampled, next)
		a = next
	}

	return append(sampled, len(data)-1)
}

// minmax keeps the min and max of each bucket in time order
// Output size: at most 2 * (threshold / 2)
func minmax(data []float64, threshold int) []int {
	if len(data) <= threshold {
		return allIndices(len(data))
	}

	numBuckets := threshold / 2
	bucketSize := float64(len(data)) / float64(numBuckets)
	sampled := make([]int, 0, numBuckets*2)

	for i := 0; i < numBuckets; i++ {
		start := int(float64(i) * bucketSize)
		end := int(float64(i+1) * bucketSize)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			continue
		}

		minIdx, maxIdx := start, start
		for j := start + 1; j < end; j++ {
			if data[j] < data[minIdx] {
				minIdx = j
			}
			if data[j] > data[maxIdx] {
				maxIdx = j
			}
		}

		switch {
		case minIdx == maxIdx:
			sampled = append(sampled, minIdx)
		case minIdx < maxIdx:
			sampled = append(sampled, minIdx, maxIdx)
		default:
			sampled = append(sampled, maxIdx, minIdx)
		}
	}

	return sampled
}
