package anomaly

import (
	"fmt"
	"sort"
)

// Type represents the type of anomaly detected
type Type string

const (
	TypeSpike    Type = "spike"    // Reading far above the country's normal range
	TypeDrop     Type = "drop"     // Reading far below it
	TypeFlatline Type = "flatline" // No variation at all (stuck sensor or constant fill)
)

// Range represents expected value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Config holds configuration for anomaly detection
type Config struct {
	// Threshold is the number of standard deviations for Z-Score
	Threshold float64

	// IQRMultiplier widens [Q1, Q3] into the accepted band
	IQRMultiplier float64

	// MinDataPoints minimum number of readings required for detection
	MinDataPoints int
}

// DefaultConfig returns default detector configuration
func DefaultConfig() Config {
	return Config{
		Threshold:     3.0,
		IQRMultiplier: 1.5,
		MinDataPoints: 10,
	}
}

// Detector is implemented by every detection algorithm
type Detector interface {
	Name() string

	// Detect returns the anomalous positions of values, in order
	Detect(values []float64, cfg Config) []Result
}

// Result contains detection result for a single reading
type Result struct {
	Index    int
	Score    float64 // how abnormal, higher is worse
	Type     Type
	Expected *Range
}

var detectorRegistry = make(map[string]Detector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector Detector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (Detector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the registered detector names, sorted
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect runs the named algorithm over values
func Detect(algorithm string, values []float64, cfg Config) ([]Result, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}
	return detector.Detect(values, cfg), nil
}
