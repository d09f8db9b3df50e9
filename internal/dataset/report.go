package dataset

// CoercionFailure describes one cell that could not be used as-is
type CoercionFailure struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Report summarizes what the loader had to repair or drop
type Report struct {
	RowsRead     int                       `json:"rows_read"`
	RowsDropped  int                       `json:"rows_dropped"`
	Failures     map[string]map[string]int `json:"failures"` // column -> reason -> count
	Samples      []CoercionFailure         `json:"samples,omitempty"`
	AQIFilled    int                       `json:"aqi_filled"`
	AQIFillValue float64                   `json:"aqi_fill_value"`
}

func newReport() Report {
	return Report{Failures: make(map[string]map[string]int)}
}

func (r *Report) addFailure(line int, column, value, reason string) {
	byReason, ok := r.Failures[column]
	if !ok {
		byReason = make(map[string]int)
		r.Failures[column] = byReason
	}
	byReason[reason]++

	if len(r.Samples) < maxReportSamples {
		r.Samples = append(r.Samples, CoercionFailure{
			Line:   line,
			Column: column,
			Value:  value,
			Reason: reason,
		})
	}
}

// FailureCount returns the number of coercion failures for a column
func (r *Report) FailureCount(column string) int {
	total := 0
	for _, n := range r.Failures[column] {
		total += n
	}
	return total
}

// Clean reports whether the source needed no repair at all
func (r *Report) Clean() bool {
	return r.RowsDropped == 0 && len(r.Failures) == 0
}
