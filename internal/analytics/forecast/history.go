package forecast

import (
	"fmt"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/features"
)

// Entry is one {date, AQI} element of the history window
type Entry struct {
	Date time.Time
	AQI  float64
}

// EntriesFromTable extracts the {date, AQI} pairs of a feature table
func EntriesFromTable(table features.Table) []Entry {
	out := make([]Entry, len(table))
	for i, row := range table {
		out[i] = Entry{Date: row.Date, AQI: row.AQI}
	}
	return out
}

// HistoryBuffer is a fixed-length sliding window over the most recent AQI
// values. Its length never changes once created.
type HistoryBuffer struct {
	entries []Entry
	padded  int
}

// NewHistoryBuffer seeds a buffer of the given size. Only the last size
// entries of seed are kept; a shorter seed is left-padded with copies of
// its earliest entry, which biases the first lags toward that value.
func NewHistoryBuffer(seed []Entry, size int) (*HistoryBuffer, error) {
	if size < features.MaxLag {
		return nil, fmt.Errorf("history size %d is below the largest lag %d", size, features.MaxLag)
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed history", ErrInsufficientHistory)
	}

	if len(seed) > size {
		seed = seed[len(seed)-size:]
	}

	b := &HistoryBuffer{
		entries: make([]Entry, 0, size),
		padded:  size - len(seed),
	}
	for i := 0; i < b.padded; i++ {
		b.entries = append(b.entries, seed[0])
	}
	b.entries = append(b.entries, seed...)
	return b, nil
}

// Len returns the window length
func (b *HistoryBuffer) Len() int {
	return len(b.entries)
}

// Padded returns how many leading entries were added by padding
func (b *HistoryBuffer) Padded() int {
	return b.padded
}

// Last returns the most recent entry
func (b *HistoryBuffer) Last() Entry {
	return b.entries[len(b.entries)-1]
}

// Lag returns the AQI k entries back; Lag(1) is the most recent value
func (b *HistoryBuffer) Lag(k int) float64 {
	return b.entries[len(b.entries)-k].AQI
}

// RollingMean returns the mean AQI of the last w entries
func (b *HistoryBuffer) RollingMean(w int) float64 {
	sum := 0.0
	for _, e := range b.entries[len(b.entries)-w:] {
		sum += e.AQI
	}
	return sum / float64(w)
}

// Push appends an entry and evicts the oldest
func (b *HistoryBuffer) Push(e Entry) {
	copy(b.entries, b.entries[1:])
	b.entries[len(b.entries)-1] = e
}

// Entries returns a copy of the window, oldest first
func (b *HistoryBuffer) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// lagFeatures reads the lag and rolling inputs of the next step
func (b *HistoryBuffer) lagFeatures() ([len(features.LagOffsets)]float64, [len(features.RollingWindows)]float64) {
	var lags [len(features.LagOffsets)]float64
	var rolls [len(features.RollingWindows)]float64
	for i, k := range features.LagOffsets {
		lags[i] = b.Lag(k)
	}
	for i, w := range features.RollingWindows {
		rolls[i] = b.RollingMean(w)
	}
	return lags, rolls
}
