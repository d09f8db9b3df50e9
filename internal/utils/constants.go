package utils

import "time"

// Version is reported by the health endpoint
const Version = "1.0.0"

// DateLayout is the calendar date format used in responses and result files
const DateLayout = "2006-01-02"

// Timeouts
const (
	// EventPublishTimeout bounds how long a finished forecast waits for its
	// completion event to be acknowledged
	EventPublishTimeout = 5 * time.Second

	// DatasetLoadTimeout bounds a single dataset (re)load
	DatasetLoadTimeout = 2 * time.Minute
)
