package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/golang/snappy"
)

// Event statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Event kinds
const (
	KindBatch    = "batch"
	KindRealtime = "realtime"
)

// Payload encodings, stored in the first byte of every message
const (
	encodingJSON   byte = 0
	encodingSnappy byte = 1
)

// ForecastEvent announces a finished country forecast
type ForecastEvent struct {
	RunID     string                       `json:"run_id"`
	Kind      string                       `json:"kind"`
	Country   string                       `json:"country"`
	Status    string                       `json:"status"`
	Error     string                       `json:"error,omitempty"`
	Metrics   *analytics.RegressionMetrics `json:"metrics,omitempty"`
	Points    int                          `json:"points"`
	StartDate string                       `json:"start_date,omitempty"`
	EndDate   string                       `json:"end_date,omitempty"`
	CreatedAt time.Time                    `json:"created_at"`
}

// EncodeEvent serializes an event, snappy-compressing the JSON body when
// compress is set
func EncodeEvent(ev ForecastEvent, compress bool) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forecast event: %w", err)
	}
	if !compress {
		return append([]byte{encodingJSON}, body...), nil
	}
	return append([]byte{encodingSnappy}, snappy.Encode(nil, body)...), nil
}

// DecodeEvent reverses EncodeEvent
func DecodeEvent(data []byte) (*ForecastEvent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty forecast event")
	}

	body := data[1:]
	switch data[0] {
	case encodingJSON:
	case encodingSnappy:
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("snappy decode failed: %w", err)
		}
		body = decoded
	default:
		return nil, fmt.Errorf("unknown event encoding: %d", data[0])
	}

	var ev ForecastEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast event: %w", err)
	}
	return &ev, nil
}

// EventPublisher publishes forecast events to "<subject>.<country>".
// A nil *EventPublisher discards events.
type EventPublisher struct {
	pub      Publisher
	root     string
	compress bool
	logger   *logging.Logger
	now      func() time.Time
}

// NewEventPublisher wraps pub with the configured subject and encoding
func NewEventPublisher(pub Publisher, cfg config.QueueConfig, logger *logging.Logger) *EventPublisher {
	root := cfg.Subject
	if root == "" {
		root = DefaultSubject
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &EventPublisher{pub: pub, root: root, compress: cfg.Compress, logger: logger, now: time.Now}
}

// Subject returns the subject events for country are published on
func (p *EventPublisher) Subject(country string) string {
	return p.root + "." + SubjectToken(country)
}

// Pattern matches every event this publisher emits
func (p *EventPublisher) Pattern() string {
	return p.root + ".>"
}

// PublishForecast stamps and publishes ev
func (p *EventPublisher) PublishForecast(ctx context.Context, ev ForecastEvent) error {
	if p == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = p.now().UTC()
	}

	data, err := EncodeEvent(ev, p.compress)
	if err != nil {
		return err
	}

	subject := p.Subject(ev.Country)
	if err := p.pub.Publish(ctx, subject, data); err != nil {
		p.logger.Warn("Forecast event not published", "subject", subject, "error", err)
		return err
	}
	p.logger.Debug("Forecast event published", "subject", subject, "status", ev.Status, "bytes", len(data))
	return nil
}

// Close closes the underlying publisher
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.pub.Close()
}
