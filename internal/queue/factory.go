package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/airaware/aqi-analytics/internal/config"
)

// Type identifies a queue backend
type Type string

const (
	TypeNone   Type = "none"
	TypeNATS   Type = "nats"
	TypeRedis  Type = "redis"
	TypeKafka  Type = "kafka"
	TypeMemory Type = "memory"
)

// DefaultSubject is the subject prefix of forecast events
const DefaultSubject = "aqi.forecast"

// ErrDisabled is returned when no queue backend is configured
var ErrDisabled = errors.New("queue disabled")

// NewQueue creates a Queue for the configured backend
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	root := cfg.Subject
	if root == "" {
		root = DefaultSubject
	}

	switch Type(strings.ToLower(cfg.Type)) {
	case "", TypeNone:
		return nil, ErrDisabled

	case TypeNATS:
		return NewNATSQueue(cfg.URL, cfg.Password, root)

	case TypeRedis:
		return NewRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Root:     root,
		})

	case TypeKafka:
		return NewKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Root:    root,
		})

	case TypeMemory:
		return NewMemoryQueue(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: none, nats, redis, kafka, memory)", cfg.Type)
	}
}
