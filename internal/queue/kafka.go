package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers      []string
	Root         string        // subject prefix sharing one topic
	BatchTimeout time.Duration // producer batch timeout (default: 10ms)
	MaxAttempts  int           // producer retries (default: 3)
}

// KafkaQueue implements Queue on Kafka. Subjects under Root are written to
// the topic named Root, keyed by the full subject so one country always
// lands on the same partition.
type KafkaQueue struct {
	config        KafkaConfig
	writers       map[string]*kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	mu            sync.Mutex
}

// NewKafkaQueue validates the configuration; connections are opened lazily
func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	return &KafkaQueue{
		config:        cfg,
		writers:       make(map[string]*kafka.Writer),
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

func (q *KafkaQueue) topicFor(subject string) string {
	root := q.config.Root
	if root != "" && (subject == root || strings.HasPrefix(subject, root+".")) {
		return root
	}
	return subject
}

func (q *KafkaQueue) writer(topic string) *kafka.Writer {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w, exists := q.writers[topic]; exists {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(q.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           q.config.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            q.config.MaxAttempts,
		AllowAutoTopicCreation: true,
	}
	q.writers[topic] = w
	return w
}

// Publish writes one message keyed by subject
func (q *KafkaQueue) Publish(ctx context.Context, subject string, data []byte) error {
	topic := q.topicFor(subject)
	err := q.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:   []byte(subject),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins a consumer group named after pattern
func (q *KafkaQueue) Subscribe(pattern string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[pattern]; exists {
		return fmt.Errorf("already subscribed to topic: %s", pattern)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		GroupID:  "aqi-" + SubjectToken(pattern),
		Topic:    q.topicFor(rootSubject(pattern)),
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())

	q.readers[pattern] = reader
	q.subscriptions[pattern] = cancel

	go q.consume(ctx, reader, pattern, handler)
	return nil
}

func (q *KafkaQueue) consume(ctx context.Context, reader *kafka.Reader, pattern string, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		subject := string(msg.Key)
		if MatchSubject(pattern, subject) {
			if err := handler(subject, msg.Value); err != nil {
				// uncommitted, redelivered after a rebalance
				continue
			}
		}
		_ = reader.CommitMessages(ctx, msg)
	}
}

// Unsubscribe stops the consumer of pattern
func (q *KafkaQueue) Unsubscribe(pattern string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[pattern]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", pattern)
	}
	cancel()
	delete(q.subscriptions, pattern)

	if reader, ok := q.readers[pattern]; ok {
		delete(q.readers, pattern)
		return reader.Close()
	}
	return nil
}

// Close flushes writers and closes readers
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var firstErr error
	for pattern, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, pattern)
	}
	for pattern, reader := range q.readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(q.readers, pattern)
	}
	for topic, w := range q.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(q.writers, topic)
	}
	return firstErr
}
