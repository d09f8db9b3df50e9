package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisMaxLen caps each stream; trimming is approximate
const redisMaxLen = 10000

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // redis://host:port/db or host:port
	Password string
	DB       int
	Stream   string // stream key prefix
	Root     string // subject prefix sharing one stream
}

// RedisQueue implements Queue on Redis Streams. All subjects under Root
// go to the stream "<Stream>:<Root>"; the full subject travels in the
// entry so subscribers can filter by pattern.
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	consumer      string
	subscriptions map[string]context.CancelFunc
	mu            sync.Mutex
}

// NewRedisQueue connects and pings the server
func NewRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL, DB: cfg.DB}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "aqi"
	}
	consumer, _ := os.Hostname()
	if consumer == "" {
		consumer = "consumer-1"
	}

	return &RedisQueue{
		client:        client,
		config:        cfg,
		consumer:      consumer,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// streamKey maps a subject to the stream that stores it
func (q *RedisQueue) streamKey(subject string) string {
	root := q.config.Root
	if root == "" || (subject != root && !strings.HasPrefix(subject, root+".")) {
		root = subject
	}
	return q.config.Stream + ":" + root
}

// Publish appends an entry to the subject's stream
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamKey(subject)
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: redisMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"subject": subject,
			"data":    data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// Subscribe reads the stream through a consumer group named after pattern
func (q *RedisQueue) Subscribe(pattern string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[pattern]; exists {
		return fmt.Errorf("already subscribed to subject: %s", pattern)
	}

	stream := q.streamKey(rootSubject(pattern))
	group := "aqi-" + SubjectToken(pattern)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go q.readStream(ctx, stream, group, pattern, handler)

	q.subscriptions[pattern] = cancel
	return nil
}

func (q *RedisQueue) readStream(ctx context.Context, stream, group, pattern string, handler MessageHandler) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: q.consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				subject, _ := msg.Values["subject"].(string)
				data, _ := msg.Values["data"].(string)
				if MatchSubject(pattern, subject) {
					if err := handler(subject, []byte(data)); err != nil {
						// left pending for a later XCLAIM
						continue
					}
				}
				q.client.XAck(ctx, stream, group, msg.ID)
			}
		}
	}
}

// Unsubscribe stops the reader of pattern
func (q *RedisQueue) Unsubscribe(pattern string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[pattern]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", pattern)
	}
	cancel()
	delete(q.subscriptions, pattern)
	return nil
}

// Close stops all readers and closes the client
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for pattern, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, pattern)
	}
	return q.client.Close()
}
