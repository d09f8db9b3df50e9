package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSQueue implements Queue on NATS JetStream. Every root subject gets a
// file-backed stream named "aqi-<root>" holding the root and all subjects
// below it.
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	root          string
	subscriptions map[string]*nats.Subscription
	streams       map[string]bool
	mu            sync.Mutex
}

// NewNATSQueue connects to url and makes sure the stream for root exists
func NewNATSQueue(url, token, root string) (*NATSQueue, error) {
	opts := []nats.Option{nats.Name("aqi-analytics")}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := NewNATSQueueWithConn(conn, root)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// NewNATSQueueWithConn wraps an existing connection
func NewNATSQueueWithConn(conn *nats.Conn, root string) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	q := &NATSQueue{
		conn:          conn,
		js:            js,
		root:          root,
		subscriptions: make(map[string]*nats.Subscription),
		streams:       make(map[string]bool),
	}
	if root != "" {
		if err := q.ensureStream(root); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func streamName(root string) string {
	return "aqi-" + SubjectToken(root)
}

// ensureStream creates the stream for root unless it already exists.
// Callers other than the constructor hold q.mu.
func (q *NATSQueue) ensureStream(root string) error {
	if root == "" {
		return fmt.Errorf("subject pattern needs a literal prefix")
	}
	if q.streams[root] {
		return nil
	}

	name := streamName(root)
	if _, err := q.js.StreamInfo(name); err != nil {
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{root, root + ".>"},
			Storage:  nats.FileStorage,
			MaxAge:   7 * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream for subject %s: %w", root, err)
		}
	}
	q.streams[root] = true
	return nil
}

// Publish publishes asynchronously and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	future, err := q.js.PublishAsync(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	select {
	case <-future.Ok():
		return nil
	case err := <-future.Err():
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	case <-ctx.Done():
		return fmt.Errorf("publish to subject %s not acknowledged: %w", subject, ctx.Err())
	}
}

// Subscribe attaches a durable consumer. Failed handlers NAK the message
// so JetStream redelivers it up to three times.
func (q *NATSQueue) Subscribe(pattern string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[pattern]; exists {
		return fmt.Errorf("already subscribed to subject: %s", pattern)
	}
	if err := q.ensureStream(rootSubject(pattern)); err != nil {
		return err
	}

	sub, err := q.js.Subscribe(pattern, func(msg *nats.Msg) {
		if err := handler(msg.Subject, msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("consumer-"+SubjectToken(pattern)),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", pattern, err)
	}

	q.subscriptions[pattern] = sub
	return nil
}

// Unsubscribe removes a subscription
func (q *NATSQueue) Unsubscribe(pattern string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[pattern]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", pattern)
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", pattern, err)
	}
	delete(q.subscriptions, pattern)
	return nil
}

// Close waits briefly for outstanding acks, then closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
	}

	for pattern, sub := range q.subscriptions {
		_ = sub.Unsubscribe()
		delete(q.subscriptions, pattern)
	}
	q.conn.Close()
	return nil
}
