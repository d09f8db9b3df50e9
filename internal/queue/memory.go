package queue

import (
	"context"
	"fmt"
	"sync"
)

// memoryCapacity bounds both the backlog and every subscription buffer
const memoryCapacity = 10000

type memoryMessage struct {
	subject string
	data    []byte
}

type memorySubscription struct {
	ch     chan memoryMessage
	cancel context.CancelFunc
}

// MemoryQueue implements Queue with in-process channels. Messages published
// while no subscription matches wait in a backlog and are handed to the
// first matching subscriber.
type MemoryQueue struct {
	subscriptions map[string]*memorySubscription
	backlog       []memoryMessage
	closed        bool
	mu            sync.Mutex
}

// NewMemoryQueue creates an empty in-memory queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{subscriptions: make(map[string]*memorySubscription)}
}

// Publish delivers a copy of data to every matching subscription
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := memoryMessage{subject: subject, data: append([]byte(nil), data...)}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("memory queue closed")
	}

	delivered := false
	for pattern, sub := range q.subscriptions {
		if !MatchSubject(pattern, subject) {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered = true
		default:
			return fmt.Errorf("subscription %s is full", pattern)
		}
	}
	if delivered {
		return nil
	}

	if len(q.backlog) >= memoryCapacity {
		return fmt.Errorf("backlog full for subject: %s", subject)
	}
	q.backlog = append(q.backlog, msg)
	return nil
}

// Subscribe starts a goroutine that feeds matching messages to handler.
// Handler errors are dropped: there is no redelivery in memory.
func (q *MemoryQueue) Subscribe(pattern string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("memory queue closed")
	}
	if _, exists := q.subscriptions[pattern]; exists {
		return fmt.Errorf("already subscribed to subject: %s", pattern)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &memorySubscription{ch: make(chan memoryMessage, memoryCapacity), cancel: cancel}

	remaining := q.backlog[:0]
	for _, msg := range q.backlog {
		if MatchSubject(pattern, msg.subject) {
			sub.ch <- msg
			continue
		}
		remaining = append(remaining, msg)
	}
	q.backlog = remaining
	q.subscriptions[pattern] = sub

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub.ch:
				_ = handler(msg.subject, msg.data)
			}
		}
	}()
	return nil
}

// Unsubscribe stops the subscription registered for pattern
func (q *MemoryQueue) Unsubscribe(pattern string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[pattern]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", pattern)
	}
	sub.cancel()
	delete(q.subscriptions, pattern)
	return nil
}

// Close stops every subscription and drops the backlog
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for pattern, sub := range q.subscriptions {
		sub.cancel()
		delete(q.subscriptions, pattern)
	}
	q.backlog = nil
	q.closed = true
	return nil
}

// PendingCount returns how many messages wait for a subscriber
func (q *MemoryQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}
