// Package queue carries forecast events to downstream consumers over NATS
// JetStream, Redis Streams, Kafka or an in-process channel.
package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject
	Publish(ctx context.Context, subject string, data []byte) error

	// Close flushes pending messages and closes the connection
	Close() error
}

// Subscriber receives messages from a queue
type Subscriber interface {
	// Subscribe registers a handler for every subject matching pattern.
	// Patterns use NATS tokens: "*" matches one token, a trailing ">"
	// matches the rest.
	Subscribe(pattern string, handler MessageHandler) error

	// Unsubscribe removes the handler registered for pattern
	Unsubscribe(pattern string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles one delivered message
type MessageHandler func(subject string, data []byte) error

// Queue combines Publisher and Subscriber
type Queue interface {
	Publisher
	Subscriber
}
