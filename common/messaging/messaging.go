// Package messaging defines the broker-neutral message type and publisher
// contract used for dead-lettered webhook deliveries.
package messaging

import (
	"context"
	"time"
)

// Message is a payload published to a broker subject.
type Message struct {
	// Subject is the subject the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata is carried as message headers.
	Metadata map[string]string

	// Timestamp is when the message was created.
	Timestamp time.Time
}

// Publisher publishes messages durably and reports broker health.
type Publisher interface {
	// Publish sends msg and waits for the broker to acknowledge persistence.
	Publish(ctx context.Context, msg *Message) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Close releases the connection.
	Close() error
}

// PublishOption mutates a message before it is published.
type PublishOption func(*Message)

// WithHeader sets a header on the outgoing message.
func WithHeader(key, value string) PublishOption {
	return func(m *Message) {
		if m.Metadata == nil {
			m.Metadata = make(map[string]string)
		}
		m.Metadata[key] = value
	}
}

// NewMessage builds a message for subject with the given options applied.
func NewMessage(subject string, data []byte, opts ...PublishOption) *Message {
	m := &Message{
		Subject:   subject,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
