package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher delivers a serialized summary to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

// Broadcast JSON-encodes v and publishes it to every subject. Failures are logged
// and never returned: a state change has already been committed when it runs.
func Broadcast(ctx context.Context, p Publisher, v any, subjects ...string) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode notification", "error", err)
		return
	}
	for _, subject := range subjects {
		if err := p.Publish(ctx, subject, payload); err != nil {
			slog.Warn("Failed to publish notification", "subject", subject, "error", err)
		}
	}
}

// NATSPublisher publishes core NATS messages.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url. The connection reconnects
// on its own; publishes during an outage are buffered by the client.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("tableside"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("Reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	return p.conn.Publish(subject, payload)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// LogPublisher logs notifications instead of delivering them. Used when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	slog.Debug("Notification", "subject", subject, "payload", string(payload))
	return nil
}

func (LogPublisher) Close() error {
	return nil
}

// Message is one recorded publish.
type Message struct {
	Subject string
	Payload []byte
}

// Recorder keeps every published message in memory, for tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Publish(ctx context.Context, subject string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Subject: subject, Payload: append([]byte(nil), payload...)})
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Subject returns the messages published to subject.
func (r *Recorder) Subject(subject string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}
