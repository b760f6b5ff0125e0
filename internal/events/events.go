// Package events publishes domain events after successful mutations so
// other services (feeds, notifications) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types. Each is published on subject "social.<type>".
const (
	UserRegistered = "user.registered"
	UserFollowed   = "user.followed"
	UserUnfollowed = "user.unfollowed"
	UserDeleted    = "user.deleted"
	PostCreated    = "post.created"
	PostDeleted    = "post.deleted"
	CommentCreated = "comment.created"
	MessageSent    = "message.sent"
)

const subjectPrefix = "social."

// Event is the payload written to the bus.
type Event struct {
	Type    string    `json:"type"`
	ActorID string    `json:"actorId"`
	Subject string    `json:"subjectId,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// NATSPublisher publishes events to a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect dials NATS at url.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("socialnet-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(e.Type), data)
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}

// Subject returns the NATS subject an event type is published on.
func Subject(eventType string) string {
	return subjectPrefix + eventType
}
