// Package events publishes lifecycle notifications (user and post
// creation/deletion) to an external broker. Publishing happens
// synchronously inside the request that caused the event; failures are
// logged by the caller and never retried, and nothing in this process
// consumes the stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goblog/apiserver/config"
)

// Event names emitted by the services layer.
const (
	UserCreated = "user.created"
	UserDeleted = "user.deleted"
	PostCreated = "post.created"
)

// Event is the payload published for a lifecycle notification.
type Event struct {
	Name string `json:"name"`
	// Subject identifies the affected entity: a username for user events,
	// a post id (decimal string) for post events.
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New selects and constructs the configured publisher. An unset or "none"
// backend yields a no-op publisher.
func New(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return NopPublisher{}, nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg)
	case "pubsub":
		return NewPubSubPublisher(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

func encode(event Event) ([]byte, map[string]string, error) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{"event": event.Name}
	return data, attrs, nil
}
