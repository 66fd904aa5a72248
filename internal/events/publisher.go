// Package events publishes device entry and exit audit events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
)

// Event types.
const (
	TypeCheckedIn  = "device.checked_in"
	TypeCheckedOut = "device.checked_out"
	TypeRegistered = "device.registered"
)

// Event is a device lifecycle audit record.
type Event struct {
	Type     string    `json:"type"`
	Kind     string    `json:"kind"`
	DeviceID string    `json:"device_id"`
	At       time.Time `json:"at"`
}

// Publisher emits audit events. Publishing is best-effort from the
// registry's point of view; a failed publish never blocks the operation
// that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	TopicName string
}

// PubSubPublisher publishes audit events to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPubSubPublisher creates a new Pub/Sub audit event publisher.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
	}, nil
}

// Publish sends the event and waits for server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type": event.Type,
			"kind": event.Kind,
		},
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close stops the publisher and releases the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// NopPublisher discards events. Used when auditing is not configured and
// in tests.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Ensure implementations satisfy Publisher.
var (
	_ Publisher = (*PubSubPublisher)(nil)
	_ Publisher = NopPublisher{}
)
