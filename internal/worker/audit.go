// Package worker consumes device audit events from Pub/Sub and records them.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/lobbylog/lobbylog/internal/events"
)

// EventRecorder persists a single audit event.
type EventRecorder interface {
	Record(ctx context.Context, event events.Event) error
}

// AuditSubscriber receives device audit events from a Pub/Sub subscription
// and writes them to the audit log.
type AuditSubscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	recorder         EventRecorder
	logger           zerolog.Logger
}

// AuditSubscriberConfig holds configuration for the audit subscriber.
type AuditSubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Recorder         EventRecorder
	Logger           zerolog.Logger
}

// NewAuditSubscriber creates a new audit subscriber.
func NewAuditSubscriber(ctx context.Context, cfg AuditSubscriberConfig) (*AuditSubscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &AuditSubscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		recorder:         cfg.Recorder,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing audit events. It blocks until ctx is cancelled.
func (s *AuditSubscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting audit subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := s.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		err := s.processEvent(ctx, msg.Data)
		switch {
		case err == nil:
			msg.Ack()
		case isMalformed(err):
			// Redelivery cannot repair a malformed payload.
			logger.Error().Err(err).Msg("discarding malformed audit event")
			msg.Ack()
		default:
			logger.Error().Err(err).Msg("recording audit event failed")
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (s *AuditSubscriber) Close() error {
	return s.client.Close()
}

// malformedError marks payloads that can never be processed.
type malformedError struct{ err error }

func (e malformedError) Error() string { return e.err.Error() }
func (e malformedError) Unwrap() error { return e.err }

func isMalformed(err error) bool {
	_, ok := err.(malformedError) //nolint:errorlint // set only by processEvent, never wrapped
	return ok
}

// processEvent parses and records a single audit event payload.
func (s *AuditSubscriber) processEvent(ctx context.Context, data []byte) error {
	var event events.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return malformedError{fmt.Errorf("parse event: %w", err)}
	}
	if event.Type == "" || event.DeviceID == "" {
		return malformedError{fmt.Errorf("event missing type or device id")}
	}

	s.logger.Info().
		Str("event_type", event.Type).
		Str("device_kind", event.Kind).
		Str("device_id", event.DeviceID).
		Time("at", event.At).
		Msg("device audit event")

	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}
