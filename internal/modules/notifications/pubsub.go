package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// PubSubSink publishes messages as JSON to a Google Cloud Pub/Sub topic.
// A mailer subscribed to the topic does the actual email/SMS delivery.
type PubSubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    zerolog.Logger
}

// NewPubSubSink connects to projectID and publishes to topicID.
// Credentials come from opts or Application Default Credentials.
func NewPubSubSink(ctx context.Context, projectID, topicID string, log zerolog.Logger, opts ...option.ClientOption) (*PubSubSink, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if topicID == "" {
		return nil, errors.New("pubsub topic is required")
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &PubSubSink{
		client: client,
		topic:  client.Topic(topicID),
		log:    log.With().Str("component", "notification_pubsub_sink").Str("topic", topicID).Logger(),
	}, nil
}

// Name implements Sink
func (s *PubSubSink) Name() string { return "pubsub" }

// Deliver publishes msg and waits for the server id
func (s *PubSubSink) Deliver(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":    msg.Kind,
			"user_id": msg.UserID,
		},
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", msg.ID, err)
	}

	s.log.Debug().Str("notification_id", msg.ID).Str("server_id", serverID).Msg("Notification published")
	return nil
}

// Close flushes pending publishes and closes the client
func (s *PubSubSink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
