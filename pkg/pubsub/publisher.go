package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// VideoEventPublisher wraps the video topic publisher with the JSON envelope
// used on the wire.
type VideoEventPublisher struct {
	pub *pubsub.Publisher
}

// VideoEventPublisher returns a publisher bound to the configured video topic.
func (c *Client) VideoEventPublisher() *VideoEventPublisher {
	pub := c.VideoPublisher()
	if pub == nil {
		return nil
	}
	return &VideoEventPublisher{pub: pub}
}

// PublishVideoSubmitted publishes the event and waits for the server ack.
func (p *VideoEventPublisher) PublishVideoSubmitted(ctx context.Context, event VideoSubmittedEvent) error {
	if p == nil || p.pub == nil {
		return errors.New("video publisher not configured")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	res := p.pub.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": event.Event},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publishing %s: %w", event.Event, err)
	}
	return nil
}
