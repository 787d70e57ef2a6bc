package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/partsfinder/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

var _ messaging.Publisher = (*NatsPublisher)(nil)

// NatsPublisher publishes events to one JetStream stream and waits for the stream's ack.
type NatsPublisher struct {
	js     jetstream.JetStream
	stream string
}

func NewNatsPublisher(js jetstream.JetStream, stream string) *NatsPublisher {
	return &NatsPublisher{js: js, stream: stream}
}

// Publish fails when the subject is not captured by the configured stream.
func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	subject := event.Subject()
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithExpectStream(p.stream)); err != nil {
		return fmt.Errorf("failed to publish %s to stream %s: %w", subject, p.stream, err)
	}
	return nil
}
