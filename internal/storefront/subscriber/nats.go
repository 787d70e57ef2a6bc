// Package subscriber follows catalog events on JetStream and keeps open sessions' directories current.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/partsfinder/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// Refresher reloads the working set of every open search session.
type Refresher interface {
	RefreshDirectory(ctx context.Context) error
}

// ackableMsg is the part of jetstream.Msg the worker uses.
type ackableMsg interface {
	Subject() string
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// catalogEvent carries the field every catalog event shares.
type catalogEvent struct {
	StoreID int64 `json:"store_id"`
}

// Start creates the durable consumer on stream for subject and runs cfg.Workers workers until ctx is done.
func Start(ctx context.Context, js jetstream.JetStream, stream, subject string, cfg config.SubscriberConfig, refresher Refresher, logger *slog.Logger) error {
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		FilterSubject: subject,
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}
	logger = logger.With("component", "subscriber", "consumer", cfg.Consumer)
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg.Timeout, cfg.Interval, refresher, logger)
		})
	}
	return g.Wait()
}

// runWorker fetches one message at a time and handles it.
func runWorker(ctx context.Context, consumer jetstream.Consumer, timeout, interval time.Duration, refresher Refresher, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.Error("Failed to fetch messages", "error", err)
				time.Sleep(interval)
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, refresher, logger)
			}
		}
	}
}

// handleMessage refreshes the directory for a catalog event.
// Undecodable payloads are terminated; a failed refresh is redelivered.
func handleMessage(ctx context.Context, msg ackableMsg, refresher Refresher, logger *slog.Logger) {
	if msg == nil {
		logger.Error("Received nil message")
		return
	}
	var event catalogEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("Failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Term(); err != nil {
			logger.Error("Failed to terminate message", "error", err)
		}
		return
	}

	if err := refresher.RefreshDirectory(ctx); err != nil {
		logger.Warn("Directory refresh failed", "error", err, "subject", msg.Subject(), "store_id", event.StoreID)
		if err := msg.Nak(); err != nil {
			logger.Error("Failed to nack message", "error", err)
		}
		return
	}
	logger.Debug("Directory refreshed after catalog event", "subject", msg.Subject(), "store_id", event.StoreID)

	if err := msg.Ack(); err != nil {
		logger.Error("Failed to ack message", "error", err)
	}
}
