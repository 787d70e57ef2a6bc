// Package app contains the application setup for the storefront.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/partsfinder/internal/gateway"
	"github.com/abgdnv/partsfinder/internal/storefront/config"
	"github.com/abgdnv/partsfinder/internal/storefront/service"
	"github.com/abgdnv/partsfinder/internal/storefront/subscriber"
	"github.com/abgdnv/partsfinder/internal/storefront/transport/rest"
	"github.com/abgdnv/partsfinder/pkg/messaging"
	natsclient "github.com/abgdnv/partsfinder/pkg/nats"
	"github.com/abgdnv/partsfinder/pkg/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const ServiceName = "storefront"

type Dependencies struct {
	Sessions  *service.Sessions
	NatsConn  *nats.Conn
	JetStream jetstream.JetStream
	Logger    *slog.Logger
}

// SetupDependencies builds the catalog gateway and the session registry.
// Events go to JetStream when NATS is enabled and are dropped otherwise.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	gw := gateway.NewHTTPClient(cfg.Gateway, logger)

	var (
		publisher messaging.Publisher = messaging.NopPublisher{}
		nc        *nats.Conn
		js        jetstream.JetStream
	)
	if cfg.NATS.Enabled {
		var err error
		nc, err = natsclient.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
		if err != nil {
			return nil, err
		}
		js, err = natsclient.NewJetStreamContext(nc)
		if err != nil {
			return nil, err
		}
		if err := natsclient.EnsureStream(ctx, js, cfg.NATS.Stream, messaging.CatalogSubjects); err != nil {
			nc.Close()
			return nil, err
		}
		publisher = natsclient.NewNatsPublisher(js, cfg.NATS.Stream)
		logger.Info("Publishing catalog events", "stream", cfg.NATS.Stream)
	}

	return &Dependencies{
		Sessions:  service.NewSessions(gw, publisher, cfg.Search.Debounce, logger),
		NatsConn:  nc,
		JetStream: js,
		Logger:    logger,
	}, nil
}

// StartSubscriber follows catalog events and refreshes the directory of every session.
// It blocks until ctx is done and is a no-op when NATS is disabled.
func (d *Dependencies) StartSubscriber(ctx context.Context, cfg *config.Config) error {
	if d.JetStream == nil {
		return nil
	}
	return subscriber.Start(ctx, d.JetStream, cfg.NATS.Stream, messaging.CatalogSubjects, cfg.Subscriber, d.Sessions, d.Logger)
}

// Close cancels pending searches and drains the NATS connection.
func (d *Dependencies) Close() error {
	d.Sessions.CloseAll()
	if d.NatsConn == nil {
		return nil
	}
	if err := d.NatsConn.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// SetupHttpHandler initializes the routes for the storefront.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	var checks []rest.ReadinessCheck
	if deps.NatsConn != nil {
		nc := deps.NatsConn
		checks = append(checks, rest.ReadinessCheck{
			Name: "nats",
			Check: func(context.Context) error {
				if !nc.IsConnected() {
					return errors.New("nats is not connected")
				}
				return nil
			},
		})
	}
	mux := server.NewChiRouter(deps.Logger)
	rest.NewHandler(deps.Sessions, deps.Logger, checks...).RegisterRoutes(mux)
	return mux
}

// SetupHttpServer creates and configures an HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, ServiceName, SetupHttpHandler(deps))
}
