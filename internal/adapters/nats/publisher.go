package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/config"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
)

// PublisherAdapter publishes order events on core NATS subjects "<prefix>.<event type>",
// e.g. "storefront.orders.created".
type PublisherAdapter struct {
	nc            *nats.Conn
	subjectPrefix string
	logger        domain.Logger
}

// NewPublisherAdapter connects to the configured NATS server.
func NewPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*PublisherAdapter, func(), error) {
	cfg := cfgProvider.Get()
	natsCfg := cfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)
	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher", cfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			appLogger.Error(ctx, "NATS error", "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			if err != nil {
				appLogger.Warn(ctx, "NATS disconnected", "error", err.Error())
			}
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}
	appLogger.Info(ctx, "Connected to NATS server", "url", nc.ConnectedUrl())

	adapter := NewPublisher(nc, natsCfg.SubjectPrefix, appLogger)
	cleanup := func() {
		adapter.Close()
	}
	return adapter, cleanup, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, subjectPrefix string, logger domain.Logger) *PublisherAdapter {
	if nc == nil {
		panic("nats connection cannot be nil in NewPublisher")
	}
	return &PublisherAdapter{nc: nc, subjectPrefix: subjectPrefix, logger: logger}
}

// Subject returns the subject an event type is published on.
func (a *PublisherAdapter) Subject(eventType string) string {
	return Subject(a.subjectPrefix, eventType)
}

// Subject joins prefix and eventType; an empty prefix leaves eventType as is.
func Subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// PublishOrderEvent implements domain.OrderEventPublisher.
func (a *PublisherAdapter) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	msg := nats.NewMsg(a.Subject(event.Type))
	msg.Data = payload
	if reqID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok && reqID != "" {
		msg.Header.Set("X-Request-ID", reqID)
	}
	if err := a.nc.PublishMsg(msg); err != nil {
		a.logger.Error(ctx, "Failed to publish order event", "subject", msg.Subject, "order_id", event.OrderID, "error", err.Error())
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	a.logger.Debug(ctx, "Published order event", "subject", msg.Subject, "order_id", event.OrderID)
	return nil
}

// Connected reports whether the connection is up. Used by the readiness probe.
func (a *PublisherAdapter) Connected() bool {
	return a.nc != nil && a.nc.IsConnected()
}

// Close drains and closes the NATS connection.
func (a *PublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, domain.OrderEvent) error { return nil }
