package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/rollover"
)

// EventPublisher publishes day-rollover summaries to NATS JetStream for
// downstream consumers (dashboards, household aggregation). Publishing is
// best effort: a failed publish is logged, never retried, and never blocks
// the rollover.
type EventPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewEventPublisher connects to NATS and prepares a JetStream context.
func NewEventPublisher(cfg config.EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("event publishing is disabled")
	}

	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	slog.Info("Event publisher initialized",
		logfields.Component("events"),
		slog.String("url", cfg.NATSURL),
		slog.String("subject", cfg.Subject))

	return &EventPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Publish sends one rollover event.
func (p *EventPublisher) Publish(ev rollover.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Marshal rollover event failed",
			logfields.Component("events"), logfields.Error(err))
		return
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		slog.Warn("Publish rollover event failed",
			logfields.Component("events"),
			logfields.Date(ev.Date),
			logfields.Error(err))
		return
	}
	slog.Debug("Published rollover event",
		logfields.Component("events"), logfields.Date(ev.Date))
}

// Close closes the NATS connection.
func (p *EventPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
