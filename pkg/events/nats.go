package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the connection events are forwarded over
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the configuration used when only a URL is given
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "gameclock.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// msgPublisher is the part of *nats.Conn the forwarder needs
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSForwarder republishes game events on NATS subjects of the form
// <prefix>.<game id>.<event type>.
type NATSForwarder struct {
	conn   msgPublisher
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNATSForwarder connects to NATS
func NewNATSForwarder(cfg NATSConfig, logger *zap.Logger) (*NATSForwarder, error) {
	opts := []nats.Option{
		nats.Name("gameclock"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	f := newNATSForwarder(nc, cfg.SubjectPrefix, logger)
	f.nc = nc
	return f, nil
}

func newNATSForwarder(conn msgPublisher, prefix string, logger *zap.Logger) *NATSForwarder {
	return &NATSForwarder{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
	}
}

// Attach forwards every event published on p
func (f *NATSForwarder) Attach(p *Publisher) {
	p.SubscribeAll(func(event Event) {
		if err := f.Forward(event); err != nil {
			f.logger.Error("failed to forward event",
				zap.String("type", string(event.Type)),
				zap.String("game_id", event.GameID),
				zap.Error(err),
			)
		}
	})
}

// Subject returns the subject an event is published on
func (f *NATSForwarder) Subject(event Event) string {
	gameID := event.GameID
	if gameID == "" {
		gameID = "system"
	}
	return fmt.Sprintf("%s.%s.%s", f.prefix, gameID, strings.ToLower(string(event.Type)))
}

// Forward publishes a single event
func (f *NATSForwarder) Forward(event Event) error {
	env := map[string]any{
		"eventType": event.Type,
		"gameId":    event.GameID,
		"timestamp": time.Now().UTC(),
		"payload":   event.Payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: f.Subject(event),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(event.Type)},
			"Game-ID":    []string{event.GameID},
		},
	}
	if err := f.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}
	return nil
}

// Close drains the connection
func (f *NATSForwarder) Close() error {
	if f.nc == nil {
		return nil
	}
	return f.nc.Drain()
}
