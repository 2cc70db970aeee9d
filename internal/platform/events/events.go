// Package events wraps the NATS connection the daemon listens on.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ErrNotConnected is reported by Ready while the connection is down.
var ErrNotConnected = errors.New("event bus not connected")

const (
	maxReconnects = 60
	reconnectWait = 2 * time.Second
)

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *zerolog.Logger
}

func NewClient(url, token string, logger *zerolog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("Event bus disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("Event bus reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	c.subs = append(c.subs, sub)
	c.logger.Info().Str("subject", subject).Msg("Subscribed")

	return nil
}

// IsConnected reports whether the underlying connection is currently up.
// A reconnecting client keeps buffering publishes, so this only gates readiness.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Ready implements observability.ReadyChecker.
func (c *Client) Ready(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}

	c.conn.Close()
}
