// Package websocket implements the vision.Client interface over a WebSocket
// connection.
//
// The vision service sends one JSON object per message:
//
//	{"text": "a person walking down the street", "priority": "medium"}
//
// Malformed frames are skipped. Dropped connections are re-established with
// exponential backoff; the backoff resets after every successful connect.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/VamshiS123/visionv/pkg/narration"
	"github.com/VamshiS123/visionv/pkg/provider/vision"
)

// Compile-time assertion that Client satisfies the vision interface.
var _ vision.Client = (*Client)(nil)

// Default reconnection parameters.
const (
	defaultMaxRetries = 10
	defaultBackoff    = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

// ErrMaxRetries is returned by Stream when the connection could not be
// re-established after the configured number of consecutive attempts.
var ErrMaxRetries = errors.New("vision: max reconnect attempts reached")

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBackoff sets the initial and maximum reconnect backoff. Non-positive
// values keep the defaults.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.backoff = min
		}
		if max > 0 {
			c.maxBackoff = max
		}
	}
}

// WithMaxRetries sets the number of consecutive failed connection attempts
// tolerated before Stream gives up. Defaults to 10.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client implements vision.Client over a WebSocket connection.
type Client struct {
	url        string
	log        *slog.Logger
	backoff    time.Duration
	maxBackoff time.Duration
	maxRetries int
}

// New creates a Client for the given WebSocket URL.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		log:        slog.Default(),
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
		maxRetries: defaultMaxRetries,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wireMessage is the JSON payload sent by the vision service.
type wireMessage struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// Stream implements vision.Client.
func (c *Client) Stream(ctx context.Context, handler vision.Handler) error {
	backoff := c.backoff
	failures := 0

	for {
		conn, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if failures >= c.maxRetries {
				return fmt.Errorf("%w: %d attempts, last error: %v", ErrMaxRetries, failures, err)
			}
			c.log.Warn("vision connect failed, retrying",
				"url", c.url, "attempt", failures, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		c.log.Info("vision stream connected", "url", c.url)
		failures = 0
		backoff = c.backoff

		err = c.receive(ctx, conn, handler)
		conn.Close(websocket.StatusNormalClosure, "stream closed")
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("vision stream dropped, reconnecting", "url", c.url, "error", err)
	}
}

// receive reads frames until the connection drops or ctx is cancelled.
func (c *Client) receive(ctx context.Context, conn *websocket.Conn, handler vision.Handler) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Skip malformed frames.
			c.log.Debug("skipping malformed vision frame", "error", err)
			continue
		}
		if msg.Text == "" {
			continue
		}

		handler(vision.Description{
			Text:       msg.Text,
			Priority:   narration.ParsePriority(msg.Priority),
			ReceivedAt: time.Now(),
		})
	}
}
