// Package mock provides a test double for the vision.Client interface.
//
// Use Client to feed scripted descriptions into the narration pipeline:
//
//	c := mock.New()
//	go c.Stream(ctx, handler)
//	c.Emit(vision.Description{Text: "a person at the door"})
package mock

import (
	"context"
	"sync"

	"github.com/VamshiS123/visionv/pkg/provider/vision"
)

// Compile-time interface assertion.
var _ vision.Client = (*Client)(nil)

// Client is a mock vision.Client driven by the test via [Client.Emit].
type Client struct {
	// StreamErr, if non-nil, is returned from Stream immediately.
	StreamErr error

	mu      sync.Mutex
	ch      chan vision.Description
	started bool
}

// New creates a mock client.
func New() *Client {
	return &Client{ch: make(chan vision.Description, 16)}
}

// Stream implements vision.Client. It delivers every emitted description to
// handler until ctx is cancelled.
func (c *Client) Stream(ctx context.Context, handler vision.Handler) error {
	if c.StreamErr != nil {
		return c.StreamErr
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-c.ch:
			handler(d)
		}
	}
}

// Emit queues a description for delivery to the active stream handler.
func (c *Client) Emit(d vision.Description) {
	c.ch <- d
}

// Started reports whether Stream has been called.
func (c *Client) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}
