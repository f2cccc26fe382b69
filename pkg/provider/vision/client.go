// Package vision defines the client abstraction for the upstream vision
// service that produces raw scene descriptions.
//
// The service observes a video feed and emits short natural-language
// descriptions with a priority hint. How frames are captured and analysed is
// entirely the service's concern; visionv only consumes the description
// stream.
package vision

import (
	"context"
	"time"

	"github.com/VamshiS123/visionv/pkg/narration"
)

// Description is one raw scene description delivered by the vision service.
type Description struct {
	// Text is the natural-language description. May need trimming.
	Text string

	// Priority is the urgency hint assigned upstream.
	Priority narration.Priority

	// ReceivedAt is when the client received the message.
	ReceivedAt time.Time
}

// Handler consumes a single description. Handlers must not block for long;
// they run on the client's receive loop.
type Handler func(Description)

// Client streams scene descriptions from a vision service.
type Client interface {
	// Stream connects to the service and delivers every description to
	// handler until ctx is cancelled. Transport implementations reconnect on
	// connection drops; Stream returns nil on ctx cancellation and an error
	// only when the connection cannot be (re-)established.
	Stream(ctx context.Context, handler Handler) error
}
