// Package audio defines the playback abstraction for the single narration
// output channel.
//
// The two abstractions are:
//
//   - [Player] — starts playback of a synthesized audio clip.
//   - [Playback] — an in-flight clip: completion signal, playing state, stop.
//
// Implementations are provided by adapter packages (audio/oto for a local
// device, audio/mock for tests). The interfaces are intentionally narrow so
// the speech scheduler stays decoupled from device details.
package audio

import "context"

// Player starts playback of PCM audio on an output device.
//
// Implementations must be safe for concurrent use, but callers are expected
// to keep at most one playback active at a time; the speech scheduler
// enforces this.
type Player interface {
	// Play begins playback of the given PCM clip and returns once playback
	// has started. The returned Playback reports completion and supports
	// early stopping. Play returns an error when the device rejects the clip.
	Play(ctx context.Context, pcm []byte) (Playback, error)
}

// Playback is a single in-flight audio clip.
type Playback interface {
	// Done returns a channel that receives exactly one value when playback
	// finishes: nil on natural end or stop, a non-nil error on device
	// failure. The channel is closed afterwards.
	Done() <-chan error

	// Playing reports whether audio is currently audible.
	Playing() bool

	// Stop halts playback and releases the underlying device resources.
	// Safe to call multiple times and after natural completion.
	Stop()
}
