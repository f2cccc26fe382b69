// Package mock provides test doubles for the audio.Player and audio.Playback
// interfaces.
//
// Use Player to observe which clips the scheduler plays and to drive
// completion manually:
//
//	p := &mock.Player{}
//	// ... scheduler plays something ...
//	p.Last().Finish(nil) // simulate natural playback end
package mock

import (
	"context"
	"sync"

	"github.com/VamshiS123/visionv/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Player   = (*Player)(nil)
	_ audio.Playback = (*Playback)(nil)
)

// Player is a mock audio.Player. Each Play call records the clip and returns
// a new [Playback] whose completion is controlled by the test.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned from Play instead of starting a clip.
	PlayErr error

	// AutoFinish, when true, completes each playback immediately on Play.
	AutoFinish bool

	playbacks []*Playback
	clips     [][]byte
}

// Play implements audio.Player.
func (p *Player) Play(_ context.Context, pcm []byte) (audio.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PlayErr != nil {
		return nil, p.PlayErr
	}

	clip := make([]byte, len(pcm))
	copy(clip, pcm)

	pb := &Playback{
		done:    make(chan error, 1),
		playing: true,
	}
	p.playbacks = append(p.playbacks, pb)
	p.clips = append(p.clips, clip)

	if p.AutoFinish {
		pb.Finish(nil)
	}
	return pb, nil
}

// PlayCount returns the number of Play invocations so far.
func (p *Player) PlayCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.playbacks)
}

// Last returns the most recent playback, or nil when nothing was played.
func (p *Player) Last() *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.playbacks) == 0 {
		return nil
	}
	return p.playbacks[len(p.playbacks)-1]
}

// Clips returns copies of all PCM clips passed to Play, in order.
func (p *Player) Clips() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.clips))
	copy(out, p.clips)
	return out
}

// ActiveCount returns the number of playbacks that are still playing.
// Useful for asserting the at-most-one-active invariant.
func (p *Player) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, pb := range p.playbacks {
		if pb.Playing() {
			n++
		}
	}
	return n
}

// Playback is a mock audio.Playback driven by the test.
type Playback struct {
	mu       sync.Mutex
	done     chan error
	playing  bool
	stopped  bool
	finished bool
}

// Done implements audio.Playback.
func (pb *Playback) Done() <-chan error {
	return pb.done
}

// Playing implements audio.Playback.
func (pb *Playback) Playing() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.playing
}

// Stop implements audio.Playback. A stopped playback completes with nil.
func (pb *Playback) Stop() {
	pb.mu.Lock()
	if pb.finished {
		pb.mu.Unlock()
		return
	}
	pb.stopped = true
	pb.mu.Unlock()
	pb.Finish(nil)
}

// Stopped reports whether Stop was called before completion.
func (pb *Playback) Stopped() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.stopped
}

// Finish completes the playback with err (nil for a natural end). Subsequent
// calls are no-ops.
func (pb *Playback) Finish(err error) {
	pb.mu.Lock()
	if pb.finished {
		pb.mu.Unlock()
		return
	}
	pb.finished = true
	pb.playing = false
	pb.mu.Unlock()

	pb.done <- err
	close(pb.done)
}
