// Package oto provides a local audio device Player backed by ebitengine/oto.
// It implements the audio.Player interface for signed 16-bit little-endian
// mono PCM.
package oto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/VamshiS123/visionv/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Player = (*Player)(nil)

// pollInterval is how often an active playback checks whether the device has
// drained the clip.
const pollInterval = 10 * time.Millisecond

// Player is an audio.Player that renders PCM through the system audio device.
type Player struct {
	ctx *oto.Context
}

// New initialises the system audio context for the given sample rate and
// returns a Player. Returns an error when the audio device is unavailable.
func New(sampleRate int) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("oto: sampleRate must be positive")
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("oto: init audio context: %w", err)
	}
	<-ready

	return &Player{ctx: ctx}, nil
}

// Play starts playback of pcm and returns a handle for the in-flight clip.
func (p *Player) Play(ctx context.Context, pcm []byte) (audio.Playback, error) {
	if len(pcm) == 0 {
		return nil, errors.New("oto: empty PCM clip")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}

	dev := p.ctx.NewPlayer(bytes.NewReader(pcm))
	pb := &playback{
		dev:  dev,
		done: make(chan error, 1),
	}
	dev.Play()

	go pb.watch()
	return pb, nil
}

// playback tracks one clip on the device.
type playback struct {
	dev  *oto.Player
	done chan error

	mu      sync.Mutex
	stopped bool
	closed  bool
}

// watch polls the device until the clip drains, then releases it and signals
// completion exactly once.
func (pb *playback) watch() {
	for pb.Playing() {
		time.Sleep(pollInterval)
	}
	pb.finish(nil)
}

func (pb *playback) finish(err error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.closed {
		return
	}
	pb.closed = true
	if cerr := pb.dev.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("oto: close device player: %w", cerr)
	}
	pb.done <- err
	close(pb.done)
}

// Done implements audio.Playback.
func (pb *playback) Done() <-chan error {
	return pb.done
}

// Playing implements audio.Playback.
func (pb *playback) Playing() bool {
	pb.mu.Lock()
	if pb.stopped || pb.closed {
		pb.mu.Unlock()
		return false
	}
	pb.mu.Unlock()
	return pb.dev.IsPlaying()
}

// Stop implements audio.Playback. It pauses the device so the watcher sees a
// non-playing clip and releases it.
func (pb *playback) Stop() {
	pb.mu.Lock()
	if pb.stopped || pb.closed {
		pb.mu.Unlock()
		return
	}
	pb.stopped = true
	pb.mu.Unlock()

	pb.dev.Pause()
}
