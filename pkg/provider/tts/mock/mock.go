// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to feed controlled audio bytes to the speech scheduler and to
// verify the requests issued to the backend:
//
//	p := &mock.Provider{Audio: []byte("pcm")}
//	res, _ := p.Synthesize(ctx, req)
//	data, _ := res.Fetch(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/VamshiS123/visionv/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is the byte payload returned by every synthesized resource.
	Audio []byte

	// SynthesizeErr, if non-nil, is returned from Synthesize.
	SynthesizeErr error

	// FetchErr, if non-nil, is returned from Resource.Fetch.
	FetchErr error

	// Block, if non-nil, is received from inside Synthesize before
	// returning. Close it to release blocked calls. Used to simulate
	// in-flight synthesis.
	Block chan struct{}

	requests []tts.Request
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Resource, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	block := p.Block
	synthErr := p.SynthesizeErr
	fetchErr := p.FetchErr
	audio := p.Audio
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if synthErr != nil {
		return nil, synthErr
	}
	return &resource{audio: audio, fetchErr: fetchErr}, nil
}

// Requests returns a copy of all synthesis requests seen so far.
func (p *Provider) Requests() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tts.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Texts returns the text of every synthesis request, in order.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.requests))
	for i, r := range p.requests {
		out[i] = r.Text
	}
	return out
}

// resource is the mock tts.Resource.
type resource struct {
	audio    []byte
	fetchErr error
	closed   bool
}

func (r *resource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := make([]byte, len(r.audio))
	copy(out, r.audio)
	return out, nil
}

func (r *resource) Close() error {
	r.closed = true
	return nil
}
