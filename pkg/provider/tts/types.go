package tts

import (
	"context"
	"fmt"
	"io"
)

// Voice holds the synthesis parameters sent with every request.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Format is the provider-specific audio output format
	// (e.g., "pcm_16000" for ElevenLabs, "pcm" for OpenAI).
	Format string

	// SampleRate is the output sample rate in Hz.
	SampleRate int

	// Pitch adjusts pitch in the range [-10, +10]. 0 means default.
	Pitch float64

	// Rate adjusts speaking rate in the range [0.5, 2.0]. 0 means default.
	Rate float64
}

// Request is a single synthesis request.
type Request struct {
	// Text is the utterance to synthesize. Must be non-empty.
	Text string

	// Voice selects the voice and audio parameters.
	Voice Voice
}

// ReaderResource adapts an open response body into a [Resource]. Fetch drains
// the reader while watching ctx; Close releases it unread.
type ReaderResource struct {
	rc io.ReadCloser
}

// NewReaderResource wraps rc. Ownership of rc transfers to the resource.
func NewReaderResource(rc io.ReadCloser) *ReaderResource {
	return &ReaderResource{rc: rc}
}

// Fetch implements [Resource].
func (r *ReaderResource) Fetch(ctx context.Context) ([]byte, error) {
	if r.rc == nil {
		return nil, fmt.Errorf("tts: resource already consumed")
	}
	rc := r.rc
	r.rc = nil
	defer rc.Close()

	// Interrupt the read when ctx is cancelled mid-transfer.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			rc.Close()
		case <-stop:
		}
	}()

	data, err := io.ReadAll(rc)
	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("tts: fetch audio: %w", cerr)
	}
	if err != nil {
		return nil, fmt.Errorf("tts: fetch audio: %w", err)
	}
	return data, nil
}

// Close implements [Resource].
func (r *ReaderResource) Close() error {
	if r.rc == nil {
		return nil
	}
	rc := r.rc
	r.rc = nil
	return rc.Close()
}
