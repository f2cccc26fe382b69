// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or the
// OpenAI speech API) and presents a uniform two-step interface: Synthesize
// submits the request and validates the backend response, and the returned
// [Resource] fetches the actual audio bytes. The split mirrors how the speech
// scheduler consumes synthesis: a cancellation may arrive between the two
// steps, in which case the resource is released without being fetched.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize submits req to the backend and returns a handle to the
	// synthesized audio. A non-2xx status or a malformed response (missing
	// audio reference) is a synthesis failure and returns an error.
	//
	// The caller must either Fetch or Close the returned resource.
	Synthesize(ctx context.Context, req Request) (Resource, error)
}

// Resource is a reference to a synthesized audio clip that has not
// necessarily been downloaded yet.
type Resource interface {
	// Fetch downloads and returns the audio bytes. Fetch may be called at
	// most once; it releases the underlying resource on return. It honours
	// ctx cancellation mid-transfer.
	Fetch(ctx context.Context) ([]byte, error)

	// Close releases the resource without fetching. Safe to call after
	// Fetch or multiple times.
	Close() error
}
