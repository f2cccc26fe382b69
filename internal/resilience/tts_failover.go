package resilience

import (
	"context"

	"github.com/VamshiS123/visionv/pkg/provider/tts"
)

// TTSFailover implements [tts.Provider] with automatic failover across
// multiple TTS backends. Each backend has its own circuit breaker, so the
// narration keeps its voice as long as any configured backend is healthy.
type TTSFailover struct {
	chain *FallbackChain[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFailover)(nil)

// NewTTSFailover creates a [TTSFailover] with primary as the preferred
// backend. cb configures the per-backend circuit breakers.
func NewTTSFailover(primary tts.Provider, primaryName string, cb CircuitBreakerConfig) *TTSFailover {
	return &TTSFailover{
		chain: NewFallbackChain(primaryName, primary, cb),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFailover) AddFallback(name string, provider tts.Provider) {
	f.chain.Add(name, provider)
}

// Synthesize submits the request to the first healthy backend. Only the
// synthesis call is covered by failover; a later Fetch failure on the
// returned resource is the caller's responsibility.
func (f *TTSFailover) Synthesize(ctx context.Context, req tts.Request) (tts.Resource, error) {
	return Try(f.chain, func(p tts.Provider) (tts.Resource, error) {
		return p.Synthesize(ctx, req)
	})
}
