package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/VamshiS123/visionv/pkg/provider/tts"
	ttsmock "github.com/VamshiS123/visionv/pkg/provider/tts/mock"
)

func TestTTSFailoverPrimarySuccess(t *testing.T) {
	primary := &ttsmock.Provider{Audio: []byte("primary-audio")}
	secondary := &ttsmock.Provider{Audio: []byte("fallback-audio")}

	fb := NewTTSFailover(primary, "primary", CircuitBreakerConfig{MaxFailures: 3})
	fb.AddFallback("secondary", secondary)

	res, err := fb.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, err := res.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "primary-audio" {
		t.Errorf("audio = %q, want primary-audio", data)
	}
	if len(secondary.Requests()) != 0 {
		t.Error("secondary should not have been called")
	}
}

func TestTTSFailoverFallsBack(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{Audio: []byte("fallback-audio")}

	fb := NewTTSFailover(primary, "primary", CircuitBreakerConfig{MaxFailures: 3})
	fb.AddFallback("secondary", secondary)

	res, err := fb.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, err := res.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "fallback-audio" {
		t.Errorf("audio = %q, want fallback-audio", data)
	}
}

func TestTTSFailoverAllFail(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{SynthesizeErr: errors.New("secondary down")}

	fb := NewTTSFailover(primary, "primary", CircuitBreakerConfig{MaxFailures: 3})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Synthesize = %v, want ErrAllFailed", err)
	}
}

func TestTTSFailoverSkipsOpenBreaker(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{Audio: []byte("fallback-audio")}

	fb := NewTTSFailover(primary, "primary", CircuitBreakerConfig{MaxFailures: 1})
	fb.AddFallback("secondary", secondary)

	// First call trips the primary's breaker.
	if _, err := fb.Synthesize(context.Background(), tts.Request{Text: "one"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if _, err := fb.Synthesize(context.Background(), tts.Request{Text: "two"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	// The primary saw only the first request; the open breaker short-circuits
	// the second.
	if got := len(primary.Requests()); got != 1 {
		t.Errorf("primary requests = %d, want 1", got)
	}
	if got := len(secondary.Requests()); got != 2 {
		t.Errorf("secondary requests = %d, want 2", got)
	}
}
