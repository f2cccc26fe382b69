package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackChain] fails or
// has an open circuit breaker.
var ErrAllFailed = errors.New("all backends failed")

// chainEntry pairs a backend with its dedicated circuit breaker.
type chainEntry[T any] struct {
	name    string
	backend T
	breaker *CircuitBreaker
}

// FallbackChain holds a primary backend and zero or more fallbacks of the
// same type, tried in registration order. Every backend gets its own circuit
// breaker, so a backend that keeps failing is skipped instead of paying its
// timeout on every request. Built for the synthesis path, where a dead TTS
// backend would otherwise silence narration.
//
// Register all backends before first use; afterwards the chain is safe for
// concurrent use.
type FallbackChain[T any] struct {
	log     *slog.Logger
	cb      CircuitBreakerConfig
	entries []chainEntry[T]
}

// NewFallbackChain creates a chain with primary as the preferred backend.
// cb configures the circuit breaker created for each backend.
func NewFallbackChain[T any](name string, primary T, cb CircuitBreakerConfig) *FallbackChain[T] {
	c := &FallbackChain[T]{
		log: slog.Default(),
		cb:  cb,
	}
	c.Add(name, primary)
	return c
}

// Add appends a fallback backend. Fallbacks are tried in the order added,
// after the primary.
func (c *FallbackChain[T]) Add(name string, backend T) {
	cbCfg := c.cb
	cbCfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		backend: backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// SetLogger replaces the chain's logger. A nil log is ignored.
func (c *FallbackChain[T]) SetLogger(log *slog.Logger) {
	if log != nil {
		c.log = log
	}
}

// Try runs fn against each backend in the chain until one succeeds, skipping
// backends whose breaker is open. It returns [ErrAllFailed] wrapped with the
// last error when no backend can serve. A package-level function because Go
// does not support method-level type parameters.
func Try[T, R any](c *FallbackChain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.backend)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			c.log.Debug("skipping backend, circuit open", "backend", entry.name)
		} else {
			c.log.Warn("backend failed, trying next",
				"backend", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
