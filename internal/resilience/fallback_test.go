package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestTryPrimarySuccess(t *testing.T) {
	c := NewFallbackChain("primary", "primary", CircuitBreakerConfig{MaxFailures: 3})
	c.Add("secondary", "secondary")

	result, err := Try(c, func(v string) (string, error) {
		return "from-" + v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-primary" {
		t.Fatalf("result = %q, want from-primary", result)
	}
}

func TestTryFailsOver(t *testing.T) {
	c := NewFallbackChain("primary", "primary", CircuitBreakerConfig{MaxFailures: 3})
	c.Add("secondary", "secondary")

	result, err := Try(c, func(v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return "from-" + v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-secondary" {
		t.Fatalf("result = %q, want from-secondary", result)
	}
}

func TestTryAllFail(t *testing.T) {
	c := NewFallbackChain("primary", "primary", CircuitBreakerConfig{MaxFailures: 3})
	c.Add("secondary", "secondary")

	_, err := Try(c, func(string) (string, error) {
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTrySkipsOpenBreaker(t *testing.T) {
	c := NewFallbackChain("primary", "primary", CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})
	c.Add("secondary", "secondary")

	// Fail the primary enough to open its breaker.
	for i := 0; i < 2; i++ {
		_, _ = Try(c, func(v string) (string, error) {
			if v == "primary" {
				return "", errTest
			}
			return v, nil
		})
	}

	var tried []string
	result, err := Try(c, func(v string) (string, error) {
		tried = append(tried, v)
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "secondary" {
		t.Fatalf("result = %q, want secondary", result)
	}
	if len(tried) != 1 || tried[0] != "secondary" {
		t.Fatalf("tried = %v, want only secondary while primary circuit is open", tried)
	}
}
