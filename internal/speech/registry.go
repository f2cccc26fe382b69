package speech

import (
	"time"

	"github.com/VamshiS123/visionv/internal/similarity"
)

// spokenRegistry maps normalized utterance text to the time it was spoken,
// for duplicate suppression within a rolling window. Entries older than twice
// the window are pruned on every Record call.
//
// Not safe for concurrent use on its own; the scheduler guards it.
type spokenRegistry struct {
	window  time.Duration
	entries map[string]time.Time
}

func newSpokenRegistry(window time.Duration) *spokenRegistry {
	return &spokenRegistry{
		window:  window,
		entries: make(map[string]time.Time),
	}
}

// Record stores text as spoken at now and prunes stale entries.
func (r *spokenRegistry) Record(text string, now time.Time) {
	key := similarity.Normalize(text)
	if key == "" {
		return
	}
	r.entries[key] = now

	cutoff := now.Add(-2 * r.window)
	for k, ts := range r.entries {
		if ts.Before(cutoff) {
			delete(r.entries, k)
		}
	}
}

// RecentlySpoken reports whether text matches any utterance spoken within the
// dedupe window: exact normalized match, lexical similarity, or a
// near-duplicate variant.
func (r *spokenRegistry) RecentlySpoken(text string, now time.Time) bool {
	key := similarity.Normalize(text)
	if key == "" {
		return false
	}

	cutoff := now.Add(-r.window)
	for spoken, ts := range r.entries {
		if ts.Before(cutoff) {
			continue
		}
		if spoken == key {
			return true
		}
		if similarity.IsLexicallySimilar(spoken, key, 0) {
			return true
		}
		if similarity.NearDuplicate(spoken, key) {
			return true
		}
	}
	return false
}

// Len returns the number of retained entries. Intended for tests.
func (r *spokenRegistry) Len() int {
	return len(r.entries)
}
