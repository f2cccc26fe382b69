// Package similarity provides the lexical text-comparison heuristics shared
// by the transition engine and the speech scheduler.
//
// All functions are pure and deterministic. The thresholds baked into the
// helpers (key words are tokens longer than three characters, 50% overlap
// for duplicate detection) are behaviour-defining for the narration pipeline
// and must not be tuned without evidence.
package similarity

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultPrefixLen is the prefix length used by [IsLexicallySimilar] when the
// caller passes a non-positive value.
const DefaultPrefixLen = 20

// nearDuplicateThreshold is the Jaro-Winkler score above which two strings
// are treated as the same utterance despite punctuation or casing drift.
const nearDuplicateThreshold = 0.95

// Score returns the Jaccard similarity of the whitespace-tokenized,
// lower-cased word sets of a and b, in [0,1]. Two empty strings score 0.
func Score(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// IsLexicallySimilar reports whether a and b are cheap duplicates of each
// other: either their first prefixLen characters match exactly, or more than
// half of their key words overlap. prefixLen values outside [15, 30] fall
// back to [DefaultPrefixLen].
func IsLexicallySimilar(a, b string, prefixLen int) bool {
	if prefixLen < 15 || prefixLen > 30 {
		prefixLen = DefaultPrefixLen
	}

	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return na == nb && na != ""
	}

	if prefix(na, prefixLen) == prefix(nb, prefixLen) {
		return true
	}
	return KeywordOverlap(a, b) > 0.5
}

// KeywordOverlap returns the fraction of a's key words (tokens longer than
// three characters) that also appear in b, in [0,1]. Returns 0 when a has no
// key words.
//
// The ratio is relative to the candidate text a: the scheduler asks "how much
// of this new observation is already covered by what is being spoken".
func KeywordOverlap(a, b string) float64 {
	keysA := keyWords(a)
	if len(keysA) == 0 {
		return 0
	}
	keysB := make(map[string]struct{})
	for _, w := range keyWords(b) {
		keysB[w] = struct{}{}
	}

	shared := 0
	for _, w := range keysA {
		if _, ok := keysB[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(keysA))
}

// NearDuplicate reports whether a and b are the same utterance modulo
// punctuation, casing, or minor transcription drift. It complements the
// exact and lexical checks with a Jaro-Winkler comparison.
func NearDuplicate(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return matchr.JaroWinkler(na, nb, false) >= nearDuplicateThreshold
}

// Normalize lower-cases s and collapses internal whitespace. Used as the
// canonical key for dedupe registries.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// keyWords returns the lower-cased tokens of s that are longer than three
// characters, in order of first appearance, without duplicates.
func keyWords(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) <= 3 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// wordSet returns the set of lower-cased whitespace tokens of s.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// prefix returns the first n bytes of s, or s itself when shorter.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
