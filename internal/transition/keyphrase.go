package transition

import (
	"regexp"
	"strings"
)

// Key-phrase extraction is deliberately coarse: pattern matching over raw
// tokens, not language understanding. Downstream comparison of refined texts
// relies on these exact token-level heuristics.
var (
	// articlePhrase captures the noun-like token following an article.
	articlePhrase = regexp.MustCompile(`\b(?:a|an|the)\s+([a-z]+)`)

	// compoundPhrase captures "<word> board/sign/door/window" compounds.
	compoundPhrase = regexp.MustCompile(`\b([a-z]+\s+(?:board|sign|door|window))\b`)

	// peopleNoun captures standalone person-words.
	peopleNoun = regexp.MustCompile(`\b(person|people|man|woman|child|children|crowd|pedestrian)\b`)
)

// skipWords are article-adjacent tokens that are never useful phrases.
var skipWords = map[string]struct{}{
	"few": {}, "lot": {}, "bit": {}, "very": {}, "same": {}, "left": {}, "right": {},
}

// ExtractKeyPhrases returns the lower-cased key phrases of text in order of
// first appearance, without duplicates.
func ExtractKeyPhrases(text string) []string {
	lower := strings.ToLower(text)

	seen := make(map[string]struct{})
	var phrases []string
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, skip := skipWords[p]; skip {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}

	for _, m := range compoundPhrase.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range articlePhrase.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range peopleNoun.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	return phrases
}

// phraseDelta compares the key phrases of cur against prev and returns the
// phrases new in cur, the phrases present in both, and the phrases that
// disappeared from prev.
func phraseDelta(cur, prev string) (added, unchanged, removed []string) {
	curPhrases := ExtractKeyPhrases(cur)
	prevPhrases := ExtractKeyPhrases(prev)

	prevSet := make(map[string]struct{}, len(prevPhrases))
	for _, p := range prevPhrases {
		prevSet[p] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(curPhrases))
	for _, p := range curPhrases {
		curSet[p] = struct{}{}
	}

	for _, p := range curPhrases {
		if _, ok := prevSet[p]; ok {
			unchanged = append(unchanged, p)
		} else {
			added = append(added, p)
		}
	}
	for _, p := range prevPhrases {
		if _, ok := curSet[p]; !ok {
			removed = append(removed, p)
		}
	}
	return added, unchanged, removed
}
