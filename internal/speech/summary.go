package speech

import (
	"sort"
	"strings"

	"github.com/VamshiS123/visionv/internal/similarity"
	"github.com/VamshiS123/visionv/pkg/narration"
)

// summaryKeyLen bounds the normalized prefix used to collapse near-identical
// observations inside a single batch.
const summaryKeyLen = 40

// Summarize collapses a drained batch into a single utterance. Observations
// are deduplicated by normalized prefix, ordered by priority (most urgent
// first, ties keep arrival order), and the top three are joined:
//
//	one:   spoken as-is
//	two:   "{first}. Also, {second}" with the second lowercased
//	three: "{first}. {second}. {third}"
//
// Returns the empty string when the batch has nothing sayable.
func Summarize(batch []narration.Observation) string {
	if len(batch) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(batch))
	unique := make([]narration.Observation, 0, len(batch))
	for _, obs := range batch {
		text := strings.TrimSpace(obs.Text)
		if text == "" {
			continue
		}
		key := similarity.Normalize(text)
		if len(key) > summaryKeyLen {
			key = key[:summaryKeyLen]
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		obs.Text = text
		unique = append(unique, obs)
	}
	if len(unique) == 0 {
		return ""
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Priority < unique[j].Priority
	})
	if len(unique) > 3 {
		unique = unique[:3]
	}

	switch len(unique) {
	case 1:
		return unique[0].Text
	case 2:
		return unique[0].Text + ". Also, " + lowercaseFirst(unique[1].Text)
	default:
		return unique[0].Text + ". " + unique[1].Text + ". " + unique[2].Text
	}
}

func lowercaseFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
