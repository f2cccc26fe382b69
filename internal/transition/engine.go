// Package transition implements the narration transition engine: it debounces
// the raw description stream from the vision service, classifies each
// description against a sliding context window, and rewrites it into a
// refined narration string.
//
// Classification and refinement are purely lexical. Thresholds (similarity
// > 0.8 → CONTINUE, > 0.3 → UPDATE) are behaviour-defining and fixed.
package transition

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VamshiS123/visionv/internal/similarity"
	"github.com/VamshiS123/visionv/pkg/narration"
)

const (
	// DefaultTransitionDelay is the debounce window for ProcessDescription.
	DefaultTransitionDelay = 500 * time.Millisecond

	// DefaultSignificanceThreshold is the similarity score below which a
	// description counts as significantly different from the last context
	// entry.
	DefaultSignificanceThreshold = 0.7

	// continueThreshold and updateThreshold classify the transition type.
	continueThreshold = 0.8
	updateThreshold   = 0.3
)

// Engine debounces and refines raw descriptions. Only the most recent
// ProcessDescription call within the transition delay survives; superseded
// calls are fully cancelled and their callbacks never fire.
//
// All methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	pending *task

	window    *Context
	delay     time.Duration
	threshold float64
	logger    *slog.Logger
}

// Option configures an [Engine] during construction.
type Option func(*Engine)

// WithTransitionDelay sets the debounce delay. The default is 500ms.
func WithTransitionDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.delay = d
		}
	}
}

// WithContextSize sets the context window capacity. The default is 5.
func WithContextSize(n int) Option {
	return func(e *Engine) {
		e.window = NewContext(n)
	}
}

// WithSignificanceThreshold sets the default threshold used by
// [Engine.IsSignificantlyDifferent]. The default is 0.7.
func WithSignificanceThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithLogger sets the structured logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		window:    NewContext(DefaultContextSize),
		delay:     DefaultTransitionDelay,
		threshold: DefaultSignificanceThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessDescription schedules an asynchronous refinement of text that fires
// after the transition delay unless a subsequent call supersedes it. When the
// timer fires, the description is classified against the most recent context
// entry, refined, appended to the context window, and handed to onReady.
//
// Empty (after trimming) text is ignored. onReady must be non-nil.
func (e *Engine) ProcessDescription(text string, onReady func(narration.RefinedDescription)) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != nil {
		e.pending.Cancel()
	}
	e.pending = schedule(e.delay, func() {
		e.refine(text, onReady)
	})
}

// CancelPendingTransition cancels any outstanding debounce timer and discards
// the pending description. It is idempotent.
func (e *Engine) CancelPendingTransition() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != nil {
		e.pending.Cancel()
		e.pending = nil
	}
}

// HasPendingTransition reports whether a debounced refinement is scheduled
// but has not fired yet.
func (e *Engine) HasPendingTransition() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil && e.pending.Pending()
}

// IsSignificantlyDifferent reports whether text diverges from the last
// context entry enough to begin processing. It is true when no context exists
// yet, or when the similarity to the last entry's refined text is below
// threshold. A non-positive threshold uses the engine default.
//
// This check is independent of the debounce timer.
func (e *Engine) IsSignificantlyDifferent(text string, threshold float64) bool {
	if threshold <= 0 {
		threshold = e.threshold
	}

	last, ok := e.window.Last()
	if !ok {
		return true
	}
	return similarity.Score(text, last.RefinedText) < threshold
}

// ClearContext cancels pending work and empties the context window. Used on
// session stop.
func (e *Engine) ClearContext() {
	e.CancelPendingTransition()
	e.window.Clear()
}

// ContextLen returns the number of entries in the context window.
func (e *Engine) ContextLen() int {
	return e.window.Len()
}

// refine runs once per surviving debounced description.
func (e *Engine) refine(text string, onReady func(narration.RefinedDescription)) {
	last, hasLast := e.window.Last()

	refined := narration.RefinedDescription{
		OriginalText: text,
		RefinedText:  text,
		Transition:   narration.TransitionNew,
	}

	if hasLast {
		score := similarity.Score(text, last.RefinedText)
		added, unchanged, removed := phraseDelta(text, last.RefinedText)
		refined.Metadata = narration.Metadata{
			NewElements:       added,
			UnchangedElements: unchanged,
			RemovedElements:   removed,
		}

		switch {
		case score > continueThreshold:
			refined.Transition = narration.TransitionContinue
			if len(added) > 0 {
				refined.RefinedText = "The scene continues. " + joinPhrases(added)
			}
		case score > updateThreshold:
			refined.Transition = narration.TransitionUpdate
			switch {
			case len(added) > 0 && len(removed) > 0:
				refined.RefinedText = "Now I see " + joinPhrases(added) +
					"; the " + joinPhrases(removed) + " is no longer in view."
			case len(added) > 0:
				refined.RefinedText = "Now I see " + joinPhrases(added)
			}
		}
	}

	e.window.Add(Entry{
		ID:           uuid.NewString(),
		OriginalText: text,
		RefinedText:  refined.RefinedText,
		CreatedAt:    time.Now(),
	})

	e.logger.Debug("description refined",
		"transition", refined.Transition.String(),
		"new_elements", len(refined.Metadata.NewElements),
	)

	onReady(refined)
}

// joinPhrases renders a phrase list as natural text: "a", "a and b",
// "a, b and c".
func joinPhrases(phrases []string) string {
	switch len(phrases) {
	case 0:
		return ""
	case 1:
		return phrases[0]
	case 2:
		return phrases[0] + " and " + phrases[1]
	default:
		return strings.Join(phrases[:len(phrases)-1], ", ") + " and " + phrases[len(phrases)-1]
	}
}
