// Package narration defines the shared vocabulary of the visionv pipeline:
// observations flowing into the speech scheduler and refined descriptions
// flowing out of the transition engine.
//
// This package lives under pkg/ because provider adapters (vision clients,
// alternative schedulers) are expected to produce and consume these types.
package narration

import (
	"strings"
	"time"
)

// Priority classifies how urgently an observation must be narrated.
// Priorities are ordered: Critical > High > Medium > Low.
type Priority int

const (
	// PriorityCritical observations interrupt ongoing speech and are never
	// merged into batch summaries.
	PriorityCritical Priority = iota

	// PriorityHigh observations are spoken immediately when the channel is
	// idle and may fast-interrupt ongoing speech about a different object.
	PriorityHigh

	// PriorityMedium observations wait for the next batch flush.
	PriorityMedium

	// PriorityLow observations wait for the next batch flush and are the
	// first to be truncated out of a crowded summary.
	PriorityLow
)

// String returns the lower-case name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// IsValid reports whether p is one of the four defined priorities.
func (p Priority) IsValid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// ParsePriority converts a priority name ("critical", "high", "medium",
// "low") into a Priority. Unrecognised names map to PriorityLow, which keeps
// a malformed upstream payload narratable rather than dropped.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Observation is a single unit of narration content awaiting speech.
// Observations are created at ingestion and destroyed once spoken, merged
// into a summary, or dropped as duplicates; they are never persisted.
type Observation struct {
	// ID is an opaque unique identifier assigned at ingestion.
	ID string

	// Text is the narration string. Must be non-empty after trimming.
	Text string

	// Priority controls routing inside the speech scheduler.
	Priority Priority

	// CreatedAt is the ingestion timestamp.
	CreatedAt time.Time
}

// TransitionType classifies a refined description relative to the narration
// context window.
type TransitionType int

const (
	// TransitionNew marks a description unrelated to the previous context.
	TransitionNew TransitionType = iota

	// TransitionUpdate marks a description that shares some content with the
	// previous one but differs materially.
	TransitionUpdate

	// TransitionContinue marks a description that is mostly the same scene
	// as the previous one.
	TransitionContinue

	// TransitionRemoval is reserved for future use; current classification
	// never produces it.
	TransitionRemoval
)

// String returns the upper-case name of the transition type.
func (t TransitionType) String() string {
	switch t {
	case TransitionNew:
		return "NEW"
	case TransitionUpdate:
		return "UPDATE"
	case TransitionContinue:
		return "CONTINUE"
	case TransitionRemoval:
		return "REMOVAL"
	default:
		return "UNKNOWN"
	}
}

// Metadata carries the key-phrase delta computed during refinement.
// All slices hold lower-cased phrases and may be nil.
type Metadata struct {
	NewElements       []string
	UnchangedElements []string
	RemovedElements   []string
}

// RefinedDescription is the output of the narration transition engine.
type RefinedDescription struct {
	// OriginalText is the raw description as delivered by the vision service.
	OriginalText string

	// RefinedText is the text to narrate. It may equal OriginalText when no
	// refinement applied.
	RefinedText string

	// Transition classifies the description relative to the context window.
	Transition TransitionType

	// Metadata holds the key-phrase delta behind the classification.
	Metadata Metadata
}
