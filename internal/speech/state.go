package speech

// State is the explicit playback state of the scheduler. It replaces the
// flag combinations (isSpeaking, isProcessing, paused checks) with a single
// guarded enumeration.
type State int

const (
	// StateIdle means no utterance is active and none is being synthesized.
	StateIdle State = iota

	// StateProcessing means a synthesis request is in flight but audio has
	// not started playing yet.
	StateProcessing

	// StateSpeaking means the audio channel is actively playing.
	StateSpeaking
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
