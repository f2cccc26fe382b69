package speech

import (
	"errors"
	"fmt"
)

// ErrEmptyText is returned when an observation's text is empty after
// trimming. Input errors are never fatal; the observation is simply rejected.
var ErrEmptyText = errors.New("speech: observation text is empty")

// ErrStopped is returned when an observation arrives after Stop.
var ErrStopped = errors.New("speech: scheduler is stopped")

// Stage identifies where in the synthesis+playback sequence a failure
// occurred.
type Stage string

const (
	StageSynthesis Stage = "synthesis"
	StageFetch     Stage = "fetch"
	StagePlayback  Stage = "playback"
)

// PipelineError wraps a transient failure from the TTS backend, the audio
// resource fetch, or the playback device. All pipeline errors are recovered
// locally: state resets to idle and the failed utterance is dropped without
// retry.
type PipelineError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("speech: %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}
