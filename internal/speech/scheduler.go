// Package speech implements the batching and playback scheduler that sits
// between the narration transition engine and the audio output channel.
//
// The scheduler owns the single audio channel of the system and enforces its
// invariants:
//
//   - at most one utterance is synthesized or played at any time;
//   - critical observations pre-empt ongoing speech, subject to a minimum
//     audible duration so speech never stutters;
//   - batchable observations are accumulated, deduplicated, and summarized
//     on a fixed flush interval;
//   - recently spoken text is suppressed within a rolling dedupe window.
//
// Pipeline failures (synthesis, fetch, playback) are recovered locally: the
// scheduler resets to [StateIdle], drops the failed utterance, and never
// retries.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/VamshiS123/visionv/internal/observe"
	"github.com/VamshiS123/visionv/internal/similarity"
	"github.com/VamshiS123/visionv/pkg/audio"
	"github.com/VamshiS123/visionv/pkg/narration"
	"github.com/VamshiS123/visionv/pkg/provider/tts"
)

const (
	// DefaultBatchInterval is the period of the batch flush loop.
	DefaultBatchInterval = 3 * time.Second

	// DefaultDedupeWindow is how long a spoken utterance suppresses
	// duplicates.
	DefaultDedupeWindow = 6 * time.Second

	// DefaultMinSpeechDuration is the minimum audible time before a critical
	// observation may cut off the current utterance.
	DefaultMinSpeechDuration = 500 * time.Millisecond

	// DefaultNewObjectHighMin is the minimum audible time before a
	// high-priority observation about a new object may interrupt.
	DefaultNewObjectHighMin = 300 * time.Millisecond

	// DefaultNewObjectLowMin is the same floor for medium and low priority.
	DefaultNewObjectLowMin = 500 * time.Millisecond

	// DefaultSettleDelay separates a stop from the start of the replacement
	// utterance so the device never receives overlapping clips.
	DefaultSettleDelay = 150 * time.Millisecond

	// postSpeechGap is the minimum silence after an utterance before a batch
	// flush may start the next one.
	postSpeechGap = 100 * time.Millisecond

	// newObjectOverlapThreshold: below this keyword overlap with the current
	// utterance, an observation is considered to describe a new object.
	newObjectOverlapThreshold = 0.3
)

// Utterance kinds recorded on the utterances counter.
const (
	kindImmediate = "immediate"
	kindBatch     = "batch"
	kindInterrupt = "interrupt"
)

// Scheduler routes observations onto the single audio channel. All exported
// methods are safe for concurrent use.
type Scheduler struct {
	provider tts.Provider
	player   audio.Player
	voice    tts.Voice
	metrics  *observe.Metrics
	log      *slog.Logger

	batchInterval    time.Duration
	dedupeWindow     time.Duration
	minSpeech        time.Duration
	newObjectHighMin time.Duration
	newObjectLowMin  time.Duration
	settleDelay      time.Duration

	mu              sync.Mutex
	state           State
	seq             uint64
	queue           *pendingQueue
	registry        *spokenRegistry
	playback        audio.Playback
	currentText     string
	speechStartedAt time.Time
	lastEndedAt     time.Time
	stopped         bool
	started         bool
	stopCh          chan struct{}
	baseCtx         context.Context
}

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithVoice sets the synthesis voice parameters.
func WithVoice(v tts.Voice) Option {
	return func(s *Scheduler) { s.voice = v }
}

// WithBatchInterval overrides [DefaultBatchInterval].
func WithBatchInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.batchInterval = d
		}
	}
}

// WithDedupeWindow overrides [DefaultDedupeWindow].
func WithDedupeWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.dedupeWindow = d
		}
	}
}

// WithMinSpeechDuration overrides [DefaultMinSpeechDuration].
func WithMinSpeechDuration(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.minSpeech = d
		}
	}
}

// WithSettleDelay overrides [DefaultSettleDelay].
func WithSettleDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithMetrics sets the metric instruments. Without it, instruments are
// no-ops.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScheduler creates a stopped scheduler. Call [Scheduler.Start] to begin
// the batch flush loop.
func NewScheduler(provider tts.Provider, player audio.Player, opts ...Option) *Scheduler {
	s := &Scheduler{
		provider:         provider,
		player:           player,
		log:              slog.Default(),
		batchInterval:    DefaultBatchInterval,
		dedupeWindow:     DefaultDedupeWindow,
		minSpeech:        DefaultMinSpeechDuration,
		newObjectHighMin: DefaultNewObjectHighMin,
		newObjectLowMin:  DefaultNewObjectLowMin,
		settleDelay:      DefaultSettleDelay,
		queue:            newPendingQueue(),
		stopCh:           make(chan struct{}),
		baseCtx:          context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		// Instruments from the noop provider never fail to build.
		s.metrics, _ = observe.NewMetrics(noop.NewMeterProvider())
	}
	s.registry = newSpokenRegistry(s.dedupeWindow)
	return s
}

// Start launches the batch flush loop. The loop runs until ctx is cancelled
// or [Scheduler.Stop] is called. Start is idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.baseCtx = context.WithoutCancel(ctx)
	go s.flushLoop(ctx)
}

// Stop halts the scheduler: the active utterance is stopped, the queue is
// cleared, and subsequent observations are rejected with [ErrStopped]. Stop
// is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.stopLocked()
	if n := s.queue.Len(); n > 0 {
		s.metrics.PendingObservations.Add(s.baseCtx, -int64(n))
	}
	s.queue.Clear()
	close(s.stopCh)
	s.log.Info("speech scheduler stopped")
}

// AddObservation routes obs according to its priority:
//
//   - critical: interrupts ongoing speech once the minimum audible duration
//     has been reached, otherwise jumps the queue;
//   - high: spoken immediately when the channel is idle, fast-interrupts
//     ongoing speech about a different object, otherwise jumps the queue;
//   - medium/low: wait for the next batch flush unless they describe a new
//     object while something else has been audible long enough.
//
// Non-critical observations whose text was recently spoken, or that
// duplicate a queued or currently playing utterance, are silently dropped.
func (s *Scheduler) AddObservation(obs narration.Observation) error {
	obs.Text = strings.TrimSpace(obs.Text)
	if obs.Text == "" {
		return ErrEmptyText
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now()
	}
	if !obs.Priority.IsValid() {
		obs.Priority = narration.PriorityLow
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}

	if obs.Priority != narration.PriorityCritical && s.registry.RecentlySpoken(obs.Text, time.Now()) {
		s.dropDuplicateLocked(obs)
		return nil
	}

	switch obs.Priority {
	case narration.PriorityCritical:
		if s.state != StateIdle && s.audibleForLocked() < s.minSpeech {
			// The current utterance has not been audible long enough to cut
			// off (synthesis in flight counts as zero). Jump the queue and
			// speak this next instead of discarding the in-flight utterance.
			s.enqueueFrontLocked(obs)
			return nil
		}
		s.interruptLocked(obs.Text)
		return nil

	case narration.PriorityHigh:
		if s.state == StateIdle {
			s.speakLocked(obs.Text, kindImmediate)
			return nil
		}
		if s.isNewObjectLocked(obs.Text) && s.audibleForLocked() >= s.newObjectHighMin {
			s.interruptLocked(obs.Text)
			return nil
		}
		s.enqueueFrontLocked(obs)
		return nil

	default:
		if s.isNewObjectLocked(obs.Text) && s.audibleForLocked() >= s.newObjectLowMin {
			s.interruptLocked(obs.Text)
			return nil
		}
		if s.queue.ContainsSimilar(obs.Text) ||
			(s.currentText != "" && similarity.IsLexicallySimilar(s.currentText, obs.Text, 0)) {
			s.dropDuplicateLocked(obs)
			return nil
		}
		s.queue.PushBack(obs)
		s.metrics.PendingObservations.Add(s.baseCtx, 1)
		return nil
	}
}

// Interrupt cuts off the current utterance and speaks text, respecting
// minAudible as the floor before ongoing speech may be stopped. A
// non-positive minAudible uses the configured minimum speech duration.
func (s *Scheduler) Interrupt(text string, minAudible time.Duration) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if minAudible <= 0 {
		minAudible = s.minSpeech
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.state != StateIdle && s.audibleForLocked() < minAudible {
		s.enqueueFrontLocked(narration.Observation{
			ID:        uuid.NewString(),
			Text:      text,
			Priority:  narration.PriorityCritical,
			CreatedAt: time.Now(),
		})
		return nil
	}
	s.interruptLocked(text)
	return nil
}

// SpeakNow bypasses batching, dedupe, and audible-duration floors: the
// current utterance is stopped immediately and text is spoken.
func (s *Scheduler) SpeakNow(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.interruptLocked(text)
	return nil
}

// ForceProcessBatch flushes the pending queue without waiting for the next
// tick. No-op when the channel is busy or the queue is empty.
func (s *Scheduler) ForceProcessBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processBatchLocked()
}

// IsSpeaking reports whether an utterance is active, either in synthesis or
// audibly playing.
func (s *Scheduler) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateIdle || (s.playback != nil && s.playback.Playing())
}

// Stopped reports whether [Scheduler.Stop] has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen returns the current batch queue depth.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.batchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.ForceProcessBatch()
		}
	}
}

// processBatchLocked flushes the queue. A leading critical observation is
// spoken on its own; everything else is drained and summarized into a single
// utterance.
func (s *Scheduler) processBatchLocked() {
	if s.stopped || s.queue.Len() == 0 || s.state != StateIdle {
		return
	}
	if !s.lastEndedAt.IsZero() && time.Since(s.lastEndedAt) < postSpeechGap {
		return
	}

	if front, ok := s.queue.Front(); ok && front.Priority == narration.PriorityCritical {
		s.queue.PopFront()
		s.metrics.PendingObservations.Add(s.baseCtx, -1)
		s.speakLocked(front.Text, kindImmediate)
		return
	}

	batch := s.queue.DrainAll()
	s.metrics.PendingObservations.Add(s.baseCtx, -int64(len(batch)))
	s.metrics.BatchSize.Record(s.baseCtx, int64(len(batch)))

	text := Summarize(batch)
	if text == "" {
		return
	}
	if s.registry.RecentlySpoken(text, time.Now()) {
		s.metrics.DuplicatesDropped.Add(s.baseCtx, 1)
		s.log.Debug("dropping batch summary, recently spoken", "text", text)
		return
	}
	s.speakLocked(text, kindBatch)
}

// speakLocked starts synthesis of text when the channel is idle. If an
// utterance is already in flight the text is folded back into the queue
// instead, so at most one synthesis ever runs.
func (s *Scheduler) speakLocked(text, kind string) {
	if s.stopped {
		return
	}
	if s.state != StateIdle {
		s.enqueueFrontLocked(narration.Observation{
			ID:        uuid.NewString(),
			Text:      text,
			Priority:  narration.PriorityMedium,
			CreatedAt: time.Now(),
		})
		return
	}
	s.state = StateProcessing
	s.currentText = text
	go s.synthesizeAndPlay(s.baseCtx, text, s.seq, kind)
}

// interruptLocked stops whatever is active and speaks text. When speech was
// actually cut off, the replacement starts after the settle delay so the
// device gets a clean handover.
func (s *Scheduler) interruptLocked(text string) {
	wasActive := s.state != StateIdle
	s.stopLocked()
	if !wasActive {
		s.speakLocked(text, kindImmediate)
		return
	}
	s.metrics.Interrupts.Add(s.baseCtx, 1)
	s.log.Debug("interrupting current utterance", "next", text)

	seq := s.seq
	time.AfterFunc(s.settleDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seq != seq || s.stopped {
			return
		}
		s.speakLocked(text, kindInterrupt)
	})
}

// stopLocked invalidates the in-flight utterance, if any, and resets to
// idle. Bumping seq makes every goroutine spawned under the old value a
// silent no-op.
func (s *Scheduler) stopLocked() {
	s.seq++
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	s.state = StateIdle
	s.currentText = ""
}

func (s *Scheduler) enqueueFrontLocked(obs narration.Observation) {
	s.queue.PushFront(obs)
	s.metrics.PendingObservations.Add(s.baseCtx, 1)
}

func (s *Scheduler) dropDuplicateLocked(obs narration.Observation) {
	s.metrics.DuplicatesDropped.Add(s.baseCtx, 1)
	s.log.Debug("dropping duplicate observation",
		"id", obs.ID, "priority", obs.Priority.String(), "text", obs.Text)
}

// audibleForLocked returns how long the current utterance has been audible,
// or zero when nothing is playing.
func (s *Scheduler) audibleForLocked() time.Duration {
	if s.state != StateSpeaking {
		return 0
	}
	return time.Since(s.speechStartedAt)
}

// isNewObjectLocked reports whether text describes something other than what
// is currently being spoken, judged by keyword overlap with the active
// utterance.
func (s *Scheduler) isNewObjectLocked(text string) bool {
	if s.currentText == "" {
		return false
	}
	return similarity.KeywordOverlap(text, s.currentText) < newObjectOverlapThreshold
}

// synthesizeAndPlay runs the pipeline for one utterance: synthesize, fetch,
// play, wait for completion. seq identifies the utterance; any mismatch with
// the scheduler's current seq means it was superseded and every remaining
// step becomes a no-op.
func (s *Scheduler) synthesizeAndPlay(ctx context.Context, text string, seq uint64, kind string) {
	start := time.Now()
	res, err := s.provider.Synthesize(ctx, tts.Request{Text: text, Voice: s.voice})
	s.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.recoverFrom(seq, StageSynthesis, err)
		return
	}
	if s.isStale(seq) {
		_ = res.Close()
		return
	}

	data, err := res.Fetch(ctx)
	if err != nil {
		s.recoverFrom(seq, StageFetch, err)
		return
	}
	if s.isStale(seq) {
		return
	}

	pb, err := s.player.Play(ctx, data)
	if err != nil {
		s.recoverFrom(seq, StagePlayback, err)
		return
	}

	s.mu.Lock()
	if seq != s.seq || s.stopped {
		s.mu.Unlock()
		pb.Stop()
		return
	}
	s.playback = pb
	s.state = StateSpeaking
	s.speechStartedAt = time.Now()
	s.mu.Unlock()

	s.metrics.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))

	err = <-pb.Done()
	s.finishPlayback(seq, text, err)
}

// finishPlayback handles playback completion for the utterance identified by
// seq. Utterances that reached the device are recorded in the dedupe registry
// whether playback ended cleanly or with an error, since most of the clip may
// have been heard either way. Superseded utterances are ignored because the
// interrupter owns the state.
func (s *Scheduler) finishPlayback(seq uint64, text string, playErr error) {
	if playErr != nil {
		s.metrics.BackendErrors.Add(s.baseCtx, 1,
			metric.WithAttributes(attribute.String("stage", string(StagePlayback))))
		s.log.Warn("playback failed", "error", &PipelineError{Stage: StagePlayback, Err: playErr})
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.playback = nil
	s.currentText = ""
	s.lastEndedAt = time.Now()
	s.registry.Record(text, s.lastEndedAt)
	pending := s.queue.Len() > 0 && !s.stopped
	s.mu.Unlock()

	if pending {
		// The flush must land after the post-speech gap or it would be a
		// no-op until the next tick.
		delay := s.settleDelay
		if delay <= postSpeechGap {
			delay = postSpeechGap + 10*time.Millisecond
		}
		time.AfterFunc(delay, s.ForceProcessBatch)
	}
}

// recoverFrom resets the scheduler to idle after a pipeline failure. The
// utterance is dropped; there is no retry.
func (s *Scheduler) recoverFrom(seq uint64, stage Stage, err error) {
	s.metrics.BackendErrors.Add(s.baseCtx, 1,
		metric.WithAttributes(attribute.String("stage", string(stage))))

	s.mu.Lock()
	stale := seq != s.seq
	if !stale {
		s.state = StateIdle
		s.playback = nil
		s.currentText = ""
	}
	s.mu.Unlock()

	if stale {
		// Superseded while failing; nothing to recover.
		return
	}
	s.log.Warn("utterance dropped", "error", &PipelineError{Stage: stage, Err: err})
}

func (s *Scheduler) isStale(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq != s.seq || s.stopped
}
