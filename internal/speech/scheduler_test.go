package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	audiomock "github.com/VamshiS123/visionv/pkg/audio/mock"
	"github.com/VamshiS123/visionv/pkg/narration"
	ttsmock "github.com/VamshiS123/visionv/pkg/provider/tts/mock"
)

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestAddObservationRejectsEmptyText(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&ttsmock.Provider{}, &audiomock.Player{})
	defer s.Stop()

	err := s.AddObservation(narration.Observation{Text: "   "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("AddObservation(blank) = %v, want ErrEmptyText", err)
	}
}

func TestAddObservationAfterStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&ttsmock.Provider{}, &audiomock.Player{})
	s.Stop()
	s.Stop() // idempotent

	err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh))
	if !errors.Is(err, ErrStopped) {
		t.Errorf("AddObservation after Stop = %v, want ErrStopped", err)
	}
}

func TestHighPrioritySpokenImmediately(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{AutoFinish: true}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 1 })
	waitFor(t, 2*time.Second, func() bool { return !s.IsSpeaking() })

	texts := provider.Texts()
	if len(texts) != 1 || texts[0] != "a cyclist passes on the left" {
		t.Errorf("synthesized texts = %v, want the observation text once", texts)
	}
}

func TestRecentlySpokenDuplicateDropped(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{AutoFinish: true}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a red car drives past", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return !s.IsSpeaking() && player.PlayCount() == 1 })

	// Same text again within the dedupe window: accepted but not queued.
	if err := s.AddObservation(obs("a red car drives past", narration.PriorityMedium)); err != nil {
		t.Fatalf("AddObservation duplicate: %v", err)
	}
	if got := s.QueueLen(); got != 0 {
		t.Errorf("QueueLen() = %d after duplicate, want 0", got)
	}
}

func TestBatchFlushSummarizes(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{AutoFinish: true}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("A bus stops at the corner", narration.PriorityMedium)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if err := s.AddObservation(obs("A tree sways in the wind", narration.PriorityLow)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if got := s.QueueLen(); got != 2 {
		t.Fatalf("QueueLen() = %d, want 2", got)
	}

	s.ForceProcessBatch()

	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 1 })
	want := "A bus stops at the corner. Also, a tree sways in the wind"
	if texts := provider.Texts(); texts[0] != want {
		t.Errorf("batch utterance = %q, want %q", texts[0], want)
	}
	if got := s.QueueLen(); got != 0 {
		t.Errorf("QueueLen() = %d after flush, want %d", got, 0)
	}
}

func TestBatchFlushLoop(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{AutoFinish: true}
	s := NewScheduler(provider, player,
		WithBatchInterval(30*time.Millisecond),
		WithSettleDelay(time.Millisecond),
	)
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if err := s.AddObservation(obs("A kiosk sells coffee", narration.PriorityMedium)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 1 })
}

func TestAtMostOneActivePipeline(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	provider := &ttsmock.Provider{Audio: []byte("pcm"), Block: block}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(provider.Requests()) == 1 })

	// Second observation while synthesis is in flight must queue, not spawn
	// a second pipeline.
	if err := s.AddObservation(obs("someone opens the red door", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if got := s.QueueLen(); got != 1 {
		t.Fatalf("QueueLen() = %d while synthesis in flight, want 1", got)
	}
	if got := player.PlayCount(); got != 0 {
		t.Fatalf("PlayCount() = %d before synthesis completes, want 0", got)
	}

	close(block)
	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 1 })
	if got := player.ActiveCount(); got > 1 {
		t.Errorf("ActiveCount() = %d, want at most 1", got)
	}

	player.Last().Finish(nil)
	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 2 })
	if got := player.ActiveCount(); got > 1 {
		t.Errorf("ActiveCount() = %d, want at most 1", got)
	}

	texts := provider.Texts()
	if texts[len(texts)-1] != "someone opens the red door" {
		t.Errorf("second utterance = %q, want the queued observation", texts[len(texts)-1])
	}
	player.Last().Finish(nil)
}

func TestCriticalInterruptsOngoingSpeech(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player,
		WithMinSpeechDuration(time.Millisecond),
		WithSettleDelay(time.Millisecond),
	)
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateSpeaking })
	first := player.Last()
	time.Sleep(10 * time.Millisecond) // clear the audible floor

	if err := s.AddObservation(obs("a car is backing toward you", narration.PriorityCritical)); err != nil {
		t.Fatalf("AddObservation critical: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 2 })
	if !first.Stopped() {
		t.Error("first playback should have been stopped by the interrupt")
	}
	texts := provider.Texts()
	if texts[1] != "a car is backing toward you" {
		t.Errorf("interrupt utterance = %q, want the critical text", texts[1])
	}
	player.Last().Finish(nil)
}

func TestCriticalWaitsForAudibleFloor(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{}
	// Default 500ms floor: the critical observation must not cut speech
	// that just started.
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateSpeaking })
	first := player.Last()

	if err := s.AddObservation(obs("a car is backing toward you", narration.PriorityCritical)); err != nil {
		t.Fatalf("AddObservation critical: %v", err)
	}
	if first.Stopped() {
		t.Fatal("speech below the audible floor must not be interrupted")
	}
	if got := s.QueueLen(); got != 1 {
		t.Fatalf("QueueLen() = %d, want the critical observation queued", got)
	}

	first.Finish(nil)
	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 2 })
	texts := provider.Texts()
	if texts[1] != "a car is backing toward you" {
		t.Errorf("post-floor utterance = %q, want the critical text", texts[1])
	}
	player.Last().Finish(nil)
}

func TestCriticalDuringSynthesisQueuesFront(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	provider := &ttsmock.Provider{Audio: []byte("pcm"), Block: block}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(provider.Requests()) == 1 })

	// Synthesis is in flight, nothing audible yet. The critical observation
	// must wait at the front of the queue instead of discarding the
	// utterance that is about to play.
	if err := s.AddObservation(obs("a car is backing toward you", narration.PriorityCritical)); err != nil {
		t.Fatalf("AddObservation critical: %v", err)
	}
	if got := s.QueueLen(); got != 1 {
		t.Fatalf("QueueLen() = %d, want the critical observation queued", got)
	}
	if got := len(provider.Requests()); got != 1 {
		t.Fatalf("Requests() = %d, want 1 (no interrupt during synthesis)", got)
	}

	close(block)
	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 1 })
	player.Last().Finish(nil)

	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 2 })
	texts := provider.Texts()
	if texts[0] != "a cyclist passes on the left" {
		t.Errorf("first utterance = %q, want the in-flight text spoken", texts[0])
	}
	if texts[1] != "a car is backing toward you" {
		t.Errorf("second utterance = %q, want the critical text", texts[1])
	}
	player.Last().Finish(nil)
}

func TestInterruptDuringSynthesisQueuesFront(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	provider := &ttsmock.Provider{Audio: []byte("pcm"), Block: block}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(provider.Requests()) == 1 })

	if err := s.Interrupt("a car is backing toward you", 0); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if got := s.QueueLen(); got != 1 {
		t.Fatalf("QueueLen() = %d, want the interrupt text re-queued", got)
	}
	if got := len(provider.Requests()); got != 1 {
		t.Fatalf("Requests() = %d, want 1 (in-flight synthesis untouched)", got)
	}
	close(block)
	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 1 })
	player.Last().Finish(nil)
}

func TestPlaybackErrorStillSuppressesRepeat(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a dog runs across the road", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateSpeaking })
	player.Last().Finish(errors.New("device underrun"))
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateIdle })

	// The clip reached the device before failing, so the text counts as
	// spoken within the dedupe window.
	if err := s.AddObservation(obs("a dog runs across the road", narration.PriorityMedium)); err != nil {
		t.Fatalf("AddObservation repeat: %v", err)
	}
	if got := s.QueueLen(); got != 0 {
		t.Errorf("QueueLen() = %d after repeat, want 0", got)
	}
}

func TestSpeakNowBypassesQueue(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateSpeaking })
	first := player.Last()

	if err := s.SpeakNow("system shutting down"); err != nil {
		t.Fatalf("SpeakNow: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return player.PlayCount() == 2 })
	if !first.Stopped() {
		t.Error("SpeakNow should stop the current utterance regardless of duration")
	}
	texts := provider.Texts()
	if texts[1] != "system shutting down" {
		t.Errorf("SpeakNow utterance = %q", texts[1])
	}
	player.Last().Finish(nil)
}

func TestStopDuringSynthesis(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	provider := &ttsmock.Provider{Audio: []byte("pcm"), Block: block}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(provider.Requests()) == 1 })

	s.Stop()
	close(block)

	time.Sleep(50 * time.Millisecond)
	if got := player.PlayCount(); got != 0 {
		t.Errorf("PlayCount() = %d after Stop, want 0", got)
	}
	if s.IsSpeaking() {
		t.Error("IsSpeaking() = true after Stop")
	}
}

func TestSynthesisFailureRecoversToIdle(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{SynthesizeErr: errors.New("backend unavailable")}
	player := &audiomock.Player{}
	s := NewScheduler(provider, player, WithSettleDelay(time.Millisecond))
	defer s.Stop()

	if err := s.AddObservation(obs("a cyclist passes on the left", narration.PriorityHigh)); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(provider.Requests()) == 1 && s.State() == StateIdle
	})
	if got := player.PlayCount(); got != 0 {
		t.Errorf("PlayCount() = %d after synthesis failure, want 0", got)
	}
}
