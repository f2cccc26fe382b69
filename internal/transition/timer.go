package transition

import (
	"sync"
	"time"
)

// task is a cancellable scheduled callback. It fires at most once; Cancel is
// idempotent and guarantees the callback will not run after it returns true
// or after the callback has already started.
type task struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
	fired     bool
}

// schedule runs fn after d unless the returned task is cancelled first.
func schedule(d time.Duration, fn func()) *task {
	t := &task{}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			return
		}
		t.fired = true
		t.mu.Unlock()
		fn()
	})
	return t
}

// Cancel stops the task. It returns true when the callback was prevented from
// running and false when it already ran or cancellation already happened.
func (t *task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	t.timer.Stop()
	return true
}

// Pending reports whether the task is still scheduled to fire.
func (t *task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled && !t.fired
}
