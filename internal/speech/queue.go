package speech

import (
	"github.com/VamshiS123/visionv/internal/similarity"
	"github.com/VamshiS123/visionv/pkg/narration"
)

// pendingQueue is the ordered sequence of observations awaiting a batch
// flush. Critical and high-priority observations are pushed to the front so
// they are spoken next; batchable observations append to the back.
//
// Not safe for concurrent use on its own; the scheduler guards it.
type pendingQueue struct {
	items []narration.Observation
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

// PushFront inserts obs so it is drained first.
func (q *pendingQueue) PushFront(obs narration.Observation) {
	q.items = append([]narration.Observation{obs}, q.items...)
}

// PushBack appends obs to the end of the queue.
func (q *pendingQueue) PushBack(obs narration.Observation) {
	q.items = append(q.items, obs)
}

// Front returns the next observation to drain without removing it.
func (q *pendingQueue) Front() (narration.Observation, bool) {
	if len(q.items) == 0 {
		return narration.Observation{}, false
	}
	return q.items[0], true
}

// PopFront removes and returns the next observation to drain.
func (q *pendingQueue) PopFront() (narration.Observation, bool) {
	if len(q.items) == 0 {
		return narration.Observation{}, false
	}
	obs := q.items[0]
	q.items = q.items[1:]
	return obs, true
}

// ContainsSimilar reports whether any queued observation is lexically
// similar to text.
func (q *pendingQueue) ContainsSimilar(text string) bool {
	for _, obs := range q.items {
		if similarity.IsLexicallySimilar(obs.Text, text, 0) {
			return true
		}
	}
	return false
}

// DrainAll atomically removes and returns the whole queue in order.
func (q *pendingQueue) DrainAll() []narration.Observation {
	out := q.items
	q.items = nil
	return out
}

// Clear discards all queued observations.
func (q *pendingQueue) Clear() {
	q.items = nil
}

// Len returns the current queue depth.
func (q *pendingQueue) Len() int {
	return len(q.items)
}
