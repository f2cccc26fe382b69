package transition

import (
	"sync"
	"time"
)

// DefaultContextSize is the context window capacity used when the engine is
// constructed without an explicit size.
const DefaultContextSize = 5

// Entry records one previously refined narration in the context window.
type Entry struct {
	// ID is an opaque unique identifier for the entry.
	ID string

	// OriginalText is the raw description as received.
	OriginalText string

	// RefinedText is the text produced by refinement.
	RefinedText string

	// CreatedAt is the time the entry was added to the window.
	CreatedAt time.Time
}

// Context is the bounded FIFO window of recent refined narrations. When a new
// entry would exceed capacity, the oldest entry is evicted. Insertion order
// equals chronological order.
//
// All methods are safe for concurrent use.
type Context struct {
	mu      sync.Mutex
	entries []Entry
	maxSize int
}

// NewContext creates a window holding at most maxSize entries. Non-positive
// sizes fall back to [DefaultContextSize].
func NewContext(maxSize int) *Context {
	if maxSize <= 0 {
		maxSize = DefaultContextSize
	}
	return &Context{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends e to the window, evicting the oldest entry when full.
func (c *Context) Add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, e)
	if len(c.entries) > c.maxSize {
		// Copy to a fresh backing array so evicted entries do not pin memory.
		fresh := make([]Entry, c.maxSize)
		copy(fresh, c.entries[len(c.entries)-c.maxSize:])
		c.entries = fresh
	}
}

// Last returns the most recent entry, or false when the window is empty.
func (c *Context) Last() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return Entry{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// Len returns the number of entries currently held.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a copy of the window in chronological order.
func (c *Context) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Clear empties the window.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.entries[:0]
}
