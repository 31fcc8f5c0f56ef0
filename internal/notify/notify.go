// Package notify queues transient messages ("toasts") for a session.
//
// Notices are flash messages: they are shown on the next rendered page and
// then discarded. A notice that is not rendered before its deadline expires
// silently.
package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays on screen before it is dismissed.
const DefaultTTL = 2 * time.Second

// Level classifies a notice for presentation.
type Level string

const (
	// LevelSuccess confirms a completed action, e.g. an item added to the cart.
	LevelSuccess Level = "success"
	// LevelInfo is a neutral message, e.g. the empty cart notice.
	LevelInfo Level = "info"
)

// Notice is a single transient message.
type Notice struct {
	Message string
	Level   Level
	// TTL is the on-screen duration before auto-dismiss.
	TTL time.Duration
	// Expires is the deadline after which an undelivered notice is dropped.
	Expires time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// Queue holds pending notices for one session.
type Queue struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending []Notice
}

// NewQueue returns a Queue whose notices stay visible for ttl. A
// non-positive ttl selects DefaultTTL.
func NewQueue(ttl time.Duration, opts ...Option) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	q := &Queue{
		ttl: ttl,
		now: time.Now,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Push enqueues a message. It never blocks.
func (q *Queue) Push(message string, level Level) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, Notice{
		Message: message,
		Level:   level,
		TTL:     q.ttl,
		// Undelivered notices live a little longer than their on-screen
		// time so a redirect has a chance to pick them up.
		Expires: q.now().Add(2 * q.ttl),
	})
}

// Drain returns the live notices in push order and empties the queue.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var out []Notice
	for _, n := range q.pending {
		if now.Before(n.Expires) {
			out = append(out, n)
		}
	}
	q.pending = nil
	return out
}

// Len returns the number of queued notices, expired ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}
