package publisher

import (
	"sync"
	"time"
)

// Notification is a one-shot failure event for the consumer.
type Notification struct {
	Generation uint64    `json:"generation"`
	Kind       ErrorKind `json:"error_kind"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// Notifier receives failure notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Queue buffers notifications until they are drained. Each notification is
// handed out exactly once.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Notify appends n.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, n)
}

// Drain returns the pending notifications and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
