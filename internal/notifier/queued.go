package notifier

import (
	"errors"
	"sync"

	"github.com/amirphl/alertdesk/internal/utils"
)

var (
	ErrQueueFull   = errors.New("notification queue full")
	ErrQueueClosed = errors.New("notification queue closed")
)

// Queued hands notifications to a single background worker, which delivers
// them to the wrapped notifier in submission order. Delivery errors are
// logged by the worker.
type Queued struct {
	next Notifier

	mu     sync.Mutex
	closed bool
	jobs   chan func() error
	done   chan struct{}
}

func NewQueued(next Notifier, size int) *Queued {
	if size <= 0 {
		size = 64
	}
	q := &Queued{
		next: next,
		jobs: make(chan func() error, size),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queued) Notify(message, title string, severity Severity) error {
	return q.enqueue(func() error { return q.next.Notify(message, title, severity) })
}

func (q *Queued) PlaySound(cue string) error {
	return q.enqueue(func() error { return q.next.PlaySound(cue) })
}

func (q *Queued) enqueue(job func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered.
func (q *Queued) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queued) run() {
	defer close(q.done)
	for job := range q.jobs {
		if err := job(); err != nil {
			utils.GetLogger().Warnf("Notifier | delivery failed: %v", err)
		}
	}
}
