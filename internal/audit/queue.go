package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueSize is the event buffer used when none is configured.
const DefaultQueueSize = 1024

// writeTimeout bounds a single audit write.
const writeTimeout = 5 * time.Second

// Queue is an asynchronous Sink. Record enqueues without blocking and a
// single worker writes events in arrival order. When the buffer is full the
// event is dropped and a warning logged; write failures are logged and
// discarded.
type Queue struct {
	w      Writer
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts a queue writing through w with a buffer of size events.
func NewQueue(w Writer, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &Queue{
		w:      w,
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Record enqueues e. It never blocks and never fails.
func (q *Queue) Record(_ context.Context, e Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		slog.Warn("audit event dropped after close", "action", e.Action, "resource", e.Resource, "id", e.ResourceID)
		return
	}

	select {
	case q.events <- e:
	default:
		slog.Warn("audit queue full, event dropped", "action", e.Action, "resource", e.Resource, "id", e.ResourceID)
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for e := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := q.w.Write(ctx, e.Entry()); err != nil {
			slog.Error("failed to write audit event", "action", e.Action, "resource", e.Resource, "id", e.ResourceID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the buffered ones are
// written or ctx expires.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
