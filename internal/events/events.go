// Package events carries already-classified inputs from hook threads and the
// IPC server to the single control loop that owns the space registry.
package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/spaces/internal/platform"
)

// Kind identifies what an event asks the control loop to do.
type Kind int

const (
	SwitchLeft Kind = iota + 1
	SwitchRight
	ToggleFullscreen
	WindowDestroyed
	Reconcile
	ExitAll
)

func (k Kind) String() string {
	switch k {
	case SwitchLeft:
		return "switch_left"
	case SwitchRight:
		return "switch_right"
	case ToggleFullscreen:
		return "toggle_fullscreen"
	case WindowDestroyed:
		return "window_destroyed"
	case Reconcile:
		return "reconcile"
	case ExitAll:
		return "exit_all"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a discrete unit of work for the control loop. Window is only set
// for WindowDestroyed.
type Event struct {
	Kind   Kind
	Window platform.WindowID
}

func (e Event) String() string {
	if e.Kind == WindowDestroyed {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Window)
	}
	return e.Kind.String()
}

// Sink accepts events without blocking. It reports whether the event was
// accepted.
type Sink interface {
	Post(ev Event) bool
}

// DefaultQueueSize bounds how many events may wait behind a running transition.
const DefaultQueueSize = 64

// Queue is a bounded multi-producer, single-consumer event channel.
type Queue struct {
	ch     chan Event
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ Sink = (*Queue)(nil)

// NewQueue creates a queue holding up to size pending events.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		ch:     make(chan Event, size),
		logger: logger,
	}
}

// Post enqueues ev. It never blocks: when the queue is full or closed the
// event is dropped.
func (q *Queue) Post(ev Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.ch <- ev:
		return true
	default:
		q.logger.Warn("event queue full, dropping event", "event", ev.String())
		return false
	}
}

// Events returns the receive side for the control loop.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting events and closes the receive channel. Safe to call
// more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
