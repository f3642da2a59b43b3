// Package observable provides the push-based state streams engines expose
// to their hosts.
//
// A Property holds the latest value and replays it to every new subscriber
// before pushing later changes. A Stream carries discrete events with no
// replay. Both deliver over buffered channels and never block the
// publisher: a slow Property subscriber skips intermediate values but always
// ends up holding the newest one, and a slow Stream subscriber loses events
// (at-most-once delivery).
package observable

import "sync"

// DefaultBuffer is used when a subscriber asks for a non-positive buffer.
const DefaultBuffer = 1

// Subscription is a single observer registration.
type Subscription[T any] struct {
	ch     chan T
	remove func(*Subscription[T])
	once   sync.Once
}

// C returns the delivery channel. It is closed when the subscription or
// its source is closed.
func (sub *Subscription[T]) C() <-chan T {
	return sub.ch
}

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (sub *Subscription[T]) Close() {
	sub.once.Do(func() {
		sub.remove(sub)
	})
}

type hub[T any] struct {
	mu          sync.Mutex
	subscribers []*Subscription[T]
	closed      bool
}

func (h *hub[T]) add(buffer int, initial func(chan T)) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &Subscription[T]{ch: make(chan T, buffer)}
	sub.remove = h.remove

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	if initial != nil {
		initial(sub.ch)
	}
	h.subscribers = append(h.subscribers, sub)
	return sub
}

func (h *hub[T]) remove(sub *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, current := range h.subscribers {
		if current == sub {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

func (h *hub[T]) closeAll() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.closed = true
	for _, sub := range h.subscribers {
		close(sub.ch)
	}
	h.subscribers = nil
	return true
}

func (h *hub[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// offerLatest pushes value, evicting the oldest buffered value when full.
func offerLatest[T any](ch chan T, value T) {
	for {
		select {
		case ch <- value:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
