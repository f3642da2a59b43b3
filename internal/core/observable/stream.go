package observable

// Stream is a fan-out of discrete events without replay.
type Stream[T any] struct {
	hub hub[T]
}

// NewStream creates an empty stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Emit delivers event to every subscriber with room in its buffer.
// Subscribers whose buffer is full miss the event.
func (stream *Stream[T]) Emit(event T) {
	stream.hub.mu.Lock()
	defer stream.hub.mu.Unlock()
	for _, sub := range stream.hub.subscribers {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Subscribe registers an observer for events emitted from now on.
func (stream *Stream[T]) Subscribe(buffer int) *Subscription[T] {
	return stream.hub.add(buffer, nil)
}

// Subscribers reports the number of live subscriptions.
func (stream *Stream[T]) Subscribers() int {
	return stream.hub.count()
}

// Close closes every subscription. Close is idempotent.
func (stream *Stream[T]) Close() {
	stream.hub.closeAll()
}
