package observable

// Property is a value cell with replay-latest subscriptions.
type Property[T any] struct {
	hub   hub[T]
	value T
}

// NewProperty creates a property holding initial.
func NewProperty[T any](initial T) *Property[T] {
	return &Property[T]{value: initial}
}

// Get returns the current value.
func (property *Property[T]) Get() T {
	property.hub.mu.Lock()
	defer property.hub.mu.Unlock()
	return property.value
}

// Set stores value and pushes it to every subscriber. Setting a closed
// property only updates the stored value.
func (property *Property[T]) Set(value T) {
	property.hub.mu.Lock()
	defer property.hub.mu.Unlock()
	property.value = value
	for _, sub := range property.hub.subscribers {
		offerLatest(sub.ch, value)
	}
}

// Subscribe registers an observer. The current value is delivered
// immediately.
func (property *Property[T]) Subscribe(buffer int) *Subscription[T] {
	return property.hub.add(buffer, func(ch chan T) {
		ch <- property.value
	})
}

// Subscribers reports the number of live subscriptions.
func (property *Property[T]) Subscribers() int {
	return property.hub.count()
}

// Close closes every subscription. Later subscriptions are returned
// already closed. Close is idempotent.
func (property *Property[T]) Close() {
	property.hub.closeAll()
}
