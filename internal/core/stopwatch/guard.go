package stopwatch

import "sync"

// RunGuard lets at most one of the stopwatches sharing it run at a time.
// A nil guard allows everything.
type RunGuard struct {
	mu     sync.Mutex
	holder *Engine
}

// NewRunGuard creates an unheld guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// Held reports whether some stopwatch currently holds the guard.
func (guard *RunGuard) Held() bool {
	if guard == nil {
		return false
	}
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.holder != nil
}

func (guard *RunGuard) acquire(engine *Engine) bool {
	if guard == nil {
		return true
	}
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.holder != nil && guard.holder != engine {
		return false
	}
	guard.holder = engine
	return true
}

func (guard *RunGuard) release(engine *Engine) {
	if guard == nil {
		return
	}
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.holder == engine {
		guard.holder = nil
	}
}
