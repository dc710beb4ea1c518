package engine

import (
	"sync"

	"oregrid/internal/strategy"
)

// lockedState owns the shared martingale state. Critical sections are short
// in-memory read-modify-writes; no I/O runs while the lock is held.
type lockedState struct {
	mu    sync.Mutex
	state *strategy.State
}

func (l *lockedState) withLock(fn func(*strategy.State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.state)
}
