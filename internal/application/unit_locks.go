package application

import "sync"

// unitLocks serializes mutating calendar operations per unit. The store's
// atomic reserve is the correctness guarantee; this keeps bulk rewrites from
// interleaving their delete and insert phases on the same unit.
type unitLocks struct {
	mu    sync.Mutex
	units map[string]*sync.Mutex
}

func newUnitLocks() *unitLocks {
	return &unitLocks{units: make(map[string]*sync.Mutex)}
}

// lock acquires the unit's mutex and returns its unlock function.
func (l *unitLocks) lock(unitID string) func() {
	l.mu.Lock()
	m, ok := l.units[unitID]
	if !ok {
		m = &sync.Mutex{}
		l.units[unitID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
