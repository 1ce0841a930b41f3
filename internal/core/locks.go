package core

import "sync"

// SlotLocks serializes state changes per slot key. The occupancy and
// queue managers share one instance so that check-and-create,
// position assignment and release-plus-promotion are each atomic with
// respect to concurrent callers targeting the same slot.
type SlotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSlotLocks creates an empty lock registry.
func NewSlotLocks() *SlotLocks {
	return &SlotLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function:
//
//	defer locks.Lock(slotID)()
func (l *SlotLocks) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
