package reconcile

import "sync"

// KeyLock is a non-blocking, non-reentrant exclusion lock per statistic key.
// A second acquirer is refused instead of queued, which bounds memory under
// bursts of repeated triggers.
type KeyLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyLock creates an empty lock set.
func NewKeyLock() *KeyLock {
	return &KeyLock{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for key and reports whether it succeeded.
func (l *KeyLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees key. Releasing a key that is not held is a no-op.
func (l *KeyLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// isHeld reports whether key is currently locked.
func (l *KeyLock) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[key]
	return busy
}
