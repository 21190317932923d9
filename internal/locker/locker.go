// Package locker serializes mutating operations per order. Every state
// transition, payment reconciliation and location report on the same
// order id runs under the same mutex; operations on different orders do
// not contend. Gateway round-trips must happen before the lock is taken.
package locker

import "sync"

type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*lockEntry)}
}

func (l *KeyedLocker) Lock(key string) {
	l.mu.Lock()
	entry := l.locks[key]
	if entry == nil {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *KeyedLocker) Unlock(key string) {
	l.mu.Lock()
	entry := l.locks[key]
	if entry == nil {
		l.mu.Unlock()
		panic("locker: unlock of unheld key " + key)
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
