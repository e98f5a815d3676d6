package sync

import (
	base "sync"
)

// KeyedLock hands out a mutex per key. Unlike StripedLock, two keys never
// share a lock. A key's mutex only lives while it is held or awaited.
type KeyedLock struct {
	mu      base.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   base.Mutex
	refs int
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		entries: make(map[string]*keyedEntry),
	}
}

// Lock blocks until key is held and returns the function releasing it.
func (l *KeyedLock) Lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &keyedEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once base.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}

func (l *KeyedLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
