package service

import "sync"

// attemptLocks serializes mutating operations per key. Rapid client retries
// and duplicate timeout triggers on the same attempt queue up behind one
// mutex; different keys never contend, there is no global lock. Entries are
// reference counted and removed once the last holder releases, so the map
// does not grow with every attempt the process ever touched.
type attemptLocks struct {
	mu sync.Mutex
	m  map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (l *attemptLocks) lock(key string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*keyedLock)
	}
	entry, ok := l.m[key]
	if !ok {
		entry = &keyedLock{}
		l.m[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
