package router

import "sync"

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per string key. Two turns for the same
// (tenant, customer) pair must not race on read-then-write of conversation
// state; independent pairs stay concurrent.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// lock acquires the key's mutex and returns its release func. Lock entries
// are reference-counted so the map does not grow with customer cardinality.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
