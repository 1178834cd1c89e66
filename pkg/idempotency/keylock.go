package idempotency

import "sync"

// keyLocks hands out in-process locks per idempotency key. Lock entries
// are reference counted and removed once the last holder releases, so
// the map does not grow with the key space.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// tryAcquire attempts to take the lock for key without blocking. On
// success it returns a release function and true.
func (k *keyLocks) tryAcquire(key string) (func(), bool) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			k.unref(key, lock)
		}, true
	default:
		k.unref(key, lock)
		return nil, false
	}
}

func (k *keyLocks) unref(key string, lock *keyLock) {
	k.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
