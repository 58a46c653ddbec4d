// Package syncx holds small concurrency helpers shared by the sync
// orchestrator and the reconciliation engine.
package syncx

import "sync"

// KMutex serializes work per key. Every mutating operation on an entity
// locks its identifier so an in-flight update and a reconciliation pass
// cannot interleave writes on the same row. Locks are reference counted and
// removed once the last holder releases them, so the map does not grow with
// the number of entities ever touched.
type KMutex struct {
	mu    sync.Mutex
	locks map[string]*klock
}

type klock struct {
	mu   sync.Mutex
	refs int
}

func NewKMutex() *KMutex {
	return &KMutex{locks: make(map[string]*klock)}
}

func (k *KMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &klock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *KMutex) Unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
