package service

import "sync"

// tupleLocks serializes lifecycle decisions per issue tuple so concurrent
// scans touching the same column cannot interleave a find-then-create.
// Locks are created lazily and never reclaimed; the key space is bounded by
// the number of classified columns.
type tupleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTupleLocks() *tupleLocks {
	return &tupleLocks{locks: make(map[string]*sync.Mutex)}
}

func (t *tupleLocks) lock(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
