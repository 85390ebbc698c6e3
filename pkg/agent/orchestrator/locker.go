package orchestrator

import (
	"context"
	"sync"
)

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// SessionLocker serializes work per key. Entries live only while someone
// holds or waits for them, so idle sessions cost nothing.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the lock and must be called exactly once.
func (l *SessionLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *SessionLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len is the number of keys currently held or awaited.
func (l *SessionLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
