// Package lock provides a context aware mutex for critical sections that span
// blocking calls.
package lock

import (
	"context"
	"sync"
)

// Release unlocks the mutex; calling it more than once is a no-op.
type Release func()

// Mutex is a non reentrant mutex whose acquisition can be abandoned through a context.
// Acquiring it twice from the same flow deadlocks until the context is done.
type Mutex struct {
	sem chan struct{}
}

// Lock waits until the mutex is acquired or ctx is done.
func (m *Mutex) Lock(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m.sem <- struct{}{}:
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-m.sem })
	}, nil
}

// TryLock acquires the mutex only when it is free.
func (m *Mutex) TryLock() (Release, bool) {
	select {
	case m.sem <- struct{}{}:
	default:
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-m.sem })
	}, true
}

// Do runs fn while holding the mutex and releases it on every exit path.
func (m *Mutex) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := m.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Locked returns true while the mutex is held.
func (m *Mutex) Locked() bool {
	return len(m.sem) == 1
}

// New creates an unlocked Mutex.
func New() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}
