package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
)

// keyedLock is a one-slot semaphore. Holding the lock means owning the slot.
type keyedLock struct {
	slot chan struct{}
	refs int
}

// KeyedLocker hands out one lock per key with a bounded wait. Entries are
// dropped once nobody holds or waits on them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

// NewKeyedLocker creates an empty locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

func (l *KeyedLocker) ref(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{slot: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyedLocker) unref(key string, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Acquire waits at most wait for key. It fails with apperrors.ErrBusy on timeout.
func (l *KeyedLocker) Acquire(ctx context.Context, key string, wait time.Duration) error {
	kl := l.ref(key)

	select {
	case kl.slot <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case kl.slot <- struct{}{}:
		return nil
	case <-timer.C:
		l.unref(key, kl)
		return fmt.Errorf("%w: lock %s not acquired within %s", apperrors.ErrBusy, key, wait)
	case <-ctx.Done():
		l.unref(key, kl)
		return ctx.Err()
	}
}

// Release frees key. It must only be called by the holder.
func (l *KeyedLocker) Release(key string) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-kl.slot
	l.unref(key, kl)
}

// size is the number of live lock entries.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
