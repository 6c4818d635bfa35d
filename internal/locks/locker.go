// Package locks provides keyed mutual exclusion for wallet mutations and batch runs.
package locks

import (
	"context"
	"sync"

	"github.com/flexinvest/platform/internal/domain"
)

// AccrualRunKey serialises daily accrual runs
const AccrualRunKey = "accrual:run"

// WalletKey returns the lock key guarding a user's wallet
func WalletKey(userID string) string {
	return "wallet:" + userID
}

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker hands out exclusive locks by key.
//
// Lock blocks until the key is free or ctx is done.
// TryLock returns domain.ErrLockNotObtained immediately if the key is held.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
	TryLock(ctx context.Context, key string) (Unlock, error)
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// removed once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{} // capacity 1; a token in the channel means held
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *KeyedMutex) unlocker(key string, e *keyedEntry) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}
}

// Lock implements Locker
func (k *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	e := k.acquire(key)

	select {
	case e.ch <- struct{}{}:
		return k.unlocker(key, e), nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

// TryLock implements Locker
func (k *KeyedMutex) TryLock(_ context.Context, key string) (Unlock, error) {
	e := k.acquire(key)

	select {
	case e.ch <- struct{}{}:
		return k.unlocker(key, e), nil
	default:
		k.release(key, e)
		return nil, domain.ErrLockNotObtained
	}
}

// Held returns the number of keys currently held or waited on
func (k *KeyedMutex) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
