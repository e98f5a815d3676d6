package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/marsprotocol/vault-engine/pkg/lock"
)

var ErrConcurrentAcquire = errors.New("cannot call Acquire concurrently")

// LockManager is an in process lock.Manager. Locks with the same name exclude
// each other across every handle created by the same manager.
type LockManager struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLockManager() *LockManager {
	return &LockManager{
		slots: make(map[string]chan struct{}),
	}
}

// Create implements lock.Manager.
func (lm *LockManager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	slot, ok := lm.slots[name]
	if !ok {
		slot = make(chan struct{}, 1)
		lm.slots[name] = slot
	}

	return &Lock{slot: slot}, nil
}

// Lock is a lock.DistributedLock backed by a single slot channel.
type Lock struct {
	slot chan struct{}

	mu     sync.Mutex
	lostCh chan struct{}
}

// Acquire implements lock.DistributedLock.
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	if l.lostCh != nil {
		l.mu.Unlock()
		return nil, ErrConcurrentAcquire
	}
	l.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.lostCh = make(chan struct{})
	return l.lostCh, nil
}

// Unlock implements lock.DistributedLock.
func (l *Lock) Unlock(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lostCh == nil {
		return nil
	}

	close(l.lostCh)
	l.lostCh = nil
	<-l.slot
	return nil
}

// IsLocked implements lock.DistributedLock.
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lostCh != nil
}
