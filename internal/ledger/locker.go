package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/custodia/wallet-ledger/internal/domain"
)

// AccountLocker serializes balance-affecting operations per account. Each
// account gets its own single-slot semaphore, so operations on distinct
// accounts never contend. Acquisition waits at most the configured timeout
// and then fails with ErrLockContention, which callers may retry.
type AccountLocker struct {
	mu      sync.Mutex
	sems    map[string]*semaphore.Weighted
	timeout time.Duration
}

const DefaultLockWaitTimeout = 5 * time.Second

func NewAccountLocker(timeout time.Duration) *AccountLocker {
	if timeout <= 0 {
		timeout = DefaultLockWaitTimeout
	}
	return &AccountLocker{
		sems:    make(map[string]*semaphore.Weighted),
		timeout: timeout,
	}
}

// Acquire takes the account's lock, returning the release function. The lock
// must be held from the balance read through the final status write of an
// operation.
func (l *AccountLocker) Acquire(ctx context.Context, accountID string) (release func(), err error) {
	sem := l.semFor(accountID)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrLockContention, accountID)
		}
		return nil, err
	}

	return func() { sem.Release(1) }, nil
}

func (l *AccountLocker) semFor(accountID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.sems[accountID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[accountID] = sem
	}
	return sem
}
