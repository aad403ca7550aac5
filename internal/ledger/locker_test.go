package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/custodia/wallet-ledger/internal/domain"
)

func TestAccountLockerSerializesSameAccount(t *testing.T) {
	locker := NewAccountLocker(time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error acquiring free lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Acquire(ctx, "acc-1")
		if err != nil {
			t.Errorf("second acquire failed: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed after release")
	}
}

func TestAccountLockerIndependentAccounts(t *testing.T) {
	locker := NewAccountLocker(50 * time.Millisecond)
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "acc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, "acc-b")
	if err != nil {
		t.Fatalf("expected independent account to acquire immediately, got %v", err)
	}
	releaseB()
}

func TestAccountLockerTimesOutWithContention(t *testing.T) {
	locker := NewAccountLocker(30 * time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	_, err = locker.Acquire(ctx, "acc-1")
	if !errors.Is(err, domain.ErrLockContention) {
		t.Fatalf("expected ErrLockContention, got %v", err)
	}
}

func TestAccountLockerMutualExclusionUnderLoad(t *testing.T) {
	locker := NewAccountLocker(5 * time.Second)
	ctx := context.Background()

	var inCritical int
	var maxInCritical int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := locker.Acquire(ctx, "hot-account")
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Fatalf("expected at most one holder at a time, observed %d", maxInCritical)
	}
}
