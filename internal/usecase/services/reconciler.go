package services

import (
	"context"
	"time"

	"github.com/custodia/wallet-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/logger"
	"github.com/custodia/wallet-ledger/internal/metrics"
)

const (
	abandonedReason = "abandoned by recovery sweep"

	defaultSweepBatchSize = 100
)

// Reconciler closes transactions abandoned mid-flight. A record still PENDING
// after the grace period belongs to an operation that crashed between insert
// and settlement; the sweep marks it FAILED so derived balances stay honest.
// It never completes a transaction on a caller's behalf.
type Reconciler struct {
	store       repo_interfaces.LedgerStore
	collector   *metrics.Collector
	gracePeriod time.Duration
	interval    time.Duration
	batchSize   int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler(
	store repo_interfaces.LedgerStore,
	collector *metrics.Collector,
	gracePeriod time.Duration,
	interval time.Duration,
) *Reconciler {
	if collector == nil {
		collector = metrics.NewCollector()
	}

	return &Reconciler{
		store:       store,
		collector:   collector,
		gracePeriod: gracePeriod,
		interval:    interval,
		batchSize:   defaultSweepBatchSize,
	}
}

// Start runs the sweep loop in the background until Stop is called.
func (r *Reconciler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	logger.Info("reconciler started", logger.Fields{
		"gracePeriod": r.gracePeriod.String(),
		"interval":    r.interval.String(),
	})

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciler stopped", logger.Fields{})
			return
		case <-ticker.C:
			closed, err := r.SweepOnce(ctx)
			if err != nil {
				logger.Error("reconciler sweep failed", err, logger.Fields{})
				continue
			}
			if closed > 0 {
				logger.Info("reconciler closed stale pending transactions", logger.Fields{
					"count": closed,
				})
			}
		}
	}
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// SweepOnce claims one batch of stale PENDING records and fails them, all in
// one store transaction so a crashed sweep leaves nothing half-done.
func (r *Reconciler) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.gracePeriod)

	var closed int
	err := r.store.InTransaction(ctx, func(txStore repo_interfaces.LedgerStore) error {
		stale, err := txStore.ListStalePending(ctx, cutoff, r.batchSize)
		if err != nil {
			return err
		}

		for _, txn := range stale {
			if _, err := txStore.UpdateTransactionStatus(ctx, txn.ID, domain.StatusFailed, "", abandonedReason); err != nil {
				return err
			}
			closed++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	r.collector.RecordReconciledPending(closed)

	return closed, nil
}
