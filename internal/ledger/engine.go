package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/custodia/wallet-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/logger"
	"github.com/custodia/wallet-ledger/internal/metrics"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	insufficientFundsReason = "insufficient funds"
)

// Engine executes ledger operations. Each mutating operation holds the
// account's lock and runs inside one store transaction, so the balance a
// withdrawal checks is the balance it settles against.
type Engine struct {
	store     repo_interfaces.LedgerStore
	accounts  repo_interfaces.AccountStore
	locker    *AccountLocker
	collector *metrics.Collector
}

func NewEngine(
	store repo_interfaces.LedgerStore,
	accounts repo_interfaces.AccountStore,
	locker *AccountLocker,
	collector *metrics.Collector,
) *Engine {
	if collector == nil {
		collector = metrics.NewCollector()
	}

	return &Engine{
		store:     store,
		accounts:  accounts,
		locker:    locker,
		collector: collector,
	}
}

// Deposit credits the account. The record is appended PENDING and settles to
// COMPLETED in the same unit of work.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	defer e.observe("deposit", time.Now())

	logger.Info("ledger engine deposit request", logger.Fields{
		"accountId": accountID,
		"amount":    amount.String(),
	})

	txn, err := e.post(ctx, accountID, domain.KindDeposit, amount, "")
	if err != nil {
		logger.Error("ledger engine deposit failed", err, logger.Fields{
			"accountId": accountID,
		})
		return txn, err
	}

	logger.Info("ledger engine deposit success", logger.Fields{
		"accountId":     accountID,
		"transactionId": txn.ID,
	})

	return txn, nil
}

// Withdraw debits the account. When completed deposits cannot cover the
// amount the attempt is still recorded: the record settles to FAILED, the
// failure is returned alongside it, and the balance is untouched.
func (e *Engine) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	defer e.observe("withdrawal", time.Now())

	logger.Info("ledger engine withdrawal request", logger.Fields{
		"accountId": accountID,
		"amount":    amount.String(),
	})

	txn, err := e.post(ctx, accountID, domain.KindWithdrawal, amount, "")
	if err != nil {
		logger.Error("ledger engine withdrawal failed", err, logger.Fields{
			"accountId":     accountID,
			"transactionId": txn.ID,
		})
		return txn, err
	}

	logger.Info("ledger engine withdrawal success", logger.Fields{
		"accountId":     accountID,
		"transactionId": txn.ID,
	})

	return txn, nil
}

// GetBalance derives the balance from completed transactions. Lock-free: the
// aggregate runs as a single read.
func (e *Engine) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	defer e.observe("get_balance", time.Now())

	exists, err := e.accounts.Exists(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("check account exists: %w", err)
	}
	if !exists {
		return decimal.Zero, domain.ErrAccountNotFound
	}

	return Balance(ctx, e.store, accountID)
}

// GetHistory lists the account's transactions newest first, failed attempts
// included.
func (e *Engine) GetHistory(ctx context.Context, accountID string, limit, offset int) ([]domain.Transaction, error) {
	defer e.observe("get_history", time.Now())

	exists, err := e.accounts.Exists(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("check account exists: %w", err)
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	return e.store.ListTransactions(ctx, accountID, limit, offset)
}

func (e *Engine) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	defer e.observe("get_transaction", time.Now())

	return e.store.GetTransaction(ctx, id)
}

// Reverse appends a compensating transaction of the opposite kind. Only a
// COMPLETED transaction can be compensated, at most once; the original record
// is never touched. Reversing a deposit is a withdrawal and goes through the
// normal sufficiency check.
func (e *Engine) Reverse(ctx context.Context, transactionID string) (domain.Transaction, error) {
	defer e.observe("reverse", time.Now())

	logger.Info("ledger engine reverse request", logger.Fields{
		"transactionId": transactionID,
	})

	original, err := e.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if original.Status != domain.StatusCompleted {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %s is %s", domain.ErrNotReversible, transactionID, original.Status)
	}

	kind := domain.KindWithdrawal
	if original.Kind == domain.KindWithdrawal {
		kind = domain.KindDeposit
	}

	compensation, err := e.post(ctx, original.AccountID, kind, original.Amount, original.ID)
	if err != nil {
		logger.Error("ledger engine reverse failed", err, logger.Fields{
			"transactionId":  transactionID,
			"compensationId": compensation.ID,
		})
		return compensation, err
	}

	logger.Info("ledger engine reverse success", logger.Fields{
		"transactionId":  transactionID,
		"compensationId": compensation.ID,
	})

	return compensation, nil
}

// post appends one transaction under the account's lock and inside one store
// transaction. Deposits settle unconditionally; withdrawals read the balance
// under the same transaction first and settle to FAILED when it cannot cover
// the amount, in which case the committed FAILED record is returned together
// with ErrInsufficientFunds. A non-empty compensatesID marks the record as a
// compensation and rejects a second reversal of the same transaction.
func (e *Engine) post(ctx context.Context, accountID string, kind domain.TransactionKind, amount decimal.Decimal, compensatesID string) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, amount)
	}

	lockStart := time.Now()
	release, err := e.locker.Acquire(ctx, accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	e.collector.RecordLockWait(time.Since(lockStart))
	defer release()

	var (
		result       domain.Transaction
		insufficient bool
	)
	err = e.store.InTransaction(ctx, func(txStore repo_interfaces.LedgerStore) error {
		if err := txStore.LockAccountRow(ctx, accountID); err != nil {
			return err
		}

		if compensatesID != "" {
			reversed, err := txStore.HasCompletedCompensation(ctx, compensatesID)
			if err != nil {
				return err
			}
			if reversed {
				return fmt.Errorf("%w: transaction %s", domain.ErrAlreadyReversed, compensatesID)
			}
		}

		record := domain.NewTransaction(accountID, kind, amount)
		record.CompensatesID = compensatesID

		created, err := txStore.CreateTransaction(ctx, record)
		if err != nil {
			return err
		}

		if kind == domain.KindWithdrawal {
			balance, err := Balance(ctx, txStore, accountID)
			if err != nil {
				return err
			}
			if balance.LessThan(amount) {
				failed, err := txStore.UpdateTransactionStatus(ctx, created.ID, domain.StatusFailed, "", insufficientFundsReason)
				if err != nil {
					return err
				}
				// Returning nil commits: failed attempts stay on the ledger.
				result = failed
				insufficient = true
				return nil
			}
		}

		completed, err := txStore.UpdateTransactionStatus(ctx, created.ID, domain.StatusCompleted, settlementHash(created.ID), "")
		if err != nil {
			return err
		}
		result = completed

		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	e.collector.RecordTransaction(string(result.Kind), string(result.Status))

	if insufficient {
		return result, fmt.Errorf("%w: account %s", domain.ErrInsufficientFunds, accountID)
	}

	return result, nil
}

func (e *Engine) observe(operation string, start time.Time) {
	e.collector.RecordOperation(operation, time.Since(start))
}

// settlementHash stands in for the hash a real settlement layer would return.
func settlementHash(transactionID string) string {
	return fmt.Sprintf("simulated_hash_%s", transactionID)
}
