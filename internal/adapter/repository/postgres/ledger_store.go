package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia/wallet-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/logger"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// every store method reads the same whether it runs standalone or inside a
// unit of work.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type LedgerStore struct {
	db *sql.DB // nil on transaction-bound views
	q  querier
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db, q: db}
}

const transactionColumns = `id, account_id, kind, amount, status, tx_hash, failure_reason, compensates_id, created_at, updated_at`

func (s *LedgerStore) CreateTransaction(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	logger.Info("ledger store create transaction", logger.Fields{
		"transactionId": txn.ID,
		"accountId":     txn.AccountID,
		"kind":          txn.Kind,
		"amount":        txn.Amount.String(),
	})

	const query = `
INSERT INTO transactions (
	id,
	account_id,
	kind,
	amount,
	status,
	compensates_id
) VALUES ($1, $2, $3, $4, 'pending', NULLIF($5, '')::uuid)
RETURNING created_at, updated_at`

	if err := s.q.QueryRowContext(
		ctx,
		query,
		txn.ID,
		txn.AccountID,
		txn.Kind,
		txn.Amount,
		txn.CompensatesID,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt); err != nil {
		logger.Error("ledger store create transaction failed", err, logger.Fields{
			"transactionId": txn.ID,
			"accountId":     txn.AccountID,
		})
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	// Records always enter the ledger pending, whatever the caller carried.
	txn.Status = domain.StatusPending
	txn.TxHash = ""
	txn.FailureReason = ""

	logger.Info("ledger store create transaction success", logger.Fields{
		"transactionId": txn.ID,
	})

	return txn, nil
}

func (s *LedgerStore) UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus, txHash, failureReason string) (domain.Transaction, error) {
	logger.Info("ledger store update transaction status", logger.Fields{
		"transactionId": id,
		"status":        status,
	})

	if !status.Terminal() {
		return domain.Transaction{}, &domain.InvalidTransitionError{From: domain.StatusPending, To: status}
	}

	const query = `
UPDATE transactions
SET status = $2,
    tx_hash = $3,
    failure_reason = $4,
    updated_at = NOW()
WHERE id = $1
  AND status = 'pending'
RETURNING ` + transactionColumns

	var txn domain.Transaction
	err := scanTransaction(s.q.QueryRowContext(ctx, query, id, status, txHash, failureReason), &txn)
	if err == nil {
		logger.Info("ledger store update transaction status success", logger.Fields{
			"transactionId": id,
			"status":        status,
		})
		return txn, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Error("ledger store update transaction status failed", err, logger.Fields{
			"transactionId": id,
		})
		return domain.Transaction{}, fmt.Errorf("update transaction status: %w", err)
	}

	// No pending row matched: the record is missing or already terminal.
	var current domain.TransactionStatus
	if scanErr := s.q.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&current); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrRecordNotFound
		}
		return domain.Transaction{}, fmt.Errorf("check transaction status: %w", scanErr)
	}

	logger.Info("ledger store rejected transition from terminal status", logger.Fields{
		"transactionId": id,
		"from":          current,
		"to":            status,
	})

	return domain.Transaction{}, &domain.InvalidTransitionError{From: current, To: status}
}

func (s *LedgerStore) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	const query = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1`

	var txn domain.Transaction
	if err := scanTransaction(s.q.QueryRowContext(ctx, query, id), &txn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrRecordNotFound
		}
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return txn, nil
}

func (s *LedgerStore) AggregateCompleted(ctx context.Context, accountID string) (domain.AccountTotals, error) {
	const query = `
SELECT
	COALESCE(SUM(amount) FILTER (WHERE kind = 'deposit'), 0),
	COALESCE(SUM(amount) FILTER (WHERE kind = 'withdrawal'), 0)
FROM transactions
WHERE account_id = $1
  AND status = 'completed'`

	var totals domain.AccountTotals
	if err := s.q.QueryRowContext(ctx, query, accountID).Scan(&totals.Deposits, &totals.Withdrawals); err != nil {
		return domain.AccountTotals{}, fmt.Errorf("aggregate completed transactions: %w", err)
	}

	return totals, nil
}

func (s *LedgerStore) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.Transaction, error) {
	const query = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := s.q.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		var txn domain.Transaction
		if err := scanTransaction(rows, &txn); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return transactions, nil
}

func (s *LedgerStore) HasCompletedCompensation(ctx context.Context, transactionID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1
	FROM transactions
	WHERE compensates_id = $1
	  AND status = 'completed'
)`

	var exists bool
	if err := s.q.QueryRowContext(ctx, query, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check compensation exists: %w", err)
	}

	return exists, nil
}

func (s *LedgerStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	// SKIP LOCKED keeps concurrent sweeps from claiming the same rows.
	const query = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE status = 'pending'
  AND created_at < $1
ORDER BY created_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

	rows, err := s.q.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		var txn domain.Transaction
		if err := scanTransaction(rows, &txn); err != nil {
			return nil, fmt.Errorf("scan stale pending transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale pending transactions: %w", err)
	}

	return transactions, nil
}

func (s *LedgerStore) LockAccountRow(ctx context.Context, accountID string) error {
	const query = `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`

	var id string
	if err := s.q.QueryRowContext(ctx, query, accountID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("lock account row: %w", err)
	}

	return nil
}

func (s *LedgerStore) InTransaction(ctx context.Context, fn func(repo_interfaces.LedgerStore) error) error {
	if s.db == nil {
		// Already transaction-bound: nested units join the enclosing one.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}

	if err := fn(&LedgerStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("ledger store rollback failed", rbErr, logger.Fields{})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}

	return nil
}

func scanTransaction(row rowScanner, txn *domain.Transaction) error {
	var compensates sql.NullString
	if err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Kind,
		&txn.Amount,
		&txn.Status,
		&txn.TxHash,
		&txn.FailureReason,
		&compensates,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	); err != nil {
		return err
	}
	if compensates.Valid {
		txn.CompensatesID = compensates.String
	}

	return nil
}
