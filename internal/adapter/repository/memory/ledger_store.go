package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia/wallet-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/custodia/wallet-ledger/internal/domain"
)

type LedgerStore struct {
	mu           sync.RWMutex
	transactions map[string]domain.Transaction
	accountIndex map[string][]string
	accounts     *AccountStore

	// txMu serializes units of work so InTransaction can snapshot and, on
	// error, restore state as one atomic step.
	txMu sync.Mutex
}

func NewLedgerStore(accounts *AccountStore) *LedgerStore {
	return &LedgerStore{
		transactions: make(map[string]domain.Transaction),
		accountIndex: make(map[string][]string),
		accounts:     accounts,
	}
}

func (s *LedgerStore) CreateTransaction(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[txn.ID]; exists {
		return domain.Transaction{}, fmt.Errorf("transaction %s already exists", txn.ID)
	}

	now := time.Now().UTC()
	txn.Status = domain.StatusPending
	txn.TxHash = ""
	txn.FailureReason = ""
	txn.CreatedAt = now
	txn.UpdatedAt = now

	s.transactions[txn.ID] = txn
	s.accountIndex[txn.AccountID] = append(s.accountIndex[txn.AccountID], txn.ID)

	return txn, nil
}

func (s *LedgerStore) UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus, txHash, failureReason string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, exists := s.transactions[id]
	if !exists {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}
	if !txn.Status.CanTransitionTo(status) {
		return domain.Transaction{}, &domain.InvalidTransitionError{From: txn.Status, To: status}
	}

	txn.Status = status
	txn.TxHash = txHash
	txn.FailureReason = failureReason
	txn.UpdatedAt = time.Now().UTC()
	s.transactions[id] = txn

	return txn, nil
}

func (s *LedgerStore) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, exists := s.transactions[id]
	if !exists {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}

	return txn, nil
}

func (s *LedgerStore) AggregateCompleted(ctx context.Context, accountID string) (domain.AccountTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := domain.AccountTotals{}
	for _, id := range s.accountIndex[accountID] {
		txn := s.transactions[id]
		if txn.Status != domain.StatusCompleted {
			continue
		}
		switch txn.Kind {
		case domain.KindDeposit:
			totals.Deposits = totals.Deposits.Add(txn.Amount)
		case domain.KindWithdrawal:
			totals.Withdrawals = totals.Withdrawals.Add(txn.Amount)
		}
	}

	return totals, nil
}

func (s *LedgerStore) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.accountIndex[accountID]
	result := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.transactions[id])
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	start := offset
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	if start >= len(result) {
		return []domain.Transaction{}, nil
	}

	return result[start:end], nil
}

func (s *LedgerStore) HasCompletedCompensation(ctx context.Context, transactionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, txn := range s.transactions {
		if txn.CompensatesID == transactionID && txn.Status == domain.StatusCompleted {
			return true, nil
		}
	}

	return false, nil
}

func (s *LedgerStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.Status == domain.StatusPending && txn.CreatedAt.Before(olderThan) {
			result = append(result, txn)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}

func (s *LedgerStore) LockAccountRow(ctx context.Context, accountID string) error {
	exists, err := s.accounts.Exists(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrAccountNotFound
	}

	return nil
}

func (s *LedgerStore) InTransaction(ctx context.Context, fn func(repo_interfaces.LedgerStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snapshot)
		return err
	}

	return nil
}

type ledgerSnapshot struct {
	transactions map[string]domain.Transaction
	accountIndex map[string][]string
}

func (s *LedgerStore) snapshot() ledgerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make(map[string]domain.Transaction, len(s.transactions))
	for id, txn := range s.transactions {
		transactions[id] = txn
	}

	accountIndex := make(map[string][]string, len(s.accountIndex))
	for accountID, ids := range s.accountIndex {
		accountIndex[accountID] = append([]string(nil), ids...)
	}

	return ledgerSnapshot{transactions: transactions, accountIndex: accountIndex}
}

func (s *LedgerStore) restore(snap ledgerSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = snap.transactions
	s.accountIndex = snap.accountIndex
}
