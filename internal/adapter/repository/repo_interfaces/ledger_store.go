package repo_interfaces

import (
	"context"
	"time"

	"github.com/custodia/wallet-ledger/internal/domain"
)

// LedgerStore is the durable, append-only transaction ledger. Records are
// inserted PENDING and updated exactly once to a terminal status; nothing is
// ever deleted.
type LedgerStore interface {
	// CreateTransaction appends the record in PENDING regardless of the
	// status carried on the value, and returns the stored row.
	CreateTransaction(ctx context.Context, txn domain.Transaction) (domain.Transaction, error)

	// UpdateTransactionStatus finalizes a PENDING record. A record already in
	// a terminal state is never modified: the store reports an
	// InvalidTransitionError instead.
	UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus, txHash, failureReason string) (domain.Transaction, error)

	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)

	// AggregateCompleted sums completed deposits and withdrawals for one
	// account in a single aggregate read.
	AggregateCompleted(ctx context.Context, accountID string) (domain.AccountTotals, error)

	// ListTransactions returns the account's records newest first, failed
	// attempts included.
	ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.Transaction, error)

	// HasCompletedCompensation reports whether a completed compensating
	// record already references the given transaction.
	HasCompletedCompensation(ctx context.Context, transactionID string) (bool, error)

	// ListStalePending claims PENDING records older than the cutoff for
	// reconciliation, skipping rows another sweep already holds.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)

	// LockAccountRow takes the account's row lock for the duration of the
	// surrounding transaction, failing with ErrAccountNotFound when the
	// account does not exist. Meaningful only inside InTransaction.
	LockAccountRow(ctx context.Context, accountID string) error

	// InTransaction runs fn against a store view whose writes commit or roll
	// back as one unit. fn returning an error rolls everything back.
	InTransaction(ctx context.Context, fn func(LedgerStore) error) error
}

// AccountStore persists wallet accounts. The ledger core only ever reads
// identity from it; key material is opaque.
type AccountStore interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByPublicAddress(ctx context.Context, publicAddress string) (domain.Account, error)
	Exists(ctx context.Context, id string) (bool, error)
}
