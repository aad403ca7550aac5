package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string
type TransactionStatus string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"

	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is a single immutable ledger entry. Records are appended in
// PENDING and move exactly once to COMPLETED or FAILED; they are never
// deleted or rewritten. Reversing a completed transaction appends a new
// compensating record (CompensatesID set) instead of touching history.
type Transaction struct {
	ID            string
	AccountID     string
	Kind          TransactionKind
	Amount        decimal.Decimal
	Status        TransactionStatus
	TxHash        string
	FailureReason string
	CompensatesID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvalidTransitionError reports an attempt to move a transaction out of a
// terminal state, or into a state the machine does not allow.
type InvalidTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transaction status transition: %s -> %s", e.From, e.To)
}

// CanTransitionTo reports whether the status machine allows moving from s to
// next. PENDING may become COMPLETED or FAILED; both of those are terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s != StatusPending {
		return false
	}
	return next == StatusCompleted || next == StatusFailed
}

func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// NewTransaction builds a PENDING record ready for the store. Timestamps are
// assigned by the store on insert.
func NewTransaction(accountID string, kind TransactionKind, amount decimal.Decimal) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Status:    StatusPending,
	}
}

// TransitionTo applies the status machine, rejecting any move the machine
// does not allow.
func (t *Transaction) TransitionTo(next TransactionStatus) error {
	if !t.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: t.Status, To: next}
	}
	t.Status = next
	return nil
}

// Complete marks a pending transaction completed, recording the settlement
// hash when one is known.
func (t *Transaction) Complete(txHash string) error {
	if err := t.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	t.TxHash = txHash
	return nil
}

// Fail marks a pending transaction failed with the given reason. This is the
// only rollback the ledger supports: the record stays in history.
func (t *Transaction) Fail(reason string) error {
	if err := t.TransitionTo(StatusFailed); err != nil {
		return err
	}
	t.FailureReason = reason
	return nil
}

// AccountTotals is the aggregate the balance calculator works from: the sums
// of completed deposits and completed withdrawals for one account.
type AccountTotals struct {
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
}

// Net is the derived balance: completed deposits minus completed withdrawals.
func (t AccountTotals) Net() decimal.Decimal {
	return t.Deposits.Sub(t.Withdrawals)
}
