package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/custodia/wallet-ledger/internal/adapter/repository/memory"
	"github.com/custodia/wallet-ledger/internal/domain"
)

const testAccountID = "11111111-1111-1111-1111-111111111111"

func newTestEngine(t *testing.T) (*Engine, *memory.LedgerStore) {
	t.Helper()

	accounts := memory.NewAccountStore()
	store := memory.NewLedgerStore(accounts)

	_, err := accounts.Create(context.Background(), domain.Account{
		ID:                  testAccountID,
		PublicAddress:       "0xABCDEF0123456789",
		PrivateKeyEncrypted: "sealed",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	return NewEngine(store, accounts, NewAccountLocker(time.Second), nil), store
}

func TestEngineDepositSettlesCompleted(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	txn, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100.50"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", txn.Status)
	}
	if txn.Kind != domain.KindDeposit {
		t.Fatalf("expected deposit kind, got %s", txn.Kind)
	}
	if txn.TxHash != "simulated_hash_"+txn.ID {
		t.Fatalf("unexpected settlement hash %q", txn.TxHash)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100.50")) {
		t.Fatalf("expected balance 100.50, got %s", balance)
	}
}

func TestEngineBalanceSubtractsWithdrawals(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100.50")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	txn, err := engine.Withdraw(ctx, testAccountID, decimal.RequireFromString("50.25"))
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", txn.Status)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("50.25")) {
		t.Fatalf("expected balance 50.25, got %s", balance)
	}
}

func TestEngineWithdrawInsufficientFundsRecordsFailedAttempt(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100.50")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, err := engine.Withdraw(ctx, testAccountID, decimal.RequireFromString("50.25")); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	txn, err := engine.Withdraw(ctx, testAccountID, decimal.RequireFromString("1000"))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if txn.Status != domain.StatusFailed {
		t.Fatalf("expected failed record, got %s", txn.Status)
	}
	if txn.FailureReason != "insufficient funds" {
		t.Fatalf("unexpected failure reason %q", txn.FailureReason)
	}
	if txn.TxHash != "" {
		t.Fatalf("failed attempt must not carry a hash, got %q", txn.TxHash)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("50.25")) {
		t.Fatalf("failed withdrawal must not move the balance, got %s", balance)
	}

	history, err := engine.GetHistory(ctx, testAccountID, 10, 0)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 records including the failed attempt, got %d", len(history))
	}
	if history[0].ID != txn.ID || history[0].Status != domain.StatusFailed {
		t.Fatalf("expected the failed attempt newest in history, got %+v", history[0])
	}
}

func TestEngineRejectsNonPositiveAmounts(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("-5")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative deposit, got %v", err)
	}
	if _, err := engine.Withdraw(ctx, testAccountID, decimal.Zero); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero withdrawal, got %v", err)
	}

	history, err := engine.GetHistory(ctx, testAccountID, 10, 0)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected amounts must not be recorded, got %d records", len(history))
	}
}

func TestEngineUnknownAccount(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, "missing", decimal.RequireFromString("1")); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for deposit, got %v", err)
	}
	if _, err := engine.GetBalance(ctx, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for balance, got %v", err)
	}
	if _, err := engine.GetHistory(ctx, "missing", 10, 0); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for history, got %v", err)
	}
}

func TestEngineBalanceZeroWithoutTransactions(t *testing.T) {
	engine, _ := newTestEngine(t)

	balance, err := engine.GetBalance(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}

func TestEngineHistoryNewestFirstAndPaged(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	ids := make([]string, 0, 4)
	for _, amount := range []string{"1", "2", "3", "4"} {
		txn, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString(amount))
		if err != nil {
			t.Fatalf("deposit failed: %v", err)
		}
		ids = append(ids, txn.ID)
	}

	history, err := engine.GetHistory(ctx, testAccountID, 10, 0)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 records, got %d", len(history))
	}
	if history[0].ID != ids[3] {
		t.Fatalf("expected newest record first, got %s", history[0].ID)
	}

	page, err := engine.GetHistory(ctx, testAccountID, 2, 0)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}

	tail, err := engine.GetHistory(ctx, testAccountID, 10, 3)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != ids[0] {
		t.Fatalf("expected the oldest record at offset 3, got %+v", tail)
	}

	empty, err := engine.GetHistory(ctx, testAccountID, 10, 100)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d records", len(empty))
	}
}

func TestEngineConcurrentWithdrawalsAtMostOneCompletes(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("100")
	if _, err := engine.Deposit(ctx, testAccountID, amount); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	const attempts = 8
	var completed atomic.Int32

	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := engine.Withdraw(ctx, testAccountID, amount)
			if err == nil {
				completed.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrInsufficientFunds) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected withdrawal error: %v", err)
	}

	if got := completed.Load(); got != 1 {
		t.Fatalf("expected exactly one completed withdrawal, got %d", got)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance after the winning withdrawal, got %s", balance)
	}

	history, err := engine.GetHistory(ctx, testAccountID, 50, 0)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(history) != attempts+1 {
		t.Fatalf("expected every attempt on the ledger, got %d records", len(history))
	}

	var failed int
	for _, txn := range history {
		if txn.Kind == domain.KindWithdrawal && txn.Status == domain.StatusFailed {
			failed++
		}
	}
	if failed != attempts-1 {
		t.Fatalf("expected %d failed attempts, got %d", attempts-1, failed)
	}
}

func TestEngineConcurrentDepositsAllComplete(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	const deposits = 10
	amount := decimal.RequireFromString("10")

	var g errgroup.Group
	for i := 0; i < deposits; i++ {
		g.Go(func() error {
			_, err := engine.Deposit(ctx, testAccountID, amount)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent deposit failed: %v", err)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected balance 100, got %s", balance)
	}
}

func TestEngineReverseDepositAppendsWithdrawal(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	compensation, err := engine.Reverse(ctx, original.ID)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if compensation.Kind != domain.KindWithdrawal {
		t.Fatalf("expected compensating withdrawal, got %s", compensation.Kind)
	}
	if !compensation.Amount.Equal(original.Amount) {
		t.Fatalf("expected amount %s, got %s", original.Amount, compensation.Amount)
	}
	if compensation.CompensatesID != original.ID {
		t.Fatalf("expected compensatesId %s, got %q", original.ID, compensation.CompensatesID)
	}
	if compensation.Status != domain.StatusCompleted {
		t.Fatalf("expected completed compensation, got %s", compensation.Status)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance after reversal, got %s", balance)
	}

	untouched, err := engine.GetTransaction(ctx, original.ID)
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	if untouched.Status != domain.StatusCompleted {
		t.Fatalf("reversal must not rewrite the original record, got %s", untouched.Status)
	}
}

func TestEngineReverseRejectsNonCompleted(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	failed, err := engine.Withdraw(ctx, testAccountID, decimal.RequireFromString("10"))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if _, err := engine.Reverse(ctx, failed.ID); !errors.Is(err, domain.ErrNotReversible) {
		t.Fatalf("expected ErrNotReversible, got %v", err)
	}
}

func TestEngineReverseTwiceRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, err := engine.Reverse(ctx, original.ID); err != nil {
		t.Fatalf("first reverse failed: %v", err)
	}
	if _, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100")); err != nil {
		t.Fatalf("second deposit failed: %v", err)
	}

	if _, err := engine.Reverse(ctx, original.ID); !errors.Is(err, domain.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
}

func TestEngineReverseDepositInsufficientFunds(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Deposit(ctx, testAccountID, decimal.RequireFromString("100"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, err := engine.Withdraw(ctx, testAccountID, decimal.RequireFromString("60")); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	compensation, err := engine.Reverse(ctx, original.ID)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if compensation.Status != domain.StatusFailed {
		t.Fatalf("expected failed compensation record, got %s", compensation.Status)
	}

	balance, err := engine.GetBalance(ctx, testAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("failed reversal must not move the balance, got %s", balance)
	}
}

func TestEngineReverseUnknownTransaction(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.Reverse(context.Background(), "missing"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
