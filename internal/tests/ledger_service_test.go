package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia/wallet-ledger/internal/adapter/http/models"
	"github.com/custodia/wallet-ledger/internal/adapter/repository/memory"
	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/ledger"
	"github.com/custodia/wallet-ledger/internal/usecase/services"
)

const ledgerTestAccountID = "11111111-1111-1111-1111-111111111111"

func newLedgerService(t *testing.T) *services.LedgerService {
	t.Helper()

	accounts := memory.NewAccountStore()
	store := memory.NewLedgerStore(accounts)

	_, err := accounts.Create(context.Background(), domain.Account{
		ID:                  ledgerTestAccountID,
		PublicAddress:       "0xABCDEF0123456789",
		PrivateKeyEncrypted: "sealed",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	engine := ledger.NewEngine(store, accounts, ledger.NewAccountLocker(time.Second), nil)
	return services.NewLedgerService(engine)
}

func TestLedgerServiceDepositValidationError(t *testing.T) {
	svc := services.NewLedgerService(nil)

	resp, err := svc.Deposit(context.Background(), models.DepositRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty deposit request")
	}
	if resp.Success {
		t.Fatal("expected unsuccessful response")
	}
	if resp.Message != "validation failed" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLedgerServiceWithdrawValidationError(t *testing.T) {
	svc := services.NewLedgerService(nil)

	_, err := svc.Withdraw(context.Background(), models.WithdrawRequest{
		AccountID: ledgerTestAccountID,
		Amount:    "0",
	})
	if err == nil {
		t.Fatal("expected validation error for zero withdrawal amount")
	}
}

func TestLedgerServiceDepositAndBalance(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	resp, err := svc.Deposit(ctx, models.DepositRequest{
		AccountID: ledgerTestAccountID,
		Amount:    "100.50",
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if !resp.Success || resp.Data == nil {
		t.Fatalf("expected successful response with data, got %+v", resp)
	}
	if resp.Data.Status != "completed" {
		t.Fatalf("expected completed, got %s", resp.Data.Status)
	}
	if resp.Data.Amount != "100.50000000" {
		t.Fatalf("expected amount 100.50000000, got %s", resp.Data.Amount)
	}

	balance, err := svc.GetBalance(ctx, ledgerTestAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance.Data == nil || balance.Data.Balance != "100.50000000" {
		t.Fatalf("expected balance 100.50000000, got %+v", balance.Data)
	}
}

func TestLedgerServiceWithdrawInsufficientFundsReturnsFailedRecord(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, models.DepositRequest{AccountID: ledgerTestAccountID, Amount: "10"}); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	resp, err := svc.Withdraw(ctx, models.WithdrawRequest{
		AccountID: ledgerTestAccountID,
		Amount:    "100",
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if resp.Success {
		t.Fatal("expected unsuccessful response")
	}
	if resp.Message != "insufficient funds" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.Data == nil {
		t.Fatal("expected the failed record on the response")
	}
	if resp.Data.Status != "failed" {
		t.Fatalf("expected failed record, got %s", resp.Data.Status)
	}
	if resp.Data.FailureReason != "insufficient funds" {
		t.Fatalf("unexpected failure reason %q", resp.Data.FailureReason)
	}

	balance, err := svc.GetBalance(ctx, ledgerTestAccountID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance.Data == nil || balance.Data.Balance != "10.00000000" {
		t.Fatalf("expected balance 10.00000000, got %+v", balance.Data)
	}
}

func TestLedgerServiceGetBalanceUnknownAccount(t *testing.T) {
	svc := newLedgerService(t)

	resp, err := svc.GetBalance(context.Background(), "22222222-2222-2222-2222-222222222222")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if resp.Message != "Account not found" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLedgerServiceGetHistory(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, models.DepositRequest{AccountID: ledgerTestAccountID, Amount: "5"}); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, err := svc.Deposit(ctx, models.DepositRequest{AccountID: ledgerTestAccountID, Amount: "7"}); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	resp, err := svc.GetHistory(ctx, ledgerTestAccountID, 10, 0)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if resp.Data == nil || len(*resp.Data) != 2 {
		t.Fatalf("expected 2 records, got %+v", resp.Data)
	}
	if (*resp.Data)[0].Amount != "7.00000000" {
		t.Fatalf("expected newest record first, got %+v", (*resp.Data)[0])
	}
}

func TestLedgerServiceGetTransactionNotFound(t *testing.T) {
	svc := newLedgerService(t)

	resp, err := svc.GetTransaction(context.Background(), "33333333-3333-3333-3333-333333333333")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if resp.Message != "Transaction not found" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLedgerServiceReverseFlow(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	deposit, err := svc.Deposit(ctx, models.DepositRequest{AccountID: ledgerTestAccountID, Amount: "100"})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	reversed, err := svc.Reverse(ctx, deposit.Data.ID)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if reversed.Data == nil || reversed.Data.CompensatesID != deposit.Data.ID {
		t.Fatalf("expected compensating record for %s, got %+v", deposit.Data.ID, reversed.Data)
	}
	if reversed.Data.TransactionType != "withdrawal" {
		t.Fatalf("expected compensating withdrawal, got %s", reversed.Data.TransactionType)
	}

	again, err := svc.Reverse(ctx, deposit.Data.ID)
	if !errors.Is(err, domain.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
	if again.Success {
		t.Fatal("expected unsuccessful response on second reversal")
	}
}
