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
	"github.com/custodia/wallet-ledger/internal/security"
	"github.com/custodia/wallet-ledger/internal/usecase/services"

	"github.com/shopspring/decimal"
)

type accountServiceEnv struct {
	accounts *memory.AccountStore
	engine   *ledger.Engine
	vault    *security.KeyVault
	svc      *services.AccountService
}

func newAccountServiceEnv(t *testing.T) *accountServiceEnv {
	t.Helper()

	encodedKey, err := security.GenerateEncryptionKey()
	if err != nil {
		t.Fatalf("generate encryption key: %v", err)
	}
	vault, err := security.NewKeyVault(encodedKey)
	if err != nil {
		t.Fatalf("new key vault: %v", err)
	}

	accounts := memory.NewAccountStore()
	store := memory.NewLedgerStore(accounts)
	engine := ledger.NewEngine(store, accounts, ledger.NewAccountLocker(time.Second), nil)

	return &accountServiceEnv{
		accounts: accounts,
		engine:   engine,
		vault:    vault,
		svc:      services.NewAccountService(accounts, engine, vault),
	}
}

func TestAccountServiceCreateAccountValidationError(t *testing.T) {
	svc := services.NewAccountService(nil, nil, nil)

	_, err := svc.CreateAccount(context.Background(), models.CreateAccountRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty create account request")
	}
}

func TestAccountServiceCreateAccountReturnsPrivateKeyOnce(t *testing.T) {
	env := newAccountServiceEnv(t)
	ctx := context.Background()

	resp, err := env.svc.CreateAccount(ctx, models.CreateAccountRequest{
		PublicAddress: "0xABCDEF0123456789",
	})
	if err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	if !resp.Success || resp.Data == nil {
		t.Fatalf("expected successful response with data, got %+v", resp)
	}
	if len(resp.Data.PrivateKey) != security.PrivateKeyLength {
		t.Fatalf("expected %d character private key, got %d", security.PrivateKeyLength, len(resp.Data.PrivateKey))
	}
	if resp.Data.Balance != "0.00000000" {
		t.Fatalf("expected zero starting balance, got %s", resp.Data.Balance)
	}

	stored, err := env.accounts.GetByID(ctx, resp.Data.ID)
	if err != nil {
		t.Fatalf("get stored account: %v", err)
	}
	if stored.PrivateKeyEncrypted == resp.Data.PrivateKey {
		t.Fatal("private key must not be stored in plaintext")
	}

	plaintext, err := env.vault.Decrypt(stored.PrivateKeyEncrypted)
	if err != nil {
		t.Fatalf("decrypt stored key: %v", err)
	}
	if plaintext != resp.Data.PrivateKey {
		t.Fatal("stored ciphertext must decrypt to the returned key")
	}
}

func TestAccountServiceCreateAccountDuplicateAddress(t *testing.T) {
	env := newAccountServiceEnv(t)
	ctx := context.Background()

	if _, err := env.svc.CreateAccount(ctx, models.CreateAccountRequest{PublicAddress: "0xSAME"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	resp, err := env.svc.CreateAccount(ctx, models.CreateAccountRequest{PublicAddress: "0xSAME"})
	if !errors.Is(err, domain.ErrDuplicateAddress) {
		t.Fatalf("expected ErrDuplicateAddress, got %v", err)
	}
	if resp.Success {
		t.Fatal("expected unsuccessful response")
	}
	if resp.Message != "validation failed" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestAccountServiceGetAccountDerivesBalance(t *testing.T) {
	env := newAccountServiceEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateAccount(ctx, models.CreateAccountRequest{PublicAddress: "0xBALANCE"})
	if err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	if _, err := env.engine.Deposit(ctx, created.Data.ID, decimal.RequireFromString("25")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	resp, err := env.svc.GetAccount(ctx, created.Data.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if resp.Data == nil || resp.Data.Balance != "25.00000000" {
		t.Fatalf("expected balance 25.00000000, got %+v", resp.Data)
	}
}

func TestAccountServiceGetAccountNotFound(t *testing.T) {
	env := newAccountServiceEnv(t)

	resp, err := env.svc.GetAccount(context.Background(), "44444444-4444-4444-4444-444444444444")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if resp.Message != "Account not found" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}
