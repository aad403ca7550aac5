package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/logger"
)

const uniqueViolation = "23505"

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account store create", logger.Fields{
		"accountId":     account.ID,
		"publicAddress": account.PublicAddress,
	})

	const query = `
INSERT INTO accounts (
	id,
	public_address,
	private_key_encrypted
) VALUES ($1, $2, $3)
RETURNING created_at, updated_at`

	if err := s.db.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.PublicAddress,
		account.PrivateKeyEncrypted,
	).Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			logger.Info("account store duplicate address", logger.Fields{
				"publicAddress": account.PublicAddress,
			})
			return domain.Account{}, domain.ErrDuplicateAddress
		}
		logger.Error("account store create failed", err, logger.Fields{
			"publicAddress": account.PublicAddress,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	logger.Info("account store create success", logger.Fields{
		"accountId": account.ID,
	})

	return account, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `
SELECT id, public_address, private_key_encrypted, created_at, updated_at
FROM accounts
WHERE id = $1`

	var account domain.Account
	if err := scanAccount(s.db.QueryRowContext(ctx, query, id), &account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

func (s *AccountStore) GetByPublicAddress(ctx context.Context, publicAddress string) (domain.Account, error) {
	const query = `
SELECT id, public_address, private_key_encrypted, created_at, updated_at
FROM accounts
WHERE public_address = $1`

	var account domain.Account
	if err := scanAccount(s.db.QueryRowContext(ctx, query, publicAddress), &account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by public address: %w", err)
	}

	return account, nil
}

func (s *AccountStore) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}

	return exists, nil
}

func scanAccount(row rowScanner, account *domain.Account) error {
	return row.Scan(
		&account.ID,
		&account.PublicAddress,
		&account.PrivateKeyEncrypted,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
}
