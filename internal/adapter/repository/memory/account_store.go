// Package memory holds map-backed stores used by tests and local runs. They
// honor the same contracts as the postgres stores, with a single coarse lock
// standing in for row locking.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia/wallet-ledger/internal/domain"
)

type AccountStore struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	addressIndex map[string]string
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts:     make(map[string]domain.Account),
		addressIndex: make(map[string]string),
	}
}

func (s *AccountStore) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.addressIndex[account.PublicAddress]; exists {
		return domain.Account{}, domain.ErrDuplicateAddress
	}
	if _, exists := s.accounts[account.ID]; exists {
		return domain.Account{}, domain.ErrDuplicateAddress
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	s.accounts[account.ID] = account
	s.addressIndex[account.PublicAddress] = account.ID

	return account, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.accounts[id]
	if !exists {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return account, nil
}

func (s *AccountStore) GetByPublicAddress(ctx context.Context, publicAddress string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.addressIndex[publicAddress]
	if !exists {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.accounts[id], nil
}

func (s *AccountStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.accounts[id]
	return exists, nil
}
