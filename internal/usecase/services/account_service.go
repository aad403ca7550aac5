package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia/wallet-ledger/internal/adapter/http/models"
	"github.com/custodia/wallet-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/custodia/wallet-ledger/internal/commons"
	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/ledger"
	"github.com/custodia/wallet-ledger/internal/logger"
	"github.com/custodia/wallet-ledger/internal/security"
)

type AccountService struct {
	accounts repo_interfaces.AccountStore
	engine   *ledger.Engine
	vault    *security.KeyVault
}

func NewAccountService(accounts repo_interfaces.AccountStore, engine *ledger.Engine, vault *security.KeyVault) *AccountService {
	return &AccountService{
		accounts: accounts,
		engine:   engine,
		vault:    vault,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.CreateAccountResponse], error) {
	logger.Info("account service create account request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service create account validation failed", err, nil)
		return commons.ErrorResponse[models.CreateAccountResponse]("validation failed", err.Error()), err
	}

	privateKey, err := security.GeneratePrivateKey()
	if err != nil {
		logger.Error("account service generate private key failed", err, nil)
		return commons.ErrorResponse[models.CreateAccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	sealed, err := s.vault.Encrypt(privateKey)
	if err != nil {
		logger.Error("account service encrypt private key failed", err, nil)
		return commons.ErrorResponse[models.CreateAccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	account := domain.Account{
		ID:                  uuid.NewString(),
		PublicAddress:       strings.TrimSpace(req.PublicAddress),
		PrivateKeyEncrypted: sealed,
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		logger.Error("account service create account repository failed", err, logger.Fields{
			"publicAddress": account.PublicAddress,
		})
		if errors.Is(err, domain.ErrDuplicateAddress) {
			return commons.ErrorResponse[models.CreateAccountResponse]("validation failed", "publicAddress is already in use"), err
		}
		return commons.ErrorResponse[models.CreateAccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	// The plaintext key leaves the service exactly once, here.
	response := models.CreateAccountResponse{
		ID:            created.ID,
		PublicAddress: created.PublicAddress,
		Balance:       "0.00000000",
		PrivateKey:    privateKey,
		CreatedAt:     created.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     created.UpdatedAt.Format(time.RFC3339),
	}

	logger.Info("account service create account success", logger.Fields{
		"accountId":     response.ID,
		"publicAddress": response.PublicAddress,
	})

	return commons.SuccessResponse("account created successfully", response), nil
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (commons.Response[models.GetAccountResponse], error) {
	logger.Info("account service get account request", logger.Fields{
		"accountId": id,
	})

	id = strings.TrimSpace(id)
	if id == "" {
		err := errors.New("accountId is required")
		return commons.ErrorResponse[models.GetAccountResponse]("validation failed", err.Error()), err
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		logger.Error("account service get account failed", err, logger.Fields{
			"accountId": id,
		})
		if errors.Is(err, domain.ErrAccountNotFound) {
			return commons.ErrorResponse[models.GetAccountResponse]("Account not found"), err
		}
		return commons.ErrorResponse[models.GetAccountResponse]("failed to get account", "Unable to fetch account right now"), err
	}

	balance, err := s.engine.GetBalance(ctx, account.ID)
	if err != nil {
		logger.Error("account service get account balance failed", err, logger.Fields{
			"accountId": id,
		})
		return commons.ErrorResponse[models.GetAccountResponse]("failed to get account", "Unable to fetch account right now"), err
	}

	response := models.GetAccountResponse{
		ID:            account.ID,
		PublicAddress: account.PublicAddress,
		Balance:       balance.StringFixed(8),
		CreatedAt:     account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     account.UpdatedAt.Format(time.RFC3339),
	}

	logger.Info("account service get account success", logger.Fields{
		"accountId":     response.ID,
		"publicAddress": response.PublicAddress,
	})

	return commons.SuccessResponse("account fetched successfully", response), nil
}
