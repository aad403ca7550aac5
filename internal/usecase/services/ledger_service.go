package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/custodia/wallet-ledger/internal/adapter/http/models"
	"github.com/custodia/wallet-ledger/internal/commons"
	"github.com/custodia/wallet-ledger/internal/domain"
	"github.com/custodia/wallet-ledger/internal/ledger"
	"github.com/custodia/wallet-ledger/internal/logger"
)

type LedgerService struct {
	engine *ledger.Engine
}

func NewLedgerService(engine *ledger.Engine) *LedgerService {
	return &LedgerService{engine: engine}
}

func (s *LedgerService) Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service deposit request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service deposit validation failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	accountID := strings.TrimSpace(req.AccountID)
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		logger.Error("ledger service deposit parse amount failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", "amount must be numeric"), err
	}

	txn, err := s.engine.Deposit(ctx, accountID, amount)
	if err != nil {
		logger.Error("ledger service deposit failed", err, logger.Fields{
			"accountId": accountID,
		})
		return errorResponseForLedgerFailure(err, "failed to deposit funds", "Unable to deposit funds right now"), err
	}

	response := toTransactionResponse(txn)

	logger.Info("ledger service deposit success", logger.Fields{
		"transactionId": response.ID,
		"accountId":     response.AccountID,
		"status":        response.Status,
	})

	return commons.SuccessResponse("deposit completed successfully", response), nil
}

func (s *LedgerService) Withdraw(ctx context.Context, req models.WithdrawRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service withdraw request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service withdraw validation failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	accountID := strings.TrimSpace(req.AccountID)
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		logger.Error("ledger service withdraw parse amount failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", "amount must be numeric"), err
	}

	txn, err := s.engine.Withdraw(ctx, accountID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			// The attempt is on the ledger as FAILED; hand that record back.
			response := toTransactionResponse(txn)
			logger.Info("ledger service withdraw insufficient funds", logger.Fields{
				"transactionId": response.ID,
				"accountId":     accountID,
			})
			return commons.ErrorResponseWithData("insufficient funds", response, "Completed deposits do not cover the requested amount"), err
		}
		logger.Error("ledger service withdraw failed", err, logger.Fields{
			"accountId": accountID,
		})
		return errorResponseForLedgerFailure(err, "failed to withdraw funds", "Unable to withdraw funds right now"), err
	}

	response := toTransactionResponse(txn)

	logger.Info("ledger service withdraw success", logger.Fields{
		"transactionId": response.ID,
		"accountId":     response.AccountID,
		"status":        response.Status,
	})

	return commons.SuccessResponse("withdrawal completed successfully", response), nil
}

func (s *LedgerService) GetBalance(ctx context.Context, accountID string) (commons.Response[models.GetBalanceResponse], error) {
	logger.Info("ledger service get balance request", logger.Fields{
		"accountId": accountID,
	})

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		err := errors.New("accountId is required")
		return commons.ErrorResponse[models.GetBalanceResponse]("validation failed", err.Error()), err
	}

	balance, err := s.engine.GetBalance(ctx, accountID)
	if err != nil {
		logger.Error("ledger service get balance failed", err, logger.Fields{
			"accountId": accountID,
		})
		if errors.Is(err, domain.ErrAccountNotFound) {
			return commons.ErrorResponse[models.GetBalanceResponse]("Account not found"), err
		}
		return commons.ErrorResponse[models.GetBalanceResponse]("failed to get balance", "Unable to fetch balance right now"), err
	}

	response := models.GetBalanceResponse{
		AccountID: accountID,
		Balance:   balance.StringFixed(8),
	}

	logger.Info("ledger service get balance success", logger.Fields{
		"accountId": accountID,
		"balance":   response.Balance,
	})

	return commons.SuccessResponse("balance fetched successfully", response), nil
}

func (s *LedgerService) GetHistory(ctx context.Context, accountID string, limit, offset int) (commons.Response[[]models.TransactionResponse], error) {
	logger.Info("ledger service get history request", logger.Fields{
		"accountId": accountID,
		"limit":     limit,
		"offset":    offset,
	})

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		err := errors.New("accountId is required")
		return commons.ErrorResponse[[]models.TransactionResponse]("validation failed", err.Error()), err
	}

	transactions, err := s.engine.GetHistory(ctx, accountID, limit, offset)
	if err != nil {
		logger.Error("ledger service get history failed", err, logger.Fields{
			"accountId": accountID,
		})
		if errors.Is(err, domain.ErrAccountNotFound) {
			return commons.ErrorResponse[[]models.TransactionResponse]("Account not found"), err
		}
		return commons.ErrorResponse[[]models.TransactionResponse]("failed to get transactions", "Unable to fetch transactions right now"), err
	}

	response := make([]models.TransactionResponse, 0, len(transactions))
	for _, txn := range transactions {
		response = append(response, toTransactionResponse(txn))
	}

	logger.Info("ledger service get history success", logger.Fields{
		"accountId": accountID,
		"count":     len(response),
	})

	return commons.SuccessResponse("transactions fetched successfully", response), nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service get transaction request", logger.Fields{
		"transactionId": id,
	})

	id = strings.TrimSpace(id)
	if id == "" {
		err := errors.New("transactionId is required")
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	txn, err := s.engine.GetTransaction(ctx, id)
	if err != nil {
		logger.Error("ledger service get transaction failed", err, logger.Fields{
			"transactionId": id,
		})
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to get transaction", "Unable to fetch transaction right now"), err
	}

	return commons.SuccessResponse("transaction fetched successfully", toTransactionResponse(txn)), nil
}

func (s *LedgerService) Reverse(ctx context.Context, transactionID string) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service reverse request", logger.Fields{
		"transactionId": transactionID,
	})

	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		err := errors.New("transactionId is required")
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	compensation, err := s.engine.Reverse(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			response := toTransactionResponse(compensation)
			logger.Info("ledger service reverse insufficient funds", logger.Fields{
				"transactionId":  transactionID,
				"compensationId": response.ID,
			})
			return commons.ErrorResponseWithData("insufficient funds", response, "The account balance no longer covers the reversed amount"), err
		}
		logger.Error("ledger service reverse failed", err, logger.Fields{
			"transactionId": transactionID,
		})
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return commons.ErrorResponse[models.TransactionResponse]("Transaction not found"), err
		case errors.Is(err, domain.ErrNotReversible):
			return commons.ErrorResponse[models.TransactionResponse]("validation failed", "Only completed transactions can be reversed"), err
		case errors.Is(err, domain.ErrAlreadyReversed):
			return commons.ErrorResponse[models.TransactionResponse]("validation failed", "Transaction has already been reversed"), err
		default:
			return errorResponseForLedgerFailure(err, "failed to reverse transaction", "Unable to reverse transaction right now"), err
		}
	}

	response := toTransactionResponse(compensation)

	logger.Info("ledger service reverse success", logger.Fields{
		"transactionId":  transactionID,
		"compensationId": response.ID,
	})

	return commons.SuccessResponse("transaction reversed successfully", response), nil
}

func errorResponseForLedgerFailure(err error, message, fallback string) commons.Response[models.TransactionResponse] {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return commons.ErrorResponse[models.TransactionResponse]("Account not found")
	case errors.Is(err, domain.ErrInvalidAmount):
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", "amount must be greater than zero")
	case errors.Is(err, domain.ErrLockContention):
		return commons.ErrorResponse[models.TransactionResponse]("account busy", "Another operation holds the account lock, retry shortly")
	default:
		return commons.ErrorResponse[models.TransactionResponse](message, fallback)
	}
}

func toTransactionResponse(txn domain.Transaction) models.TransactionResponse {
	return models.TransactionResponse{
		ID:              txn.ID,
		AccountID:       txn.AccountID,
		TransactionType: string(txn.Kind),
		Amount:          txn.Amount.StringFixed(8),
		Status:          string(txn.Status),
		Hash:            txn.TxHash,
		FailureReason:   txn.FailureReason,
		CompensatesID:   txn.CompensatesID,
		CreatedAt:       txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       txn.UpdatedAt.Format(time.RFC3339),
	}
}
