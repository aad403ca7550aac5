package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	AccountID string `json:"accountId"`
	Amount    string `json:"amount"`
}

func (r DepositRequest) Validate() error {
	return validateMovement(r.AccountID, r.Amount)
}

type WithdrawRequest struct {
	AccountID string `json:"accountId"`
	Amount    string `json:"amount"`
}

func (r WithdrawRequest) Validate() error {
	return validateMovement(r.AccountID, r.Amount)
}

func validateMovement(accountID, amount string) error {
	var errs []string

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		errs = append(errs, "accountId is required")
	} else if _, err := uuid.Parse(accountID); err != nil {
		errs = append(errs, "accountId must be a valid UUID")
	}

	amount = strings.TrimSpace(amount)
	if amount == "" {
		errs = append(errs, "amount is required")
	} else {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			errs = append(errs, "amount must be numeric")
		} else if parsed.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, "amount must be greater than zero")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

type TransactionResponse struct {
	ID              string `json:"id"`
	AccountID       string `json:"accountId"`
	TransactionType string `json:"transactionType"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	Hash            string `json:"hash,omitempty"`
	FailureReason   string `json:"failureReason,omitempty"`
	CompensatesID   string `json:"compensatesId,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}
