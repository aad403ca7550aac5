package models

import (
	"errors"
	"strings"
)

type CreateAccountRequest struct {
	PublicAddress string `json:"publicAddress"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	publicAddress := strings.TrimSpace(r.PublicAddress)
	if publicAddress == "" {
		errs = append(errs, "publicAddress is required")
	} else if len(publicAddress) > 255 {
		errs = append(errs, "publicAddress must be at most 255 characters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// CreateAccountResponse carries the plaintext private key. It is returned
// exactly once, here; only the encrypted form is stored.
type CreateAccountResponse struct {
	ID            string `json:"id"`
	PublicAddress string `json:"publicAddress"`
	Balance       string `json:"balance"`
	PrivateKey    string `json:"privateKey"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

type GetAccountResponse struct {
	ID            string `json:"id"`
	PublicAddress string `json:"publicAddress"`
	Balance       string `json:"balance"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

type GetBalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}
