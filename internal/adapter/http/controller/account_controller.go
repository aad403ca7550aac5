package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia/wallet-ledger/internal/adapter/http/models"
	"github.com/custodia/wallet-ledger/internal/commons"
	"github.com/custodia/wallet-ledger/internal/logger"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.CreateAccountResponse], error)
	GetAccount(ctx context.Context, id string) (commons.Response[models.GetAccountResponse], error)
}

// AccountLedgerService is the slice of the ledger service the account routes
// need: balance and history are account-scoped reads.
type AccountLedgerService interface {
	GetBalance(ctx context.Context, accountID string) (commons.Response[models.GetBalanceResponse], error)
	GetHistory(ctx context.Context, accountID string, limit, offset int) (commons.Response[[]models.TransactionResponse], error)
}

type AccountController struct {
	service AccountService
	ledger  AccountLedgerService
}

func NewAccountController(service AccountService, ledger AccountLedgerService) *AccountController {
	return &AccountController{service: service, ledger: ledger}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	createHandler := http.HandlerFunc(c.createAccount)
	if authMiddleware != nil {
		createHandler = authMiddleware(createHandler).ServeHTTP
	}
	mux.Handle("POST /accounts", http.HandlerFunc(createHandler))
	mux.Handle("GET /accounts/{id}", http.HandlerFunc(c.getAccount))
	mux.Handle("GET /accounts/{id}/balance", http.HandlerFunc(c.getBalance))
	mux.Handle("GET /accounts/{id}/transactions", http.HandlerFunc(c.listTransactions))
}

func (c *AccountController) createAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.CreateAccountResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.CreateAccountResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	response, err := c.service.CreateAccount(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusForError(err)
		if status == http.StatusInternalServerError && response.Message == "validation failed" {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusForError(err)
		if status == http.StatusInternalServerError && response.Message == "validation failed" {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) getBalance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.ledger.GetBalance(r.Context(), r.PathValue("id"))
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusForError(err)
		if status == http.StatusInternalServerError && response.Message == "validation failed" {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) listTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	limit, ok := parseQueryInt(r, "limit", 0)
	if !ok {
		response := commons.ErrorResponse[[]models.TransactionResponse]("validation failed", "limit must be an integer")
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	offset, ok := parseQueryInt(r, "offset", 0)
	if !ok {
		response := commons.ErrorResponse[[]models.TransactionResponse]("validation failed", "offset must be an integer")
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	response, err := c.ledger.GetHistory(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusForError(err)
		if status == http.StatusInternalServerError && response.Message == "validation failed" {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func parseQueryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return value, true
}
