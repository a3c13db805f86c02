// Package transport exposes the ledger over HTTP/JSON.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ksaarela/account-ledger-backend/internal/api"
	"github.com/ksaarela/account-ledger-backend/internal/domain"
	"github.com/ksaarela/account-ledger-backend/internal/middleware"
	"github.com/ksaarela/account-ledger-backend/internal/service"
	"github.com/ksaarela/account-ledger-backend/internal/storage"
	"github.com/ksaarela/account-ledger-backend/internal/transform"
	"github.com/shopspring/decimal"
)

type Ledger interface {
	CreateAccount(ctx context.Context, customerID uuid.UUID, country string, currencies []string) (domain.Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
	CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, decimal.Decimal, error)
	TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
}

func NewHandler(ledger Ledger) http.Handler {
	h := &handler{ledger: ledger}

	r := chi.NewRouter()
	r.Use(middleware.LogRequests)
	r.Route("/api/account", func(r chi.Router) {
		r.Post("/", h.createAccount)
		r.Get("/{accountID}", h.getAccount)
		r.Get("/{accountID}/transactions", h.listTransactions)
		r.Post("/{accountID}/transaction", h.createTransaction)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

type handler struct {
	ledger Ledger
}

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := transform.CustomerIDFromAPI(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), customerID, req.Country, req.Currencies)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transform.AccountToAPI(account))
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := transform.AccountIDFromString(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.ledger.AccountByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transform.AccountToAPI(account))
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := transform.AccountIDFromString(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	txs, err := h.ledger.TransactionsByAccount(r.Context(), accountID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transform.TxsToAPI(txs))
}

func (h *handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, err := transform.AccountIDFromString(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req api.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, currentBalance, err := h.ledger.CreateTransaction(r.Context(), transform.TxFromAPI(accountID, req))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transform.CreateTxResponse(tx, currentBalance))
}

// writeFailure turns invalid input into a 400 with the reason and anything
// else into an opaque 500, logging the cause.
func (h *handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var invalid service.InvalidInputError
	if errors.As(err, &invalid) {
		slog.InfoContext(r.Context(), "rejected invalid input", "reason", invalid.Reason)
		writeError(w, http.StatusBadRequest, invalid.Reason)
		return
	}

	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, api.ErrorResponse{Error: reason})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
