// Package api holds the JSON shapes exchanged with clients.
package api

import "github.com/shopspring/decimal"

type CreateAccountRequest struct {
	CustomerID string   `json:"customerId"`
	Country    string   `json:"country"`
	Currencies []string `json:"currencies"`
}

type AccountResponse struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customerId"`
	Country         string            `json:"country"`
	AccountBalances []BalanceResponse `json:"accountBalances"`
}

type BalanceResponse struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

type CreateTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Direction   string          `json:"direction"`
	Description string          `json:"description"`
}

type CreateTransactionResponse struct {
	TransactionID  string          `json:"transactionId"`
	AccountID      string          `json:"accountId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Direction      string          `json:"direction"`
	Description    string          `json:"description"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

type TransactionResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Direction   string          `json:"direction"`
	Description string          `json:"description"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
