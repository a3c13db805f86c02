// Package event shapes and publishes the domain events other services consume.
package event

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys on the account events topic. balance-changed events are split
// by direction so consumers can subscribe to increases or decreases alone.
const (
	KeyAccountCreated     = "account.create"
	KeyTransactionCreated = "account.transaction.create"
	KeyBalanceIncreased   = "account.balance.increase"
	KeyBalanceDecreased   = "account.balance.decrease"
)

type AccountCreated struct {
	AccountID uuid.UUID `json:"accountId"`
}

type TransactionCreated struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	AccountID     uuid.UUID       `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Direction     string          `json:"direction"`
}

type BalanceChanged struct {
	AccountID  uuid.UUID       `json:"accountId"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"newBalance"`
}
