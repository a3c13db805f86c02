package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Direction tells whether a transaction credits (IN) or debits (OUT) the
// balance it targets.
type Direction string

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Transaction is an append-only ledger entry. Once persisted it is never
// mutated or deleted.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Currency    Currency
	Direction   Direction
	Description string
}
