package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currencies an account balance can be opened in.
const (
	CurrencyEUR Currency = "EUR"
	CurrencySEK Currency = "SEK"
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
)

type Currency string

var allowedCurrencies = map[Currency]struct{}{
	CurrencyEUR: {},
	CurrencySEK: {},
	CurrencyGBP: {},
	CurrencyUSD: {},
}

func (c Currency) Allowed() bool {
	_, ok := allowedCurrencies[c]
	return ok
}

// Account holds one balance per currency chosen at creation time. The set of
// currencies never changes after creation.
type Account struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Country    string
	Balances   []AccountBalance
}

// BalanceFor returns the account's balance for the given currency, if any.
func (a Account) BalanceFor(currency Currency) (AccountBalance, bool) {
	for _, b := range a.Balances {
		if b.Currency == currency {
			return b, true
		}
	}
	return AccountBalance{}, false
}

type AccountBalance struct {
	Currency Currency
	Amount   decimal.Decimal
}
