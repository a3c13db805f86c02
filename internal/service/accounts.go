package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ksaarela/account-ledger-backend/internal/domain"
	"github.com/ksaarela/account-ledger-backend/internal/storage"
	"github.com/shopspring/decimal"
)

// InvalidInputError is a caller-correctable rejection. Reason is the exact
// message shown to the caller.
type InvalidInputError struct {
	Reason string
}

func (e InvalidInputError) Error() string {
	return e.Reason
}

func invalidInput(reason string) error {
	return InvalidInputError{Reason: reason}
}

type Storage interface {
	CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
	ApplyTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, decimal.Decimal, error)
	TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
}

type Events interface {
	AccountCreated(ctx context.Context, account domain.Account)
	TransactionCreated(ctx context.Context, tx domain.Transaction)
	BalanceChanged(ctx context.Context, tx domain.Transaction, newBalance decimal.Decimal)
}

func NewAccounts(s Storage, e Events) *Accounts {
	return &Accounts{
		s: s,
		e: e,
	}
}

type Accounts struct {
	s Storage
	e Events
}

// CreateAccount opens an account with one zero balance per distinct requested
// currency. The currency set is fixed for the account's lifetime.
func (a *Accounts) CreateAccount(ctx context.Context, customerID uuid.UUID, country string, currencies []string) (domain.Account, error) {
	slog.InfoContext(ctx, "creating account", "customerId", customerID, "country", country, "currencies", currencies)

	if len(currencies) == 0 {
		return domain.Account{}, invalidInput("currencies missing")
	}
	for _, c := range currencies {
		if !domain.Currency(c).Allowed() {
			return domain.Account{}, invalidInput("invalid currency - " + c)
		}
	}
	if customerID == uuid.Nil {
		return domain.Account{}, invalidInput("customer id missing")
	}
	if strings.TrimSpace(country) == "" {
		return domain.Account{}, invalidInput("country missing")
	}

	seen := make(map[domain.Currency]struct{}, len(currencies))
	var balances []domain.AccountBalance
	for _, c := range currencies {
		currency := domain.Currency(c)
		if _, ok := seen[currency]; ok {
			continue
		}
		seen[currency] = struct{}{}
		balances = append(balances, domain.AccountBalance{
			Currency: currency,
			Amount:   decimal.Zero,
		})
	}

	account, err := a.s.CreateAccount(ctx, domain.Account{
		CustomerID: customerID,
		Country:    country,
		Balances:   balances,
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	a.e.AccountCreated(ctx, account)

	return account, nil
}

func (a *Accounts) AccountByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return a.s.AccountByID(ctx, id)
}

// CreateTransaction validates the movement, applies it atomically and emits
// the transaction-created and balance-changed events. Validation order is
// fixed so callers get deterministic error messages. Nothing is mutated and
// no events fire when validation fails.
func (a *Accounts) CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, decimal.Decimal, error) {
	slog.InfoContext(ctx, "creating transaction", "accountId", tx.AccountID, "currency", tx.Currency, "direction", tx.Direction)

	account, err := a.s.AccountByID(ctx, tx.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Transaction{}, decimal.Decimal{}, invalidInput("account is missing")
		}
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("fetch account: %w", err)
	}

	if _, ok := account.BalanceFor(tx.Currency); !ok {
		return domain.Transaction{}, decimal.Decimal{}, invalidInput("no balance for given currency")
	}
	if strings.TrimSpace(tx.Description) == "" {
		return domain.Transaction{}, decimal.Decimal{}, invalidInput("description is missing")
	}
	if !tx.Amount.IsPositive() {
		return domain.Transaction{}, decimal.Decimal{}, invalidInput("invalid amount")
	}
	if tx.Direction == "" {
		return domain.Transaction{}, decimal.Decimal{}, invalidInput("direction is missing")
	}
	if !tx.Direction.Valid() {
		return domain.Transaction{}, decimal.Decimal{}, invalidInput("invalid direction")
	}

	applied, newBalance, err := a.s.ApplyTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return domain.Transaction{}, decimal.Decimal{}, invalidInput("insufficient funds")
		}
		if errors.Is(err, storage.ErrNoBalance) {
			return domain.Transaction{}, decimal.Decimal{}, invalidInput("no balance for given currency")
		}
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("apply transaction: %w", err)
	}

	a.e.TransactionCreated(ctx, applied)
	a.e.BalanceChanged(ctx, applied, newBalance)

	return applied, newBalance, nil
}

// TransactionsByAccount returns the account's full transaction history in
// insertion order. An account without transactions yields an empty list.
func (a *Accounts) TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	if _, err := a.s.AccountByID(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, invalidInput("invalid account")
		}
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	txs, err := a.s.TransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	return txs, nil
}
