package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ksaarela/account-ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoBalance         = errors.New("no balance for currency")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type ConnectionPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewAccounts(c ConnectionPool) *Accounts {
	return &Accounts{
		c: c,
	}
}

type Accounts struct {
	c ConnectionPool
}

// CreateAccount inserts the account and one zero balance per currency in a
// single database transaction. Ids are assigned by the database.
func (a *Accounts) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	pgxTx, err := a.c.Begin(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin pgx tx: %w", err)
	}
	defer func() {
		if err := pgxTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	if err := pgxTx.QueryRow(ctx,
		`INSERT INTO account (customer_id, country) VALUES ($1, $2) RETURNING id`,
		account.CustomerID, account.Country,
	).Scan(&account.ID); err != nil {
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}

	for _, balance := range account.Balances {
		if _, err := pgxTx.Exec(ctx,
			`INSERT INTO account_balance (account_id, currency, amount) VALUES ($1, $2, $3)`,
			account.ID, balance.Currency, balance.Amount,
		); err != nil {
			return domain.Account{}, fmt.Errorf("insert balance: %w", err)
		}
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("commit pgx tx: %w", err)
	}

	return account, nil
}

func (a *Accounts) AccountByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	account := domain.Account{ID: id}

	err := a.c.QueryRow(ctx,
		`SELECT customer_id, country FROM account WHERE id = $1`,
		id,
	).Scan(&account.CustomerID, &account.Country)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return domain.Account{}, fmt.Errorf("fetch account: %w", err)
	}

	rows, err := a.c.Query(ctx,
		`SELECT currency, amount FROM account_balance WHERE account_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("fetch balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var balance domain.AccountBalance
		if err := rows.Scan(&balance.Currency, &balance.Amount); err != nil {
			return domain.Account{}, fmt.Errorf("scan balance: %w", err)
		}
		account.Balances = append(account.Balances, balance)
	}
	if err := rows.Err(); err != nil {
		return domain.Account{}, fmt.Errorf("fetch balances: %w", err)
	}

	return account, nil
}

// ApplyTransaction mutates the balance and records the transaction in one
// database transaction. OUT movements re-read the balance under FOR UPDATE so
// concurrent decrements against the same (account, currency) pair serialize;
// IN movements are a single unconditional increment and need no lock. The
// returned amount is the post-mutation balance as reported by the database.
func (a *Accounts) ApplyTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, decimal.Decimal, error) {
	pgxTx, err := a.c.Begin(ctx)
	if err != nil {
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("begin pgx tx: %w", err)
	}
	defer func() {
		if err := pgxTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	var newBalance decimal.Decimal
	switch tx.Direction {
	case domain.DirectionIn:
		err := pgxTx.QueryRow(ctx,
			`UPDATE account_balance SET amount = amount + $3 WHERE account_id = $1 AND currency = $2 RETURNING amount`,
			tx.AccountID, tx.Currency, tx.Amount,
		).Scan(&newBalance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: %v", ErrNoBalance, err)
			}
			return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("increase balance: %w", err)
		}
	case domain.DirectionOut:
		var current decimal.Decimal
		err := pgxTx.QueryRow(ctx,
			`SELECT amount FROM account_balance WHERE account_id = $1 AND currency = $2 FOR UPDATE`,
			tx.AccountID, tx.Currency,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: %v", ErrNoBalance, err)
			}
			return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("lock balance: %w", err)
		}

		if current.Sub(tx.Amount).IsNegative() {
			return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, current, tx.Amount)
		}

		err = pgxTx.QueryRow(ctx,
			`UPDATE account_balance SET amount = amount - $3 WHERE account_id = $1 AND currency = $2 RETURNING amount`,
			tx.AccountID, tx.Currency, tx.Amount,
		).Scan(&newBalance)
		if err != nil {
			if isPgCode(err, "23514") {
				return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
			}
			return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("decrease balance: %w", err)
		}
	default:
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("unknown direction: %v", tx.Direction)
	}

	if err := pgxTx.QueryRow(ctx,
		`INSERT INTO account_transaction (account_id, amount, currency, direction, description) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		tx.AccountID, tx.Amount, tx.Currency, tx.Direction, tx.Description,
	).Scan(&tx.ID); err != nil {
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("insert tx: %w", err)
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("commit pgx tx: %w", err)
	}

	return tx, newBalance, nil
}

// TransactionsByAccount returns the account's transactions in insertion order.
func (a *Accounts) TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := a.c.Query(ctx,
		`SELECT id, account_id, amount, currency, direction, description FROM account_transaction WHERE account_id = $1 ORDER BY seq`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch txs: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &tx.Currency, &tx.Direction, &tx.Description); err != nil {
			return nil, fmt.Errorf("scan tx: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch txs: %w", err)
	}

	return txs, nil
}

func isPgCode(err error, code string) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == code
}
