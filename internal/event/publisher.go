package event

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ksaarela/account-ledger-backend/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Writer is the part of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewPublisher(w Writer) *Publisher {
	return &Publisher{
		w: w,
	}
}

// Publisher delivers events best-effort: serialization and broker failures
// are logged and never surfaced to the caller.
type Publisher struct {
	w Writer
}

func (p *Publisher) AccountCreated(ctx context.Context, account domain.Account) {
	p.publish(ctx, KeyAccountCreated, AccountCreated{
		AccountID: account.ID,
	})
}

func (p *Publisher) TransactionCreated(ctx context.Context, tx domain.Transaction) {
	p.publish(ctx, KeyTransactionCreated, TransactionCreated{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Amount:        tx.Amount,
		Currency:      string(tx.Currency),
		Direction:     string(tx.Direction),
	})
}

func (p *Publisher) BalanceChanged(ctx context.Context, tx domain.Transaction, newBalance decimal.Decimal) {
	key := KeyBalanceDecreased
	if tx.Direction == domain.DirectionIn {
		key = KeyBalanceIncreased
	}

	p.publish(ctx, key, BalanceChanged{
		AccountID:  tx.AccountID,
		Currency:   string(tx.Currency),
		Amount:     tx.Amount,
		NewBalance: newBalance,
	})
}

func (p *Publisher) publish(ctx context.Context, key string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to serialize event", "key", key, "error", err)
		return
	}

	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "key", key, "error", err)
	}
}
