package transform

import (
	"github.com/google/uuid"
	"github.com/ksaarela/account-ledger-backend/internal/api"
	"github.com/ksaarela/account-ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// TxFromAPI is deliberately lenient: currency and direction pass through as
// given so the service can reject them in its documented validation order.
func TxFromAPI(accountID uuid.UUID, req api.CreateTransactionRequest) domain.Transaction {
	return domain.Transaction{
		AccountID:   accountID,
		Amount:      req.Amount,
		Currency:    domain.Currency(req.Currency),
		Direction:   domain.Direction(req.Direction),
		Description: req.Description,
	}
}

func TxToAPI(tx domain.Transaction) api.TransactionResponse {
	return api.TransactionResponse{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Amount:      tx.Amount,
		Currency:    string(tx.Currency),
		Direction:   string(tx.Direction),
		Description: tx.Description,
	}
}

func TxsToAPI(txs []domain.Transaction) []api.TransactionResponse {
	out := make([]api.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TxToAPI(tx))
	}
	return out
}

func CreateTxResponse(tx domain.Transaction, currentBalance decimal.Decimal) api.CreateTransactionResponse {
	return api.CreateTransactionResponse{
		TransactionID:  tx.ID.String(),
		AccountID:      tx.AccountID.String(),
		Amount:         tx.Amount,
		Currency:       string(tx.Currency),
		Direction:      string(tx.Direction),
		Description:    tx.Description,
		CurrentBalance: currentBalance,
	}
}
