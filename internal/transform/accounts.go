package transform

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ksaarela/account-ledger-backend/internal/api"
	"github.com/ksaarela/account-ledger-backend/internal/domain"
)

var (
	ErrInvalidAccountID  = errors.New("invalid account id")
	ErrInvalidCustomerID = errors.New("invalid customer id")
)

func AccountIDFromString(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	return id, nil
}

// CustomerIDFromAPI maps an absent customer id to uuid.Nil so the service can
// report it as missing; only a malformed value is an error here.
func CustomerIDFromAPI(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidCustomerID, err)
	}
	return id, nil
}

func AccountToAPI(a domain.Account) api.AccountResponse {
	balances := make([]api.BalanceResponse, 0, len(a.Balances))
	for _, b := range a.Balances {
		balances = append(balances, api.BalanceResponse{
			Currency: string(b.Currency),
			Balance:  b.Amount,
		})
	}

	return api.AccountResponse{
		ID:              a.ID.String(),
		CustomerID:      a.CustomerID.String(),
		Country:         a.Country,
		AccountBalances: balances,
	}
}
