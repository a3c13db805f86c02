package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/ksaarela/account-ledger-backend/internal/api"
	"github.com/ksaarela/account-ledger-backend/internal/domain"
	"github.com/ksaarela/account-ledger-backend/internal/service"
	"github.com/ksaarela/account-ledger-backend/internal/storage"
	"github.com/ksaarela/account-ledger-backend/internal/transport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory stand-in for the pgx store with the same
// semantics: atomic apply, insufficient funds check under lock, insertion
// order listing.
type memStorage struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]domain.Account
	txs      []domain.Transaction
}

func newMemStorage() *memStorage {
	return &memStorage{
		accounts: make(map[uuid.UUID]domain.Account),
	}
}

func (s *memStorage) CreateAccount(_ context.Context, account domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account.ID = uuid.New()
	s.accounts[account.ID] = account
	return account, nil
}

func (s *memStorage) AccountByID(_ context.Context, id uuid.UUID) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: no account %s", storage.ErrNotFound, id)
	}
	return account, nil
}

func (s *memStorage) ApplyTransaction(_ context.Context, tx domain.Transaction) (domain.Transaction, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[tx.AccountID]
	if !ok {
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: no account %s", storage.ErrNotFound, tx.AccountID)
	}

	var newBalance decimal.Decimal
	found := false
	for i, b := range account.Balances {
		if b.Currency != tx.Currency {
			continue
		}
		found = true

		switch tx.Direction {
		case domain.DirectionIn:
			newBalance = b.Amount.Add(tx.Amount)
		case domain.DirectionOut:
			newBalance = b.Amount.Sub(tx.Amount)
			if newBalance.IsNegative() {
				return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: balance %s", storage.ErrInsufficientFunds, b.Amount)
			}
		}

		account.Balances[i].Amount = newBalance
	}
	if !found {
		return domain.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: %s", storage.ErrNoBalance, tx.Currency)
	}

	s.accounts[tx.AccountID] = account
	tx.ID = uuid.New()
	s.txs = append(s.txs, tx)
	return tx, newBalance, nil
}

func (s *memStorage) TransactionsByAccount(_ context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txs []domain.Transaction
	for _, tx := range s.txs {
		if tx.AccountID == accountID {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

type countingEvents struct {
	mu        sync.Mutex
	published int
}

func (e *countingEvents) AccountCreated(context.Context, domain.Account) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published++
}

func (e *countingEvents) TransactionCreated(context.Context, domain.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published++
}

func (e *countingEvents) BalanceChanged(context.Context, domain.Transaction, decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published++
}

func newTestServer(t *testing.T) (*httptest.Server, *countingEvents) {
	t.Helper()

	events := &countingEvents{}
	server := httptest.NewServer(transport.NewHandler(service.NewAccounts(newMemStorage(), events)))
	t.Cleanup(server.Close)
	return server, events
}

func doJSON(t *testing.T, method, url string, body, out any) int {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createAccount(t *testing.T, server *httptest.Server, currencies ...string) api.AccountResponse {
	t.Helper()

	var account api.AccountResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/account", api.CreateAccountRequest{
		CustomerID: uuid.NewString(),
		Country:    "EE",
		Currencies: currencies,
	}, &account)
	require.Equal(t, http.StatusOK, status)
	return account
}

func TestHandler_AccountAndTransactionFlow(t *testing.T) {
	server, events := newTestServer(t)

	account := createAccount(t, server, "EUR", "USD")
	require.Len(t, account.AccountBalances, 2)
	for _, b := range account.AccountBalances {
		assert.True(t, b.Balance.IsZero())
	}
	assert.Equal(t, 1, events.published)

	txURL := server.URL + "/api/account/" + account.ID + "/transaction"

	var deposit api.CreateTransactionResponse
	status := doJSON(t, http.MethodPost, txURL, api.CreateTransactionRequest{
		Amount:      decimal.RequireFromString("10.00"),
		Currency:    "EUR",
		Direction:   "IN",
		Description: "salary",
	}, &deposit)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, account.ID, deposit.AccountID)
	assert.True(t, deposit.CurrentBalance.Equal(decimal.NewFromInt(10)))
	assert.NotEmpty(t, deposit.TransactionID)

	var withdrawal api.CreateTransactionResponse
	status = doJSON(t, http.MethodPost, txURL, api.CreateTransactionRequest{
		Amount:      decimal.RequireFromString("10.00"),
		Currency:    "EUR",
		Direction:   "OUT",
		Description: "rent",
	}, &withdrawal)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, withdrawal.CurrentBalance.IsZero())

	// USD is untouched throughout.
	var fetched api.AccountResponse
	status = doJSON(t, http.MethodGet, server.URL+"/api/account/"+account.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	for _, b := range fetched.AccountBalances {
		assert.True(t, b.Balance.IsZero(), "balance %s should be back at zero", b.Currency)
	}

	var txs []api.TransactionResponse
	status = doJSON(t, http.MethodGet, server.URL+"/api/account/"+account.ID+"/transactions", nil, &txs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, txs, 2)
	assert.Equal(t, deposit.TransactionID, txs[0].ID)
	assert.Equal(t, "IN", txs[0].Direction)
	assert.Equal(t, "salary", txs[0].Description)
	assert.Equal(t, withdrawal.TransactionID, txs[1].ID)
	assert.Equal(t, "OUT", txs[1].Direction)
	assert.Equal(t, "rent", txs[1].Description)

	// account created + 2 * (transaction created + balance changed)
	assert.Equal(t, 5, events.published)
}

func TestHandler_InsufficientFunds(t *testing.T) {
	server, events := newTestServer(t)

	account := createAccount(t, server, "EUR")
	publishedBefore := events.published

	var apiErr api.ErrorResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/account/"+account.ID+"/transaction", api.CreateTransactionRequest{
		Amount:      decimal.NewFromInt(10),
		Currency:    "EUR",
		Direction:   "OUT",
		Description: "overdraft attempt",
	}, &apiErr)

	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient funds", apiErr.Error)
	assert.Equal(t, publishedBefore, events.published, "rejected movement must not publish events")

	// Nothing was recorded.
	var txs []api.TransactionResponse
	status = doJSON(t, http.MethodGet, server.URL+"/api/account/"+account.ID+"/transactions", nil, &txs)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, txs)
}

func TestHandler_UnknownAccount(t *testing.T) {
	server, _ := newTestServer(t)
	unknown := uuid.NewString()

	status := doJSON(t, http.MethodGet, server.URL+"/api/account/"+unknown, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var apiErr api.ErrorResponse
	status = doJSON(t, http.MethodGet, server.URL+"/api/account/"+unknown+"/transactions", nil, &apiErr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid account", apiErr.Error)

	status = doJSON(t, http.MethodPost, server.URL+"/api/account/"+unknown+"/transaction", api.CreateTransactionRequest{
		Amount:      decimal.NewFromInt(10),
		Currency:    "EUR",
		Direction:   "IN",
		Description: "deposit",
	}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "account is missing", apiErr.Error)
}

func TestHandler_BadRequests(t *testing.T) {
	server, _ := newTestServer(t)
	account := createAccount(t, server, "EUR")

	tests := []struct {
		name       string
		method     string
		url        string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed account id",
			method:     http.MethodGet,
			url:        server.URL + "/api/account/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid account id",
		},
		{
			name:       "malformed customer id",
			method:     http.MethodPost,
			url:        server.URL + "/api/account",
			body:       api.CreateAccountRequest{CustomerID: "not-a-uuid", Country: "EE", Currencies: []string{"EUR"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid customer id",
		},
		{
			name:       "invalid currency",
			method:     http.MethodPost,
			url:        server.URL + "/api/account",
			body:       api.CreateAccountRequest{CustomerID: uuid.NewString(), Country: "EE", Currencies: []string{"XXX"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid currency - XXX",
		},
		{
			name:       "invalid direction",
			method:     http.MethodPost,
			url:        server.URL + "/api/account/" + account.ID + "/transaction",
			body:       api.CreateTransactionRequest{Amount: decimal.NewFromInt(10), Currency: "EUR", Direction: "SIDEWAYS", Description: "x"},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid direction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr api.ErrorResponse
			status := doJSON(t, tt.method, tt.url, tt.body, &apiErr)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, apiErr.Error)
		})
	}
}

func TestHandler_MalformedBody(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/account", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
