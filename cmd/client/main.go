package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/ksaarela/account-ledger-backend/internal/api"
	"github.com/shopspring/decimal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", err)
			os.Exit(1)
		}
	}()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using system env vars")
	}

	config, err := env.ParseAs[Config]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.LogLevel,
	})))

	if err := run(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type Config struct {
	LogLevel slog.Level `env:"LOG_LEVEL"`
	Addr     string     `env:"ADDR" envDefault:"http://localhost:8080"`
	Country  string     `env:"COUNTRY" envDefault:"EE"`
	Currency string     `env:"CURRENCY" envDefault:"EUR"`

	DepositInterval time.Duration `env:"DEPOSIT_INTERVAL" envDefault:"1s"`
	DepositCount    int           `env:"DEPOSIT_COUNT" envDefault:"10"`
	DepositAmount   float64       `env:"DEPOSIT_AMOUNT" envDefault:"10"`

	WithdrawInterval time.Duration `env:"WITHDRAW_INTERVAL" envDefault:"1s"`
	WithdrawCount    int           `env:"WITHDRAW_COUNT" envDefault:"10"`
	WithdrawAmount   float64       `env:"WITHDRAW_AMOUNT" envDefault:"10"`
}

func run(ctx context.Context, c Config) error {
	client := &http.Client{Timeout: 10 * time.Second}

	var account api.AccountResponse
	err := postJSON(ctx, client, c.Addr+"/api/account", api.CreateAccountRequest{
		CustomerID: uuid.NewString(),
		Country:    c.Country,
		Currencies: []string{c.Currency},
	}, &account)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "created account", "accountId", account.ID)

	var wg sync.WaitGroup
	wg.Go(func() {
		deposit(ctx, c, client, account.ID)
	})
	wg.Go(func() {
		withdraw(ctx, c, client, account.ID)
	})

	wg.Wait()

	return nil
}

func deposit(ctx context.Context, c Config, client *http.Client, accountID string) {
	ticker := time.NewTicker(c.DepositInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range c.DepositCount {
				req := api.CreateTransactionRequest{
					Amount:      decimal.NewFromFloat(c.DepositAmount * (1 + rand.Float64())).Round(2),
					Currency:    c.Currency,
					Direction:   "IN",
					Description: "load test deposit",
				}

				var resp api.CreateTransactionResponse
				if err := postJSON(ctx, client, c.Addr+"/api/account/"+accountID+"/transaction", req, &resp); err != nil {
					slog.ErrorContext(ctx, "deposit failed", "error", err, "i", i)
					continue
				}
			}

			slog.InfoContext(ctx, "created deposits", "count", c.DepositCount)
		}
	}
}

func withdraw(ctx context.Context, c Config, client *http.Client, accountID string) {
	ticker := time.NewTicker(c.WithdrawInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range c.WithdrawCount {
				req := api.CreateTransactionRequest{
					Amount:      decimal.NewFromFloat(c.WithdrawAmount * (1 + rand.Float64())).Round(2),
					Currency:    c.Currency,
					Direction:   "OUT",
					Description: "load test withdrawal",
				}

				var resp api.CreateTransactionResponse
				if err := postJSON(ctx, client, c.Addr+"/api/account/"+accountID+"/transaction", req, &resp); err != nil {
					// Rejections such as insufficient funds are expected here.
					slog.WarnContext(ctx, "withdrawal rejected", "error", err, "i", i)
					continue
				}
			}

			slog.InfoContext(ctx, "created withdrawals", "count", c.WithdrawCount)
		}
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
