package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/ksaarela/account-ledger-backend/internal/event"
	"github.com/ksaarela/account-ledger-backend/internal/service"
	"github.com/ksaarela/account-ledger-backend/internal/storage"
	"github.com/ksaarela/account-ledger-backend/internal/transport"
	"github.com/segmentio/kafka-go"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
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
	LogLevel     slog.Level `env:"LOG_LEVEL"`
	Addr         string     `env:"ADDR" envDefault:":8080"`
	DB           string     `env:"DB"`
	KafkaBrokers []string   `env:"KAFKA_BROKERS"`
	KafkaTopic   string     `env:"KAFKA_TOPIC" envDefault:"account-events"`
}

func run(ctx context.Context, c Config) error {
	pgxConfig, err := pgxpool.ParseConfig(c.DB)
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	pgxConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		pgxdecimal.Register(c.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, pgxConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(c.KafkaBrokers...),
		Topic:        c.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("failed to close kafka writer", "error", err)
		}
	}()

	accounts := service.NewAccounts(storage.NewAccounts(conn), event.NewPublisher(writer))

	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetHTTP2(true)
	protocols.SetUnencryptedHTTP2(true)

	server := &http.Server{
		Addr:         c.Addr,
		Handler:      h2c.NewHandler(transport.NewHandler(accounts), &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Protocols:    &protocols,
	}

	slog.InfoContext(ctx, "starting server", "addr", c.Addr)
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.InfoContext(ctx, "stopping server")
		if err := server.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown server", "error", err)
		}
		slog.InfoContext(ctx, "server stopped")
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
