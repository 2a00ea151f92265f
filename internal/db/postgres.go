package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// ConnectPostgres opens the listings database and verifies it is reachable.
func ConnectPostgres(databaseURL string) (*sqlx.DB, error) {
	pg, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres: %w", err)
	}
	pg.SetMaxOpenConns(25)
	pg.SetMaxIdleConns(5)
	pg.SetConnMaxLifetime(30 * time.Minute)

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := pg.PingContext(ctxPing); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	fmt.Println("Successfully connected to Postgres!")
	return pg, nil
}

// DisconnectPostgres closes the connection pool.
func DisconnectPostgres(pg *sqlx.DB) error {
	if pg == nil {
		return nil
	}
	if err := pg.Close(); err != nil {
		return fmt.Errorf("failed to close Postgres: %w", err)
	}
	fmt.Println("Postgres connection closed.")
	return nil
}

// EnsureSchema creates the listings table and its indexes when missing.
func EnsureSchema(ctx context.Context, pg *sqlx.DB) error {
	if _, err := pg.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
