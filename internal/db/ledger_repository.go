package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerTimeout bounds ledger queries issued without a caller context.
const ledgerTimeout = 5 * time.Second

// LedgerRepository is the PostgreSQL-backed economy ledger. Every
// deposit writes a journal entry alongside the balance update.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a ledger repository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// CanAfford reports whether the account holds at least amount.
// Query failures are logged and reported as "cannot afford".
func (r *LedgerRepository) CanAfford(accountID string, amount int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM ledger_accounts WHERE account_id = $1`, accountID,
	).Scan(&balance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Error("ledger balance query failed", "account", accountID, "err", err)
		}
		return false
	}
	return balance >= amount
}

// Deposit credits the account and journals the transaction.
func (r *LedgerRepository) Deposit(accountID string, amount int64, memo string) error {
	if amount < 0 {
		return fmt.Errorf("depositing to %s: negative amount %d", accountID, amount)
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning deposit tx for %s: %w", accountID, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_accounts (account_id, balance) VALUES ($1, $2)
		 ON CONFLICT (account_id) DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance`,
		accountID, amount)
	if err != nil {
		return fmt.Errorf("crediting %s: %w", accountID, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries (account_id, amount, memo) VALUES ($1, $2, $3)`,
		accountID, amount, memo)
	if err != nil {
		return fmt.Errorf("journaling deposit to %s: %w", accountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing deposit to %s: %w", accountID, err)
	}
	return nil
}
