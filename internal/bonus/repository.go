package bonus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// TooEarlyError reports a claim attempt inside the cooldown window.
type TooEarlyError struct {
	Remaining time.Duration
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("bonus already claimed, next claim in %s", e.Remaining.Round(time.Second))
}

// Unwrap makes the error match ledger.ErrTooEarly via errors.Is.
func (e *TooEarlyError) Unwrap() error { return ledger.ErrTooEarly }

// Repository applies bonus claims. The cooldown check, the timestamp write
// and the wallet credit commit in one transaction so two concurrent claims
// can never both pass the check.
type Repository interface {
	Claim(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal, cooldown time.Duration) (time.Time, error)
}

// PostgresRepository gates claims with a single conditional UPDATE on the
// account row: the update only matches when the cooldown has elapsed, so the
// row lock it takes is the serialization point for racing claims.
type PostgresRepository struct {
	db     *pgxpool.Pool
	ledger *ledger.PostgresStore
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool, store *ledger.PostgresStore) *PostgresRepository {
	return &PostgresRepository{db: db, ledger: store}
}

// Claim implements Repository.
func (r *PostgresRepository) Claim(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal, cooldown time.Duration) (time.Time, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return time.Time{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `UPDATE accounts SET last_bonus_claim = $1
        WHERE id = $2 AND (last_bonus_claim IS NULL OR last_bonus_claim <= $3)`,
		now, accountID, now.Add(-cooldown))
	if err != nil {
		return time.Time{}, fmt.Errorf("claim gate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var last *time.Time
		err := tx.QueryRow(ctx, `SELECT last_bonus_claim FROM accounts WHERE id = $1`, accountID).Scan(&last)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return time.Time{}, fmt.Errorf("%w: %s", account.ErrNotFound, accountID)
			}
			return time.Time{}, err
		}
		remaining := cooldown
		if last != nil {
			remaining = cooldown - now.Sub(*last)
		}
		return time.Time{}, &TooEarlyError{Remaining: remaining}
	}

	err = r.ledger.ApplyTx(ctx, tx, []ledger.Entry{{AccountID: accountID, Currency: currency, Amount: amount}})
	if err != nil {
		return time.Time{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO bonus_claims (account_id, claimed_at, amount) VALUES ($1, $2, $3)`,
		accountID, now, amount); err != nil {
		return time.Time{}, fmt.Errorf("record claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("commit: %w", err)
	}
	return now, nil
}
