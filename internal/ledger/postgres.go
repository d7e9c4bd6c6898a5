package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists wallets in PostgreSQL. Correctness under concurrent
// callers is enforced by the database: every mutation runs in a single
// transaction and every balance write carries its non-negativity condition in
// the UPDATE itself, so two racing operations can never interleave into a
// negative balance or a lost update.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed wallet store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallets inserts the opening wallet set for an account.
func (s *PostgresStore) CreateWallets(ctx context.Context, accountID uuid.UUID, opening map[string]decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := s.CreateWalletsTx(ctx, tx, accountID, opening); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

// CreateWalletsTx is the transaction-scoped variant of CreateWallets, used by
// the account registry so seeding commits atomically with account creation.
func (s *PostgresStore) CreateWalletsTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, opening map[string]decimal.Decimal) error {
	currencies := make([]string, 0, len(opening))
	for c := range opening {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		_, err := tx.Exec(ctx, `INSERT INTO wallets (account_id, currency, balance, locked_balance)
            VALUES ($1, $2, $3, 0)
            ON CONFLICT (account_id, currency) DO NOTHING`, accountID, currency, opening[currency])
		if err != nil {
			return storageErr(err)
		}
	}
	return nil
}

// Wallet returns a single wallet row.
func (s *PostgresStore) Wallet(ctx context.Context, accountID uuid.UUID, currency string) (Wallet, error) {
	const query = `SELECT account_id, currency, balance, locked_balance, updated_at
        FROM wallets WHERE account_id = $1 AND currency = $2`
	var w Wallet
	err := s.db.QueryRow(ctx, query, accountID, currency).
		Scan(&w.AccountID, &w.Currency, &w.Balance, &w.LockedBalance, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("%w: %s/%s", ErrWalletNotFound, accountID, currency)
		}
		return Wallet{}, storageErr(err)
	}
	return w, nil
}

// Wallets returns every wallet for one account ordered by currency.
func (s *PostgresStore) Wallets(ctx context.Context, accountID uuid.UUID) ([]Wallet, error) {
	const query = `SELECT account_id, currency, balance, locked_balance, updated_at
        FROM wallets WHERE account_id = $1 ORDER BY currency`
	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()
	return scanWallets(rows)
}

// AllWallets returns every wallet row in the store.
func (s *PostgresStore) AllWallets(ctx context.Context) ([]Wallet, error) {
	const query = `SELECT account_id, currency, balance, locked_balance, updated_at
        FROM wallets ORDER BY account_id, currency`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()
	return scanWallets(rows)
}

// Apply posts all entries within one transaction.
func (s *PostgresStore) Apply(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := s.ApplyTx(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

// ApplyTx posts all entries within the caller's transaction. Legs are applied
// in deterministic (account, currency) order so concurrent multi-leg
// operations cannot deadlock on row locks.
func (s *PostgresStore) ApplyTx(ctx context.Context, tx pgx.Tx, entries []Entry) error {
	ordered := append([]Entry(nil), entries...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.AccountID != b.AccountID {
			return a.AccountID.String() < b.AccountID.String()
		}
		return a.Currency < b.Currency
	})

	for _, e := range ordered {
		query := `UPDATE wallets
            SET balance = balance + $1, updated_at = now()
            WHERE account_id = $2 AND currency = $3 AND balance + $1 >= 0`
		gateErr := ErrInsufficientFunds
		if e.FromLocked {
			query = `UPDATE wallets
            SET locked_balance = locked_balance + $1, updated_at = now()
            WHERE account_id = $2 AND currency = $3 AND locked_balance + $1 >= 0`
			gateErr = ErrInvariantViolation
		}
		tag, err := tx.Exec(ctx, query, e.Amount, e.AccountID, e.Currency)
		if err != nil {
			return storageErr(err)
		}
		if tag.RowsAffected() == 0 {
			return gateFailure(ctx, tx, e.AccountID, e.Currency, gateErr)
		}
	}
	return nil
}

// Lock moves amount from spendable to locked balance.
func (s *PostgresStore) Lock(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.LockTx(ctx, tx, accountID, currency, amount)
	})
}

// LockTx is the transaction-scoped variant of Lock.
func (s *PostgresStore) LockTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: lock amount must be positive", ErrInvalidOperation)
	}
	tag, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = balance - $1, locked_balance = locked_balance + $1, updated_at = now()
        WHERE account_id = $2 AND currency = $3 AND balance >= $1`,
		amount, accountID, currency)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return gateFailure(ctx, tx, accountID, currency, ErrInsufficientFunds)
	}
	return nil
}

// Unlock moves amount from locked back to spendable balance.
func (s *PostgresStore) Unlock(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.UnlockTx(ctx, tx, accountID, currency, amount)
	})
}

// UnlockTx is the transaction-scoped variant of Unlock.
func (s *PostgresStore) UnlockTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: unlock amount must be positive", ErrInvalidOperation)
	}
	tag, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = balance + $1, locked_balance = locked_balance - $1, updated_at = now()
        WHERE account_id = $2 AND currency = $3 AND locked_balance >= $1`,
		amount, accountID, currency)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return gateFailure(ctx, tx, accountID, currency, ErrInvariantViolation)
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

// gateFailure distinguishes a missing wallet row from a failed balance
// condition after a conditional UPDATE matched no rows.
func gateFailure(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, gateErr error) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE account_id = $1 AND currency = $2)`,
		accountID, currency).Scan(&exists)
	if err != nil {
		return storageErr(err)
	}
	if !exists {
		return fmt.Errorf("%w: %s/%s", ErrWalletNotFound, accountID, currency)
	}
	return fmt.Errorf("%w: %s", gateErr, currency)
}

func scanWallets(rows pgx.Rows) ([]Wallet, error) {
	var wallets []Wallet
	for rows.Next() {
		var w Wallet
		if err := rows.Scan(&w.AccountID, &w.Currency, &w.Balance, &w.LockedBalance, &w.UpdatedAt); err != nil {
			return nil, storageErr(err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return wallets, nil
}
