package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// ErrNotFound occurs when no account exists for the requested identifier.
var ErrNotFound = errors.New("account not found")

// Repository persists accounts and seeds their wallet set on creation.
type Repository interface {
	// ResolveOrCreate returns the account for externalID, creating it with
	// the opening wallet set if absent. The boolean reports whether a new
	// account was created. Idempotent under concurrent duplicate calls.
	ResolveOrCreate(ctx context.Context, externalID, displayName string, opening map[string]decimal.Decimal) (Account, bool, error)
	Get(ctx context.Context, id uuid.UUID) (Account, error)
	List(ctx context.Context) ([]Account, error)
}

// PostgresRepository stores accounts in PostgreSQL. Wallet seeding happens in
// the same transaction as account creation via the ledger store's
// transaction-scoped helper.
type PostgresRepository struct {
	db     *pgxpool.Pool
	ledger *ledger.PostgresStore
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool, store *ledger.PostgresStore) *PostgresRepository {
	return &PostgresRepository{db: db, ledger: store}
}

const accountColumns = `id, external_id, display_name, last_bonus_claim, created_at`

// ResolveOrCreate implements Repository. The uniqueness constraint on
// external_id is the sole guard against duplicate creation; there is no
// check-then-insert race.
func (r *PostgresRepository) ResolveOrCreate(ctx context.Context, externalID, displayName string, opening map[string]decimal.Decimal) (Account, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Account{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var acc Account
	err = tx.QueryRow(ctx, `INSERT INTO accounts (id, external_id, display_name)
        VALUES ($1, $2, $3)
        ON CONFLICT (external_id) DO NOTHING
        RETURNING `+accountColumns, uuid.New(), externalID, displayName).
		Scan(&acc.ID, &acc.ExternalID, &acc.DisplayName, &acc.LastBonusClaim, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the insert race or the account already existed.
			existing, ferr := r.findByExternalID(ctx, externalID)
			if ferr != nil {
				return Account{}, false, ferr
			}
			return existing, false, nil
		}
		return Account{}, false, fmt.Errorf("insert account: %w", err)
	}

	if err := r.ledger.CreateWalletsTx(ctx, tx, acc.ID, opening); err != nil {
		return Account{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Account{}, false, fmt.Errorf("commit: %w", err)
	}
	return acc, true, nil
}

// Get fetches an account by internal id.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	var acc Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id).
		Scan(&acc.ID, &acc.ExternalID, &acc.DisplayName, &acc.LastBonusClaim, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Account{}, err
	}
	return acc, nil
}

// List returns every account ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.ExternalID, &acc.DisplayName, &acc.LastBonusClaim, &acc.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (r *PostgresRepository) findByExternalID(ctx context.Context, externalID string) (Account, error) {
	var acc Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_id = $1`, externalID).
		Scan(&acc.ID, &acc.ExternalID, &acc.DisplayName, &acc.LastBonusClaim, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: external id %s", ErrNotFound, externalID)
		}
		return Account{}, err
	}
	return acc, nil
}
