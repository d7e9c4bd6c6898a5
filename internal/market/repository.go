package market

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the append-only market order audit trail.
type Repository interface {
	Record(ctx context.Context, t Transaction) error
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error)
}

// PostgresRepository stores transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record inserts a transaction record. Records are never updated or deleted.
func (r *PostgresRepository) Record(ctx context.Context, t Transaction) error {
	_, err := r.db.Exec(ctx, `INSERT INTO transactions (id, account_id, pair, side, amount, price, fee, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.AccountID, t.Pair, string(t.Side), t.Amount, t.Price, t.Fee, t.CreatedAt)
	return err
}

// History returns the most recent transactions for an account.
func (r *PostgresRepository) History(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, account_id, pair, side, amount, price, fee, created_at
        FROM transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var side string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Pair, &side, &t.Amount, &t.Price, &t.Fee, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}
