package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the contract implemented by ledger backends (Postgres in
// production, in-memory for tests). It is the only component allowed to
// mutate wallet rows. Every mutating call is atomic: either all legs commit
// or none do, and no intermediate state is observable to another reader.
type Store interface {
	// CreateWallets inserts one wallet row per entry in opening, skipping
	// rows that already exist.
	CreateWallets(ctx context.Context, accountID uuid.UUID, opening map[string]decimal.Decimal) error

	Wallet(ctx context.Context, accountID uuid.UUID, currency string) (Wallet, error)
	Wallets(ctx context.Context, accountID uuid.UUID) ([]Wallet, error)
	// AllWallets returns every wallet row, used by read-side aggregation.
	// The scan tolerates snapshot staleness across accounts.
	AllWallets(ctx context.Context) ([]Wallet, error)

	// Apply posts all entries in one transaction. Any leg that would drive a
	// spendable balance negative fails the whole operation with
	// ErrInsufficientFunds; a FromLocked leg that would drive a locked
	// balance negative fails it with ErrInvariantViolation. No reader ever
	// observes a subset of the legs.
	Apply(ctx context.Context, entries []Entry) error

	// Lock moves amount from spendable to locked balance.
	Lock(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal) error

	// Unlock moves amount from locked back to spendable balance. Fails with
	// ErrInvariantViolation if less than amount is locked.
	Unlock(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal) error
}
