package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the per-account, per-currency balance record. Balance holds
// spendable funds; LockedBalance holds funds committed to an active trade
// offer. Both are always non-negative.
type Wallet struct {
	AccountID     uuid.UUID
	Currency      string
	Balance       decimal.Decimal
	LockedBalance decimal.Decimal
	UpdatedAt     time.Time
}

// Entry is one signed balance delta against a wallet. Multi-leg operations
// pass several entries that commit or fail together. By default the delta
// posts against the spendable balance; with FromLocked set it posts against
// the locked balance instead, which is how an escrowed leg settles in the
// same atomic operation as its counter-legs.
type Entry struct {
	AccountID  uuid.UUID
	Currency   string
	Amount     decimal.Decimal
	FromLocked bool
}
