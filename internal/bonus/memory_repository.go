package bonus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

type memoryRepository struct {
	mu        sync.Mutex
	lastClaim map[uuid.UUID]time.Time
	ledger    ledger.Store
}

// NewMemoryRepository constructs an in-memory claim repository for tests. The
// mutex makes the check and the credit one atomic step, matching the
// Postgres transaction semantics.
func NewMemoryRepository(store ledger.Store) Repository {
	return &memoryRepository{lastClaim: make(map[uuid.UUID]time.Time), ledger: store}
}

func (r *memoryRepository) Claim(ctx context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal, cooldown time.Duration) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if last, ok := r.lastClaim[accountID]; ok {
		if since := now.Sub(last); since < cooldown {
			return time.Time{}, &TooEarlyError{Remaining: cooldown - since}
		}
	}

	err := r.ledger.Apply(ctx, []ledger.Entry{{AccountID: accountID, Currency: currency, Amount: amount}})
	if err != nil {
		return time.Time{}, err
	}
	r.lastClaim[accountID] = now
	return now, nil
}
