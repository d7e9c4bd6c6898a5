package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

type memoryRepository struct {
	mu       sync.Mutex
	byExtID  map[string]Account
	byID     map[uuid.UUID]Account
	ledger   ledger.Store
	sequence int
}

// NewMemoryRepository constructs an in-memory repository for tests and local
// development. Wallet seeding goes through the provided ledger store.
func NewMemoryRepository(store ledger.Store) Repository {
	return &memoryRepository{
		byExtID: make(map[string]Account),
		byID:    make(map[uuid.UUID]Account),
		ledger:  store,
	}
}

func (r *memoryRepository) ResolveOrCreate(ctx context.Context, externalID, displayName string, opening map[string]decimal.Decimal) (Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if acc, exists := r.byExtID[externalID]; exists {
		return acc, false, nil
	}

	r.sequence++
	acc := Account{
		ID:          uuid.New(),
		ExternalID:  externalID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC().Add(time.Duration(r.sequence)), // stable ordering for List
	}
	if err := r.ledger.CreateWallets(ctx, acc.ID, opening); err != nil {
		return Account{}, false, err
	}
	r.byExtID[externalID] = acc
	r.byID[acc.ID] = acc
	return acc, true, nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return acc, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts := make([]Account, 0, len(r.byID))
	for _, acc := range r.byID {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}
