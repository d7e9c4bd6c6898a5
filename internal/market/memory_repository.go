package market

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.Mutex
	records []Transaction
}

// NewMemoryRepository constructs an in-memory transaction log for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Record(_ context.Context, t Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, t)
	return nil
}

func (r *memoryRepository) History(_ context.Context, accountID uuid.UUID, limit int) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].AccountID == accountID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}
