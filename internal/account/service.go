package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Service exposes account registry operations. New accounts receive one
// wallet per supported currency, with the base currency seeded at the
// configured initial balance and every other currency at zero.
type Service struct {
	repo           Repository
	currencies     []string
	baseCurrency   string
	initialBalance decimal.Decimal
}

// NewService builds an account service instance.
func NewService(repo Repository, currencies []string, baseCurrency string, initialBalance decimal.Decimal) *Service {
	return &Service{
		repo:           repo,
		currencies:     currencies,
		baseCurrency:   baseCurrency,
		initialBalance: initialBalance,
	}
}

// ResolveOrCreate returns the account for the externally authenticated
// identity, creating and seeding it on first sight.
func (s *Service) ResolveOrCreate(ctx context.Context, externalID, displayName string) (Account, bool, error) {
	if externalID == "" {
		return Account{}, false, fmt.Errorf("%w: external id is required", ledger.ErrInvalidOperation)
	}
	if externalID == HouseExternalID {
		return Account{}, false, fmt.Errorf("%w: reserved external id", ledger.ErrInvalidOperation)
	}
	if displayName == "" {
		displayName = externalID
	}
	return s.repo.ResolveOrCreate(ctx, externalID, displayName, s.opening(s.initialBalance))
}

// EnsureHouse creates the fee-collecting system account if it does not exist
// yet and returns it. Its wallets open at zero.
func (s *Service) EnsureHouse(ctx context.Context) (Account, error) {
	acc, _, err := s.repo.ResolveOrCreate(ctx, HouseExternalID, "House", s.opening(decimal.Zero))
	return acc, err
}

// Get fetches an account by internal id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) opening(baseBalance decimal.Decimal) map[string]decimal.Decimal {
	opening := make(map[string]decimal.Decimal, len(s.currencies))
	for _, currency := range s.currencies {
		if currency == s.baseCurrency {
			opening[currency] = baseBalance
		} else {
			opening[currency] = decimal.Zero
		}
	}
	return opening
}
