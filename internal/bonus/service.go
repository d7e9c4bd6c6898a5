package bonus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Service credits a fixed bonus to the account's base-currency wallet, at
// most once per cooldown window.
type Service struct {
	repo     Repository
	ledger   ledger.Store
	amount   decimal.Decimal
	currency string
	cooldown time.Duration
}

// NewService builds a bonus service instance.
func NewService(repo Repository, store ledger.Store, amount decimal.Decimal, currency string, cooldown time.Duration) *Service {
	return &Service{repo: repo, ledger: store, amount: amount, currency: currency, cooldown: cooldown}
}

// Result describes a successful claim.
type Result struct {
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
	ClaimedAt  time.Time
}

// Claim credits the bonus if the cooldown has elapsed. Inside the window it
// returns a TooEarlyError carrying the remaining wait, with no mutation.
func (s *Service) Claim(ctx context.Context, accountID uuid.UUID) (Result, error) {
	claimedAt, err := s.repo.Claim(ctx, accountID, s.currency, s.amount, s.cooldown)
	if err != nil {
		return Result{}, err
	}

	wallet, err := s.ledger.Wallet(ctx, accountID, s.currency)
	if err != nil {
		return Result{}, err
	}
	return Result{Amount: s.amount, NewBalance: wallet.Balance, ClaimedAt: claimedAt}, nil
}
