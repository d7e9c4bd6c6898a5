package escrow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Service runs the peer-offer workflow: create locks funds, accept swaps and
// settles, cancel returns the lock. Each transition is one atomic operation.
type Service struct {
	repo Repository
}

// NewService builds an escrow service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures a new offer request.
type CreateInput struct {
	CreatorID          uuid.UUID
	OfferingCurrency   string
	OfferingAmount     decimal.Decimal
	RequestingCurrency string
	RequestingAmount   decimal.Decimal
}

// Create validates the proposal, locks the offered amount out of the
// creator's spendable balance and stores the offer as active.
func (s *Service) Create(ctx context.Context, in CreateInput) (Offer, error) {
	offering := strings.ToUpper(strings.TrimSpace(in.OfferingCurrency))
	requesting := strings.ToUpper(strings.TrimSpace(in.RequestingCurrency))

	if offering == "" || requesting == "" {
		return Offer{}, fmt.Errorf("%w: both currencies are required", ledger.ErrInvalidOperation)
	}
	if offering == requesting {
		return Offer{}, fmt.Errorf("%w: cannot trade %s for itself", ledger.ErrInvalidOperation, offering)
	}
	if !in.OfferingAmount.IsPositive() || !in.RequestingAmount.IsPositive() {
		return Offer{}, fmt.Errorf("%w: amounts must be positive", ledger.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	offer := Offer{
		ID:                 uuid.New(),
		CreatorID:          in.CreatorID,
		OfferingCurrency:   offering,
		OfferingAmount:     in.OfferingAmount,
		RequestingCurrency: requesting,
		RequestingAmount:   in.RequestingAmount,
		Status:             StatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return Offer{}, err
	}
	return offer, nil
}

// Accept settles an active offer for the acceptor. Self-acceptance is
// rejected regardless of balances.
func (s *Service) Accept(ctx context.Context, offerID, acceptorID uuid.UUID) (Settlement, error) {
	return s.repo.Accept(ctx, offerID, acceptorID)
}

// Cancel withdraws an active offer and returns the locked funds.
func (s *Service) Cancel(ctx context.Context, offerID, creatorID uuid.UUID) (Offer, error) {
	return s.repo.Cancel(ctx, offerID, creatorID)
}

// ListActive returns open offers, optionally hiding one creator's own.
func (s *Service) ListActive(ctx context.Context, exclude *uuid.UUID) ([]Listing, error) {
	return s.repo.ListActive(ctx, exclude)
}

// ListByCreator returns the creator's open offers.
func (s *Service) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]Offer, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}
