package escrow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

type memoryRepository struct {
	mu          sync.Mutex
	offers      map[uuid.UUID]*Offer
	settlements []Settlement
	ledger      ledger.Store
	accounts    account.Repository
}

// NewMemoryRepository constructs an in-memory offer repository for tests and
// local development. Balance legs go through the provided ledger store; the
// repository mutex serializes offer operations so each one is atomic.
func NewMemoryRepository(store ledger.Store, accounts account.Repository) Repository {
	return &memoryRepository{
		offers:   make(map[uuid.UUID]*Offer),
		ledger:   store,
		accounts: accounts,
	}
}

func (r *memoryRepository) Create(ctx context.Context, offer Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ledger.Lock(ctx, offer.CreatorID, offer.OfferingCurrency, offer.OfferingAmount); err != nil {
		return err
	}
	stored := offer
	r.offers[offer.ID] = &stored
	return nil
}

func (r *memoryRepository) Get(_ context.Context, offerID uuid.UUID) (Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok {
		return Offer{}, fmt.Errorf("%w: %s", ErrNotFound, offerID)
	}
	return *o, nil
}

func (r *memoryRepository) Accept(ctx context.Context, offerID, acceptorID uuid.UUID) (Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.offers[offerID]
	if !ok {
		return Settlement{}, fmt.Errorf("%w: %s", ErrNotFound, offerID)
	}
	if o.Status != StatusActive {
		return Settlement{}, fmt.Errorf("%w: offer is %s", ledger.ErrOfferNotActive, o.Status)
	}
	if o.CreatorID == acceptorID {
		return Settlement{}, fmt.Errorf("%w: cannot accept your own offer", ledger.ErrInvalidOperation)
	}

	// All four legs post as one atomic ledger operation: a failing leg
	// leaves every balance untouched, and no concurrent reader observes a
	// subset of the legs.
	err := r.ledger.Apply(ctx, []ledger.Entry{
		{AccountID: acceptorID, Currency: o.RequestingCurrency, Amount: o.RequestingAmount.Neg()},
		{AccountID: acceptorID, Currency: o.OfferingCurrency, Amount: o.OfferingAmount},
		{AccountID: o.CreatorID, Currency: o.RequestingCurrency, Amount: o.RequestingAmount},
		{AccountID: o.CreatorID, Currency: o.OfferingCurrency, Amount: o.OfferingAmount.Neg(), FromLocked: true},
	})
	if err != nil {
		return Settlement{}, err
	}

	o.Status = StatusCompleted
	o.UpdatedAt = time.Now().UTC()

	settlement := Settlement{
		ID:                 uuid.New(),
		OfferID:            o.ID,
		CreatorID:          o.CreatorID,
		AcceptorID:         acceptorID,
		OfferingCurrency:   o.OfferingCurrency,
		OfferingAmount:     o.OfferingAmount,
		RequestingCurrency: o.RequestingCurrency,
		RequestingAmount:   o.RequestingAmount,
		CreatedAt:          o.UpdatedAt,
	}
	r.settlements = append(r.settlements, settlement)
	return settlement, nil
}

func (r *memoryRepository) Cancel(ctx context.Context, offerID, creatorID uuid.UUID) (Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.offers[offerID]
	if !ok {
		return Offer{}, fmt.Errorf("%w: %s", ErrNotFound, offerID)
	}
	if o.CreatorID != creatorID {
		return Offer{}, fmt.Errorf("%w: only the creator may cancel", ledger.ErrInvalidOperation)
	}
	if o.Status != StatusActive {
		return Offer{}, fmt.Errorf("%w: offer is %s", ledger.ErrOfferNotActive, o.Status)
	}

	if err := r.ledger.Unlock(ctx, o.CreatorID, o.OfferingCurrency, o.OfferingAmount); err != nil {
		return Offer{}, err
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return *o, nil
}

func (r *memoryRepository) ListActive(ctx context.Context, exclude *uuid.UUID) ([]Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var listings []Listing
	for _, o := range r.offers {
		if o.Status != StatusActive {
			continue
		}
		if exclude != nil && o.CreatorID == *exclude {
			continue
		}
		name := ""
		if acc, err := r.accounts.Get(ctx, o.CreatorID); err == nil {
			name = acc.DisplayName
		}
		listings = append(listings, Listing{Offer: *o, CreatorName: name})
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].CreatedAt.After(listings[j].CreatedAt) })
	return listings, nil
}

func (r *memoryRepository) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var offers []Offer
	for _, o := range r.offers {
		if o.CreatorID == creatorID && o.Status == StatusActive {
			offers = append(offers, *o)
		}
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].CreatedAt.After(offers[j].CreatedAt) })
	return offers, nil
}
