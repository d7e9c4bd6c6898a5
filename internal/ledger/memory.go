package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletKey struct {
	account  uuid.UUID
	currency string
}

type memoryStore struct {
	mu      sync.Mutex
	wallets map[walletKey]*Wallet
}

// NewInMemory creates a concurrency-safe in-memory wallet store useful for
// unit tests and local development. It enforces the same atomicity and
// non-negativity gates as the Postgres store.
func NewInMemory() Store {
	return &memoryStore{wallets: make(map[walletKey]*Wallet)}
}

func (s *memoryStore) CreateWallets(_ context.Context, accountID uuid.UUID, opening map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for currency, balance := range opening {
		key := walletKey{account: accountID, currency: currency}
		if _, exists := s.wallets[key]; exists {
			continue
		}
		s.wallets[key] = &Wallet{
			AccountID:     accountID,
			Currency:      currency,
			Balance:       balance,
			LockedBalance: decimal.Zero,
			UpdatedAt:     time.Now().UTC(),
		}
	}
	return nil
}

func (s *memoryStore) Wallet(_ context.Context, accountID uuid.UUID, currency string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey{account: accountID, currency: currency}]
	if !ok {
		return Wallet{}, fmt.Errorf("%w: %s/%s", ErrWalletNotFound, accountID, currency)
	}
	return *w, nil
}

func (s *memoryStore) Wallets(_ context.Context, accountID uuid.UUID) ([]Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Wallet
	for _, w := range s.wallets {
		if w.AccountID == accountID {
			out = append(out, *w)
		}
	}
	sortWallets(out)
	return out, nil
}

func (s *memoryStore) AllWallets(_ context.Context) ([]Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, *w)
	}
	sortWallets(out)
	return out, nil
}

// Apply validates every leg before writing any of them, all under one mutex
// hold, so a failing leg leaves the store untouched and no reader observes a
// subset of the legs.
func (s *memoryStore) Apply(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type postState struct {
		balance decimal.Decimal
		locked  decimal.Decimal
	}
	post := make(map[walletKey]postState, len(entries))
	for _, e := range entries {
		key := walletKey{account: e.AccountID, currency: e.Currency}
		state, ok := post[key]
		if !ok {
			w, exists := s.wallets[key]
			if !exists {
				return fmt.Errorf("%w: %s/%s", ErrWalletNotFound, e.AccountID, e.Currency)
			}
			state = postState{balance: w.Balance, locked: w.LockedBalance}
		}
		if e.FromLocked {
			state.locked = state.locked.Add(e.Amount)
			if state.locked.IsNegative() {
				return fmt.Errorf("%w: %s", ErrInvariantViolation, e.Currency)
			}
		} else {
			state.balance = state.balance.Add(e.Amount)
			if state.balance.IsNegative() {
				return fmt.Errorf("%w: %s", ErrInsufficientFunds, e.Currency)
			}
		}
		post[key] = state
	}

	now := time.Now().UTC()
	for key, state := range post {
		s.wallets[key].Balance = state.balance
		s.wallets[key].LockedBalance = state.locked
		s.wallets[key].UpdatedAt = now
	}
	return nil
}

func (s *memoryStore) Lock(_ context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: lock amount must be positive", ErrInvalidOperation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey{account: accountID, currency: currency}]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrWalletNotFound, accountID, currency)
	}
	if w.Balance.LessThan(amount) {
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, currency)
	}
	w.Balance = w.Balance.Sub(amount)
	w.LockedBalance = w.LockedBalance.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryStore) Unlock(_ context.Context, accountID uuid.UUID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: unlock amount must be positive", ErrInvalidOperation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey{account: accountID, currency: currency}]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrWalletNotFound, accountID, currency)
	}
	if w.LockedBalance.LessThan(amount) {
		return fmt.Errorf("%w: %s", ErrInvariantViolation, currency)
	}
	w.LockedBalance = w.LockedBalance.Sub(amount)
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func sortWallets(ws []Wallet) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].AccountID != ws[j].AccountID {
			return ws[i].AccountID.String() < ws[j].AccountID.String()
		}
		return ws[i].Currency < ws[j].Currency
	})
}
