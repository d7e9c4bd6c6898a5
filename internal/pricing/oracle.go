package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Oracle supplies current unit prices for trading pairs. Price feeds are
// maintained outside this service; the core only reads them, always before a
// ledger transaction begins.
type Oracle interface {
	// Price returns the current unit price for a pair, or ok=false when the
	// oracle has no quote for it.
	Price(ctx context.Context, pair string) (decimal.Decimal, bool, error)

	// Prices returns quotes for the requested pairs. Pairs without a quote
	// are absent from the result.
	Prices(ctx context.Context, pairs []string) (map[string]decimal.Decimal, error)
}

// Static is a fixed-price oracle for tests and local development.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
}

// NewStatic builds a static oracle from the given quotes.
func NewStatic(quotes map[string]decimal.Decimal) *Static {
	cloned := make(map[string]decimal.Decimal, len(quotes))
	for pair, price := range quotes {
		cloned[pair] = price
	}
	return &Static{quotes: cloned}
}

// Set updates or adds a quote.
func (s *Static) Set(pair string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[pair] = price
}

// Delete removes a quote, making the pair unavailable.
func (s *Static) Delete(pair string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, pair)
}

// Price implements Oracle.
func (s *Static) Price(_ context.Context, pair string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.quotes[pair]
	return price, ok, nil
}

// Prices implements Oracle.
func (s *Static) Prices(_ context.Context, pairs []string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(pairs))
	for _, pair := range pairs {
		if price, ok := s.quotes[pair]; ok {
			out[pair] = price
		}
	}
	return out, nil
}
