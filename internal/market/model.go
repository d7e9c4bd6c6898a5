package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Side is the direction of a market order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Transaction is the immutable audit record of one executed market order.
type Transaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Pair      string
	Side      Side
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Fee       decimal.Decimal
	CreatedAt time.Time
}

// splitPair parses "BASE/QUOTE" into its two currencies.
func splitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: malformed pair %q", ledger.ErrInvalidOperation, pair)
	}
	base, quote = strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
	if base == quote {
		return "", "", fmt.Errorf("%w: pair %q trades a currency against itself", ledger.ErrInvalidOperation, pair)
	}
	return base, quote, nil
}
