package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets the spendable balance for a wallet
// when using the in-memory store, creating the wallet if needed.
func SeedBalance(s Store, accountID uuid.UUID, currency string, balance decimal.Decimal) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		key := walletKey{account: accountID, currency: currency}
		if w, exists := mem.wallets[key]; exists {
			w.Balance = balance
			return
		}
		mem.wallets[key] = &Wallet{
			AccountID: accountID,
			Currency:  currency,
			Balance:   balance,
		}
	}
}
