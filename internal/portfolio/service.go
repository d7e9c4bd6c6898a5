package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Service is the read side: it aggregates wallets against caller-supplied
// prices. It never mutates and never locks; leaderboard rank is a
// point-in-time snapshot, so staleness across the scan is acceptable.
type Service struct {
	accounts     account.Repository
	ledger       ledger.Store
	baseCurrency string
}

// NewService builds a portfolio service instance.
func NewService(accounts account.Repository, store ledger.Store, baseCurrency string) *Service {
	return &Service{accounts: accounts, ledger: store, baseCurrency: baseCurrency}
}

// Holding is one currency's contribution to a portfolio.
type Holding struct {
	Currency string
	Balance  decimal.Decimal
	Value    decimal.Decimal
}

// Valuation is a portfolio total with its per-currency breakdown.
type Valuation struct {
	AccountID  uuid.UUID
	TotalValue decimal.Decimal
	Breakdown  []Holding
}

// Entry is one leaderboard row.
type Entry struct {
	Rank        int
	AccountID   uuid.UUID
	DisplayName string
	TotalValue  decimal.Decimal
}

// RankInfo places one account within the whole field.
type RankInfo struct {
	Rank          int
	TotalAccounts int
	Percentile    float64
	TotalValue    decimal.Decimal
}

// CoinEntry is one row of a single-currency leaderboard.
type CoinEntry struct {
	Rank        int
	AccountID   uuid.UUID
	DisplayName string
	Balance     decimal.Decimal
}

// Pair returns the quoted pair used to price a currency against the base.
func (s *Service) Pair(currency string) string {
	return fmt.Sprintf("%s/%s", currency, s.baseCurrency)
}

// Value computes the account's total portfolio value in base units. The base
// currency is priced at 1; currencies without a quote value at zero. Only
// currencies with a positive balance appear in the breakdown.
func (s *Service) Value(ctx context.Context, accountID uuid.UUID, prices map[string]decimal.Decimal) (Valuation, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return Valuation{}, err
	}
	wallets, err := s.ledger.Wallets(ctx, accountID)
	if err != nil {
		return Valuation{}, err
	}
	return s.valuation(accountID, wallets, prices), nil
}

// Leaderboard ranks every player account by portfolio value, descending.
// Ties break by account id so ranking is deterministic.
func (s *Service) Leaderboard(ctx context.Context, prices map[string]decimal.Decimal, limit int) ([]Entry, error) {
	entries, err := s.rankAll(ctx, prices)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rank returns the account's leaderboard position and percentile.
func (s *Service) Rank(ctx context.Context, accountID uuid.UUID, prices map[string]decimal.Decimal) (RankInfo, error) {
	entries, err := s.rankAll(ctx, prices)
	if err != nil {
		return RankInfo{}, err
	}
	total := len(entries)
	for _, e := range entries {
		if e.AccountID == accountID {
			return RankInfo{
				Rank:          e.Rank,
				TotalAccounts: total,
				Percentile:    float64(total-e.Rank) / float64(total) * 100,
				TotalValue:    e.TotalValue,
			}, nil
		}
	}
	return RankInfo{}, fmt.Errorf("%w: %s", account.ErrNotFound, accountID)
}

// CoinLeaderboard ranks accounts by spendable balance in a single currency.
func (s *Service) CoinLeaderboard(ctx context.Context, currency string, limit int) ([]CoinEntry, error) {
	accounts, err := s.playerAccounts(ctx)
	if err != nil {
		return nil, err
	}
	wallets, err := s.ledger.AllWallets(ctx)
	if err != nil {
		return nil, err
	}

	balances := make(map[uuid.UUID]decimal.Decimal, len(accounts))
	for _, w := range wallets {
		if w.Currency == currency {
			balances[w.AccountID] = w.Balance
		}
	}

	entries := make([]CoinEntry, 0, len(accounts))
	for _, acc := range accounts {
		entries = append(entries, CoinEntry{
			AccountID:   acc.ID,
			DisplayName: acc.DisplayName,
			Balance:     balances[acc.ID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Balance.Equal(entries[j].Balance) {
			return entries[i].Balance.GreaterThan(entries[j].Balance)
		}
		return entries[i].AccountID.String() < entries[j].AccountID.String()
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) rankAll(ctx context.Context, prices map[string]decimal.Decimal) ([]Entry, error) {
	accounts, err := s.playerAccounts(ctx)
	if err != nil {
		return nil, err
	}
	wallets, err := s.ledger.AllWallets(ctx)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[uuid.UUID][]ledger.Wallet, len(accounts))
	for _, w := range wallets {
		byAccount[w.AccountID] = append(byAccount[w.AccountID], w)
	}

	entries := make([]Entry, 0, len(accounts))
	for _, acc := range accounts {
		v := s.valuation(acc.ID, byAccount[acc.ID], prices)
		entries = append(entries, Entry{
			AccountID:   acc.ID,
			DisplayName: acc.DisplayName,
			TotalValue:  v.TotalValue,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].TotalValue.Equal(entries[j].TotalValue) {
			return entries[i].TotalValue.GreaterThan(entries[j].TotalValue)
		}
		return entries[i].AccountID.String() < entries[j].AccountID.String()
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *Service) playerAccounts(ctx context.Context) ([]account.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	players := accounts[:0]
	for _, acc := range accounts {
		if !acc.IsHouse() {
			players = append(players, acc)
		}
	}
	return players, nil
}

func (s *Service) valuation(accountID uuid.UUID, wallets []ledger.Wallet, prices map[string]decimal.Decimal) Valuation {
	v := Valuation{AccountID: accountID, TotalValue: decimal.Zero}
	for _, w := range wallets {
		var value decimal.Decimal
		if w.Currency == s.baseCurrency {
			value = w.Balance
		} else if price, ok := prices[s.Pair(w.Currency)]; ok {
			value = w.Balance.Mul(price)
		}
		v.TotalValue = v.TotalValue.Add(value)
		if w.Balance.IsPositive() {
			v.Breakdown = append(v.Breakdown, Holding{Currency: w.Currency, Balance: w.Balance, Value: value})
		}
	}
	return v
}
