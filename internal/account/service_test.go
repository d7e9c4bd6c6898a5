package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

var testCurrencies = []string{"BTC", "ETH", "USDT"}

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	store := ledger.NewInMemory()
	repo := NewMemoryRepository(store)
	svc := NewService(repo, testCurrencies, "USDT", decimal.RequireFromString("10000"))
	return svc, store
}

func TestResolveOrCreateSeedsWallets(t *testing.T) {
	svc, store := newTestService(t)

	acc, created, err := svc.ResolveOrCreate(context.Background(), "player-1", "Alice")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first sight")
	}
	if acc.DisplayName != "Alice" {
		t.Fatalf("display name = %q, want Alice", acc.DisplayName)
	}

	wallets, err := store.Wallets(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("failed to read wallets: %v", err)
	}
	if len(wallets) != len(testCurrencies) {
		t.Fatalf("got %d wallets, want %d", len(wallets), len(testCurrencies))
	}
	for _, w := range wallets {
		want := decimal.Zero
		if w.Currency == "USDT" {
			want = decimal.RequireFromString("10000")
		}
		if !w.Balance.Equal(want) {
			t.Fatalf("wallet %s balance = %s, want %s", w.Currency, w.Balance, want)
		}
	}
}

func TestResolveOrCreateIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)

	first, _, err := svc.ResolveOrCreate(context.Background(), "player-1", "Alice")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}

	// Spend something so a second resolve would be visible if it re-seeded.
	err = store.Apply(context.Background(), []ledger.Entry{
		{AccountID: first.ID, Currency: "USDT", Amount: decimal.RequireFromString("-500")},
	})
	if err != nil {
		t.Fatalf("spend failed: %v", err)
	}

	second, created, err := svc.ResolveOrCreate(context.Background(), "player-1", "Someone Else")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if created {
		t.Fatal("expected created=false on second sight")
	}
	if second.ID != first.ID {
		t.Fatalf("resolve returned a different account: %s vs %s", second.ID, first.ID)
	}
	if second.DisplayName != "Alice" {
		t.Fatalf("display name changed to %q", second.DisplayName)
	}

	w, err := store.Wallet(context.Background(), first.ID, "USDT")
	if err != nil {
		t.Fatalf("failed to read wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("9500")) {
		t.Fatalf("balance re-seeded: %s", w.Balance)
	}
}

func TestResolveOrCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, _, err := svc.ResolveOrCreate(context.Background(), "", "Alice"); !errors.Is(err, ledger.ErrInvalidOperation) {
		t.Fatalf("empty external id: expected ErrInvalidOperation, got %v", err)
	}
	if _, _, err := svc.ResolveOrCreate(context.Background(), HouseExternalID, "Sneaky"); !errors.Is(err, ledger.ErrInvalidOperation) {
		t.Fatalf("reserved external id: expected ErrInvalidOperation, got %v", err)
	}
}

func TestResolveOrCreateDefaultsDisplayName(t *testing.T) {
	svc, _ := newTestService(t)

	acc, _, err := svc.ResolveOrCreate(context.Background(), "player-7", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if acc.DisplayName != "player-7" {
		t.Fatalf("display name = %q, want external id fallback", acc.DisplayName)
	}
}

func TestEnsureHouseOpensAtZero(t *testing.T) {
	svc, store := newTestService(t)

	house, err := svc.EnsureHouse(context.Background())
	if err != nil {
		t.Fatalf("EnsureHouse failed: %v", err)
	}
	if !house.IsHouse() {
		t.Fatal("expected house account")
	}

	w, err := store.Wallet(context.Background(), house.ID, "USDT")
	if err != nil {
		t.Fatalf("failed to read house wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("house USDT balance = %s, want 0", w.Balance)
	}

	again, err := svc.EnsureHouse(context.Background())
	if err != nil {
		t.Fatalf("second EnsureHouse failed: %v", err)
	}
	if again.ID != house.ID {
		t.Fatal("EnsureHouse created a second house account")
	}
}

func TestConcurrentResolveReturnsOneAccount(t *testing.T) {
	svc, _ := newTestService(t)

	const attempts = 20
	var wg sync.WaitGroup
	accounts := make([]Account, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acc, _, err := svc.ResolveOrCreate(context.Background(), "player-1", "Alice")
			if err != nil {
				t.Errorf("resolve failed: %v", err)
				return
			}
			accounts[i] = acc
		}(i)
	}
	wg.Wait()

	for i := 1; i < attempts; i++ {
		if accounts[i].ID != accounts[0].ID {
			t.Fatalf("concurrent resolves produced different accounts")
		}
	}
}
