package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

type fixture struct {
	service  *Service
	store    ledger.Store
	accounts account.Repository
	alice    uuid.UUID
	bob      uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := ledger.NewInMemory()
	accounts := account.NewMemoryRepository(store)

	opening := map[string]decimal.Decimal{
		"USDT": decimal.RequireFromString("10000"),
		"BTC":  decimal.Zero,
		"ETH":  decimal.Zero,
	}
	alice, _, err := accounts.ResolveOrCreate(context.Background(), "alice", "Alice", opening)
	if err != nil {
		t.Fatalf("failed to create alice: %v", err)
	}
	bob, _, err := accounts.ResolveOrCreate(context.Background(), "bob", "Bob", opening)
	if err != nil {
		t.Fatalf("failed to create bob: %v", err)
	}

	svc := NewService(NewMemoryRepository(store, accounts))
	return fixture{service: svc, store: store, accounts: accounts, alice: alice.ID, bob: bob.ID}
}

func (f fixture) wallet(t *testing.T, accountID uuid.UUID, currency string) ledger.Wallet {
	t.Helper()
	w, err := f.store.Wallet(context.Background(), accountID, currency)
	if err != nil {
		t.Fatalf("failed to read wallet %s: %v", currency, err)
	}
	return w
}

func (f fixture) createOffer(t *testing.T, creator uuid.UUID) Offer {
	t.Helper()
	offer, err := f.service.Create(context.Background(), CreateInput{
		CreatorID:          creator,
		OfferingCurrency:   "USDT",
		OfferingAmount:     decimal.RequireFromString("1000"),
		RequestingCurrency: "BTC",
		RequestingAmount:   decimal.RequireFromString("0.02"),
	})
	if err != nil {
		t.Fatalf("failed to create offer: %v", err)
	}
	return offer
}

func TestCreateLocksOfferedFunds(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, f.alice)
	if offer.Status != StatusActive {
		t.Fatalf("offer status = %s, want active", offer.Status)
	}

	w := f.wallet(t, f.alice, "USDT")
	if !w.Balance.Equal(decimal.RequireFromString("9000")) {
		t.Fatalf("spendable = %s, want 9000", w.Balance)
	}
	if !w.LockedBalance.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("locked = %s, want 1000", w.LockedBalance)
	}
}

func TestCreateRejectsInsufficientFunds(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), CreateInput{
		CreatorID:          f.alice,
		OfferingCurrency:   "USDT",
		OfferingAmount:     decimal.RequireFromString("10001"),
		RequestingCurrency: "BTC",
		RequestingAmount:   decimal.RequireFromString("1"),
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w := f.wallet(t, f.alice, "USDT")
	if !w.Balance.Equal(decimal.RequireFromString("10000")) || !w.LockedBalance.IsZero() {
		t.Fatalf("failed create mutated wallet: balance=%s locked=%s", w.Balance, w.LockedBalance)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"same currency", CreateInput{CreatorID: f.alice, OfferingCurrency: "BTC", OfferingAmount: decimal.NewFromInt(1), RequestingCurrency: "btc", RequestingAmount: decimal.NewFromInt(1)}},
		{"missing currency", CreateInput{CreatorID: f.alice, OfferingCurrency: "", OfferingAmount: decimal.NewFromInt(1), RequestingCurrency: "BTC", RequestingAmount: decimal.NewFromInt(1)}},
		{"zero offering", CreateInput{CreatorID: f.alice, OfferingCurrency: "USDT", OfferingAmount: decimal.Zero, RequestingCurrency: "BTC", RequestingAmount: decimal.NewFromInt(1)}},
		{"negative requesting", CreateInput{CreatorID: f.alice, OfferingCurrency: "USDT", OfferingAmount: decimal.NewFromInt(1), RequestingCurrency: "BTC", RequestingAmount: decimal.NewFromInt(-1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.Create(context.Background(), tc.in); !errors.Is(err, ledger.ErrInvalidOperation) {
				t.Fatalf("expected ErrInvalidOperation, got %v", err)
			}
		})
	}
}

func TestAcceptSettlesBothSides(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.store, f.bob, "BTC", decimal.RequireFromString("0.05"))

	offer := f.createOffer(t, f.alice)
	settlement, err := f.service.Accept(context.Background(), offer.ID, f.bob)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if settlement.OfferID != offer.ID || settlement.AcceptorID != f.bob {
		t.Fatalf("settlement mismatched: %+v", settlement)
	}

	aliceUSDT := f.wallet(t, f.alice, "USDT")
	if !aliceUSDT.Balance.Equal(decimal.RequireFromString("9000")) {
		t.Fatalf("creator USDT = %s, want 9000", aliceUSDT.Balance)
	}
	if !aliceUSDT.LockedBalance.IsZero() {
		t.Fatalf("creator still has %s locked", aliceUSDT.LockedBalance)
	}
	if got := f.wallet(t, f.alice, "BTC").Balance; !got.Equal(decimal.RequireFromString("0.02")) {
		t.Fatalf("creator BTC = %s, want 0.02", got)
	}
	if got := f.wallet(t, f.bob, "USDT").Balance; !got.Equal(decimal.RequireFromString("11000")) {
		t.Fatalf("acceptor USDT = %s, want 11000", got)
	}
	if got := f.wallet(t, f.bob, "BTC").Balance; !got.Equal(decimal.RequireFromString("0.03")) {
		t.Fatalf("acceptor BTC = %s, want 0.03", got)
	}
}

func TestAcceptCompletedOfferFails(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.store, f.bob, "BTC", decimal.RequireFromString("1"))

	offer := f.createOffer(t, f.alice)
	if _, err := f.service.Accept(context.Background(), offer.ID, f.bob); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	_, err := f.service.Accept(context.Background(), offer.ID, f.bob)
	if !errors.Is(err, ledger.ErrOfferNotActive) {
		t.Fatalf("expected ErrOfferNotActive, got %v", err)
	}
}

func TestAcceptCancelledOfferFails(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.store, f.bob, "BTC", decimal.RequireFromString("1"))

	offer := f.createOffer(t, f.alice)
	if _, err := f.service.Cancel(context.Background(), offer.ID, f.alice); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err := f.service.Accept(context.Background(), offer.ID, f.bob)
	if !errors.Is(err, ledger.ErrOfferNotActive) {
		t.Fatalf("expected ErrOfferNotActive, got %v", err)
	}
	if got := f.wallet(t, f.bob, "BTC").Balance; !got.Equal(decimal.RequireFromString("1")) {
		t.Fatalf("failed accept mutated acceptor: %s", got)
	}
}

func TestAcceptOwnOfferFails(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, f.alice)
	_, err := f.service.Accept(context.Background(), offer.ID, f.alice)
	if !errors.Is(err, ledger.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}

	listings, err := f.service.ListActive(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("offer should still be active, got %d listings", len(listings))
	}
}

func TestAcceptWithoutFundsLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, f.alice) // bob has no BTC
	_, err := f.service.Accept(context.Background(), offer.ID, f.bob)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	aliceUSDT := f.wallet(t, f.alice, "USDT")
	if !aliceUSDT.LockedBalance.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("creator lock disturbed: %s", aliceUSDT.LockedBalance)
	}
	if got := f.wallet(t, f.bob, "USDT").Balance; !got.Equal(decimal.RequireFromString("10000")) {
		t.Fatalf("acceptor USDT mutated: %s", got)
	}

	stored, err := f.service.ListByCreator(context.Background(), f.alice)
	if err != nil {
		t.Fatalf("ListByCreator failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != StatusActive {
		t.Fatalf("offer should remain active after failed accept")
	}
}

func TestAcceptConservesEachCurrency(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.store, f.bob, "BTC", decimal.RequireFromString("0.5"))

	total := func(currency string) decimal.Decimal {
		wallets, err := f.store.AllWallets(context.Background())
		if err != nil {
			t.Fatalf("AllWallets failed: %v", err)
		}
		sum := decimal.Zero
		for _, w := range wallets {
			if w.Currency == currency {
				sum = sum.Add(w.Balance).Add(w.LockedBalance)
			}
		}
		return sum
	}

	usdtBefore, btcBefore := total("USDT"), total("BTC")

	offer := f.createOffer(t, f.alice)
	if _, err := f.service.Accept(context.Background(), offer.ID, f.bob); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if got := total("USDT"); !got.Equal(usdtBefore) {
		t.Fatalf("USDT supply changed: %s -> %s", usdtBefore, got)
	}
	if got := total("BTC"); !got.Equal(btcBefore) {
		t.Fatalf("BTC supply changed: %s -> %s", btcBefore, got)
	}
}

func TestConcurrentReadersNeverObservePartialSettlement(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.store, f.bob, "BTC", decimal.RequireFromString("1"))

	wantUSDT := decimal.RequireFromString("20000")
	wantBTC := decimal.RequireFromString("1")

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				wallets, err := f.store.AllWallets(context.Background())
				if err != nil {
					t.Errorf("AllWallets failed: %v", err)
					return
				}
				totals := map[string]decimal.Decimal{"USDT": decimal.Zero, "BTC": decimal.Zero}
				for _, w := range wallets {
					totals[w.Currency] = totals[w.Currency].Add(w.Balance).Add(w.LockedBalance)
				}
				if !totals["USDT"].Equal(wantUSDT) {
					t.Errorf("observed partial settlement: total USDT = %s, want %s", totals["USDT"], wantUSDT)
					return
				}
				if !totals["BTC"].Equal(wantBTC) {
					t.Errorf("observed partial settlement: total BTC = %s, want %s", totals["BTC"], wantBTC)
					return
				}
			}
		}()
	}

	for i := 0; i < 50 && !t.Failed(); i++ {
		offer, err := f.service.Create(context.Background(), CreateInput{
			CreatorID:          f.alice,
			OfferingCurrency:   "USDT",
			OfferingAmount:     decimal.RequireFromString("100"),
			RequestingCurrency: "BTC",
			RequestingAmount:   decimal.RequireFromString("0.001"),
		})
		if err != nil {
			t.Fatalf("create failed on iteration %d: %v", i, err)
		}
		if _, err := f.service.Accept(context.Background(), offer.ID, f.bob); err != nil {
			t.Fatalf("accept failed on iteration %d: %v", i, err)
		}
	}
	close(done)
	wg.Wait()
}

func TestCancelReturnsLockedFunds(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, f.alice)
	cancelled, err := f.service.Cancel(context.Background(), offer.ID, f.alice)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	w := f.wallet(t, f.alice, "USDT")
	if !w.Balance.Equal(decimal.RequireFromString("10000")) || !w.LockedBalance.IsZero() {
		t.Fatalf("cancel did not restore funds: balance=%s locked=%s", w.Balance, w.LockedBalance)
	}
}

func TestCancelByNonCreatorFails(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, f.alice)
	if _, err := f.service.Cancel(context.Background(), offer.ID, f.bob); !errors.Is(err, ledger.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestCancelCancelledOfferFails(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, f.alice)
	if _, err := f.service.Cancel(context.Background(), offer.ID, f.alice); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	if _, err := f.service.Cancel(context.Background(), offer.ID, f.alice); !errors.Is(err, ledger.ErrOfferNotActive) {
		t.Fatalf("expected ErrOfferNotActive, got %v", err)
	}
}

func TestListActiveExcludesCreator(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.store, f.bob, "ETH", decimal.RequireFromString("10"))

	f.createOffer(t, f.alice)
	_, err := f.service.Create(context.Background(), CreateInput{
		CreatorID:          f.bob,
		OfferingCurrency:   "ETH",
		OfferingAmount:     decimal.RequireFromString("2"),
		RequestingCurrency: "USDT",
		RequestingAmount:   decimal.RequireFromString("5000"),
	})
	if err != nil {
		t.Fatalf("failed to create bob's offer: %v", err)
	}

	all, err := f.service.ListActive(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d listings, want 2", len(all))
	}

	withoutAlice, err := f.service.ListActive(context.Background(), &f.alice)
	if err != nil {
		t.Fatalf("ListActive with exclusion failed: %v", err)
	}
	if len(withoutAlice) != 1 {
		t.Fatalf("got %d listings, want 1", len(withoutAlice))
	}
	if withoutAlice[0].CreatorID != f.bob || withoutAlice[0].CreatorName != "Bob" {
		t.Fatalf("unexpected listing: %+v", withoutAlice[0])
	}
}

func TestAcceptUnknownOffer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Accept(context.Background(), uuid.New(), f.bob)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
