package pricing

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func newTestOracle(t *testing.T) (*RedisOracle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisOracle(client), mr
}

func TestRedisOraclePrice(t *testing.T) {
	oracle, mr := newTestOracle(t)
	mr.HSet(priceHashKey, "BTC/USDT", "50000.5")

	price, ok, err := oracle.Price(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a quote")
	}
	if !price.Equal(decimal.RequireFromString("50000.5")) {
		t.Fatalf("price = %s, want 50000.5", price)
	}
}

func TestRedisOracleMissingPair(t *testing.T) {
	oracle, _ := newTestOracle(t)

	_, ok, err := oracle.Price(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if ok {
		t.Fatal("expected no quote for an empty feed")
	}
}

func TestRedisOracleMalformedPrice(t *testing.T) {
	oracle, mr := newTestOracle(t)
	mr.HSet(priceHashKey, "BTC/USDT", "not-a-number")

	if _, _, err := oracle.Price(context.Background(), "BTC/USDT"); err == nil {
		t.Fatal("expected an error for a malformed quote")
	}
}

func TestRedisOraclePrices(t *testing.T) {
	oracle, mr := newTestOracle(t)
	mr.HSet(priceHashKey, "BTC/USDT", "50000")
	mr.HSet(priceHashKey, "ETH/USDT", "3000")

	quotes, err := oracle.Prices(context.Background(), []string{"BTC/USDT", "ETH/USDT", "DOGE/USDT"})
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	if !quotes["BTC/USDT"].Equal(decimal.RequireFromString("50000")) {
		t.Fatalf("BTC quote = %s", quotes["BTC/USDT"])
	}
	if _, ok := quotes["DOGE/USDT"]; ok {
		t.Fatal("unpriced pair should be absent")
	}
}

func TestRedisOraclePricesEmptyRequest(t *testing.T) {
	oracle, _ := newTestOracle(t)

	quotes, err := oracle.Prices(context.Background(), nil)
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	if len(quotes) != 0 {
		t.Fatalf("got %d quotes, want 0", len(quotes))
	}
}
