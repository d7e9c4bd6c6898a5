package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// priceHashKey is the Redis hash maintained by the external price feeder,
// mapping pair (e.g. "BTC/USDT") to its current unit price.
const priceHashKey = "prices:usdt"

// RedisOracle reads quotes from the Redis hash written by the external price
// feed. A missing field means the pair is currently unpriced.
type RedisOracle struct {
	client *redis.Client
}

// NewRedisOracle builds a Redis-backed price oracle.
func NewRedisOracle(client *redis.Client) *RedisOracle {
	return &RedisOracle{client: client}
}

// Price implements Oracle.
func (o *RedisOracle) Price(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	raw, err := o.client.HGet(ctx, priceHashKey, pair).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("price lookup: %w", err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("malformed price for %s: %w", pair, err)
	}
	return price, true, nil
}

// Prices implements Oracle.
func (o *RedisOracle) Prices(ctx context.Context, pairs []string) (map[string]decimal.Decimal, error) {
	if len(pairs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	values, err := o.client.HMGet(ctx, priceHashKey, pairs...).Result()
	if err != nil {
		return nil, fmt.Errorf("price lookup: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(pairs))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // unpriced pair
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed price for %s: %w", pairs[i], err)
		}
		out[pairs[i]] = price
	}
	return out, nil
}
