package pricer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultRedisKey hash holding product_id -> unit price.
const DefaultRedisKey = "orderband:catalog"

// RedisCatalog reads prices from a Redis hash with a single HMGET.
type RedisCatalog struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisCatalog connects to Redis and checks the connection.
func NewRedisCatalog(ctx context.Context, addr, password string, db int, key string, logger *zap.Logger) (*RedisCatalog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", addr)
	}

	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisCatalog{client: client, key: key, logger: logger}, nil
}

// Prices returns the catalog prices for productIDs.
func (c *RedisCatalog) Prices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	if len(productIDs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	vals, err := c.client.HMGet(ctx, c.key, productIDs...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "hmget %s", c.key)
	}

	prices, bad := parseHashPrices(productIDs, vals)
	for _, id := range bad {
		c.logger.Warn("unparsable catalog price ignored", zap.String("product", id), zap.String("key", c.key))
	}
	return prices, nil
}

// Close closes the Redis client.
func (c *RedisCatalog) Close() error {
	return c.client.Close()
}

// parseHashPrices maps HMGET replies back to product ids. Missing fields come back as nil;
// values that do not parse as decimals are reported in bad.
func parseHashPrices(productIDs []string, vals []interface{}) (map[string]decimal.Decimal, []string) {
	prices := make(map[string]decimal.Decimal, len(productIDs))
	var bad []string
	for i, id := range productIDs {
		if i >= len(vals) || vals[i] == nil {
			continue
		}
		price, err := decimal.NewFromString(fmt.Sprint(vals[i]))
		if err != nil {
			bad = append(bad, id)
			continue
		}
		prices[id] = price
	}
	return prices, bad
}
