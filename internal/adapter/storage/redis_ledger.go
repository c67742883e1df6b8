package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/storefront/order-core/internal/core/domain"
)

const (
	stockKeyPrefix   = "stock:"
	priceKeyPrefix   = "price:"
	requestKeyPrefix = "request:"
	requestKeyTTL    = 24 * time.Hour
)

// reserveScript checks stock, decrements, and reads the unit price in one
// atomic step. Returns {1, remaining, price} on success, {0, available, ''}
// on refusal. A missing stock key is treated as zero available.
var reserveScript = redis.NewScript(`
local stockKey = KEYS[1]
local priceKey = KEYS[2]
local quantity = tonumber(ARGV[1])

if quantity <= 0 then
	return redis.error_reply('quantity must be positive')
end

local stock = redis.call('GET', stockKey)
if not stock then
	return {0, 0, ''}
end

stock = tonumber(stock)
if stock < quantity then
	return {0, stock, ''}
end

redis.call('DECRBY', stockKey, quantity)
local price = redis.call('GET', priceKey) or '0'
return {1, stock - quantity, price}
`)

type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (r *RedisLedger) Reserve(ctx context.Context, productID int64, quantity int) (domain.Reservation, error) {
	// A non-positive DECRBY would mint stock; refuse before touching Redis.
	if quantity <= 0 {
		return domain.Reservation{}, fmt.Errorf("reserve stock: quantity must be positive, got %d", quantity)
	}

	keys := []string{stockKey(productID), priceKey(productID)}

	reply, err := reserveScript.Run(ctx, r.client, keys, quantity).Slice()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("reserve stock: %w", err)
	}
	if len(reply) != 3 {
		return domain.Reservation{}, fmt.Errorf("reserve stock: unexpected reply %v", reply)
	}

	ok, _ := reply[0].(int64)
	available, _ := reply[1].(int64)
	if ok != 1 {
		return domain.Reservation{}, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: int(available),
		}
	}

	rawPrice, _ := reply[2].(string)
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		// Stock is already held; undo before reporting the bad price.
		if relErr := r.client.IncrBy(ctx, stockKey(productID), int64(quantity)).Err(); relErr != nil {
			return domain.Reservation{}, fmt.Errorf("parse price %q (release also failed: %v): %w", rawPrice, relErr, err)
		}
		return domain.Reservation{}, fmt.Errorf("parse price %q: %w", rawPrice, err)
	}

	return domain.Reservation{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: price,
	}, nil
}

func (r *RedisLedger) Release(ctx context.Context, res domain.Reservation) error {
	return r.client.IncrBy(ctx, stockKey(res.ProductID), int64(res.Quantity)).Err()
}

// Commit is a marker: the decrement happened at Reserve time and Release is
// the only compensating action, so there is nothing left to apply.
func (r *RedisLedger) Commit(ctx context.Context, res domain.Reservation) error {
	return nil
}

func (r *RedisLedger) SeedStock(ctx context.Context, productID int64, stock int, price decimal.Decimal) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, stockKey(productID), stock, 0)
		pipe.Set(ctx, priceKey(productID), price.String(), 0)
		return nil
	})
	return err
}

func (r *RedisLedger) ClaimRequest(ctx context.Context, requestID string) (bool, error) {
	return r.client.SetNX(ctx, requestKeyPrefix+requestID, 1, requestKeyTTL).Result()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("%s%d", stockKeyPrefix, productID)
}

func priceKey(productID int64) string {
	return fmt.Sprintf("%s%d", priceKeyPrefix, productID)
}
