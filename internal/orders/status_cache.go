package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// StatusCache keeps the latest status of an order for fast status reads.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusView, bool, error)
	Put(ctx context.Context, v StatusView) error
}

// RedisStatusCache stores StatusView as JSON under order_status:{id}.
type RedisStatusCache struct{ Redis *redis.Client }

func (c *RedisStatusCache) Get(ctx context.Context, orderID string) (StatusView, bool, error) {
	b, err := c.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return StatusView{}, false, nil
	}
	if err != nil {
		return StatusView{}, false, err
	}
	var v StatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return StatusView{}, false, err
	}
	return v, true, nil
}

func (c *RedisStatusCache) Put(ctx context.Context, v StatusView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, v.OrderID), b, redisx.TTLStatusCache).Err()
}
