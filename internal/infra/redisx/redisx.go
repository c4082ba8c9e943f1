package redisx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cafesync/internal/domain/order"

	"github.com/redis/go-redis/v9"
)

const (
	// Cache of the latest order status: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"
)

var TTLStatusCache = 5 * time.Minute

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// StatusCache keeps the latest known status per order so dashboard widgets
// can answer without a DB round-trip. Best effort: a write failure is logged
// and otherwise ignored, the database stays the source of truth.
type StatusCache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewStatusCache(rdb *redis.Client, logger *slog.Logger) *StatusCache {
	return &StatusCache{rdb: rdb, logger: logger}
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID string, st order.Status) {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	if err := c.rdb.Set(ctx, key, st.String(), TTLStatusCache).Err(); err != nil {
		c.logger.Warn("status cache write failed", "order_id", orderID, "error", err)
	}
}
