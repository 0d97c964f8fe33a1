package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type setNXClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisSettlementGuard claims auctions for settlement with SETNX so that a
// re-armed or duplicated timer settles an auction at most once per TTL.
type RedisSettlementGuard struct {
	client     setNXClient
	instanceID string
	ttl        time.Duration
}

func NewRedisSettlementGuard(client setNXClient, instanceID string, ttl time.Duration) *RedisSettlementGuard {
	return &RedisSettlementGuard{
		client:     client,
		instanceID: instanceID,
		ttl:        ttl,
	}
}

func (g *RedisSettlementGuard) Claim(ctx context.Context, auctionID string) (bool, error) {
	claimed, err := g.client.SetNX(ctx, settlementKey(auctionID), g.instanceID, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim settlement %s: %w", auctionID, err)
	}
	return claimed, nil
}

func settlementKey(auctionID string) string {
	return fmt.Sprintf("settlement:%s", auctionID)
}
