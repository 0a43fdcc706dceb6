// Package redis provides an adapter to redis client
package redis

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// SeenTxCache remembers transaction hashes across searcher instances that share one mempool feed
type SeenTxCache struct {
	client         *redis.Client
	expireDuration time.Duration
	keyPrefix      string
}

func NewSeenTxCache(client *redis.Client, expireDuration time.Duration, keyPrefix string) *SeenTxCache {
	return &SeenTxCache{
		client:         client,
		expireDuration: expireDuration,
		keyPrefix:      keyPrefix,
	}
}

// MarkSeen returns true if this is the first time the hash is marked within the expiry window
func (c *SeenTxCache) MarkSeen(ctx context.Context, hash common.Hash) (bool, error) {
	return c.client.SetNX(ctx, c.keyPrefix+hash.Hex(), 1, c.expireDuration).Result()
}

func (c *SeenTxCache) IsSeen(ctx context.Context, hash common.Hash) (bool, error) {
	n, err := c.client.Exists(ctx, c.keyPrefix+hash.Hex()).Result()
	return n > 0, err
}
