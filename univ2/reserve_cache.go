package univ2

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultCleanupInterval = 5 * time.Second
	fetchTimeout           = 5 * time.Second
)

type reserves struct {
	reserve0, reserve1 *big.Int
}

type inflight struct {
	done chan struct{}
	res  reserves
	err  error
}

// ReserveCache wraps a ReserveFetcher so that reserves of one pair are fetched at most once per ttl.
// Concurrent requests for the same pair share a single call to the underlying fetcher. Errors are never cached.
// Returned values are shared between callers and must not be mutated.
type ReserveCache struct {
	fetcher ReserveFetcher
	ttl     time.Duration
	cache   *gocache.Cache

	mu       sync.Mutex
	inflight map[common.Address]*inflight
}

func NewReserveCache(fetcher ReserveFetcher, ttl time.Duration) *ReserveCache {
	return &ReserveCache{
		fetcher:  fetcher,
		ttl:      ttl,
		cache:    gocache.New(ttl, defaultCleanupInterval),
		inflight: make(map[common.Address]*inflight),
	}
}

func (c *ReserveCache) GetReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	key := pair.Hex()

	c.mu.Lock()
	if v, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		//nolint:forcetypeassert
		r := v.(reserves)
		return r.reserve0, r.reserve1, nil
	}
	call, ok := c.inflight[pair]
	if !ok {
		call = &inflight{done: make(chan struct{})}
		c.inflight[pair] = call
		go c.fetch(pair, call)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-call.done:
		return call.res.reserve0, call.res.reserve1, call.err
	}
}

// fetch is detached from the caller's context, a cancelled caller must not fail the others waiting on the same pair
func (c *ReserveCache) fetch(pair common.Address, call *inflight) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	reserve0, reserve1, err := c.fetcher.GetReserves(ctx, pair)

	c.mu.Lock()
	call.res = reserves{reserve0: reserve0, reserve1: reserve1}
	call.err = err
	if err == nil {
		c.cache.Set(pair.Hex(), call.res, c.ttl)
	}
	delete(c.inflight, pair)
	c.mu.Unlock()

	close(call.done)
}

