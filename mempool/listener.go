// Package mempool forwards pending transaction hashes from a node subscription into the searcher queue.
package mempool

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/flashbots/univ2-sandwich/metrics"
	"go.uber.org/zap"
)

const (
	pendingBufferSize = 1024
	localCacheSize    = 65536
)

var ErrSubscriptionClosed = errors.New("pending transaction subscription closed")

type PendingSource interface {
	SubscribePending(ctx context.Context, ch chan<- common.Hash) (ethereum.Subscription, error)
}

// GethSource subscribes to newPendingTransactions over a websocket or ipc connection
type GethSource struct {
	client *gethclient.Client
}

func NewGethSource(client *gethclient.Client) *GethSource {
	return &GethSource{client: client}
}

func (s *GethSource) SubscribePending(ctx context.Context, ch chan<- common.Hash) (ethereum.Subscription, error) {
	sub, err := s.client.SubscribePendingTransactions(ctx, ch)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

type Scheduler interface {
	Schedule(ctx context.Context, hash common.Hash) error
}

type SeenCache interface {
	MarkSeen(ctx context.Context, hash common.Hash) (bool, error)
}

type Listener struct {
	log       *zap.Logger
	source    PendingSource
	scheduler Scheduler
	seen      SeenCache
	local     *lru.Cache[common.Hash, struct{}]
	back      *backoff.ExponentialBackOff
}

// NewListener creates a listener, seen may be nil when a single searcher instance consumes the feed
func NewListener(log *zap.Logger, source PendingSource, scheduler Scheduler, seen SeenCache) *Listener {
	back := backoff.NewExponentialBackOff()
	back.MaxInterval = 10 * time.Second
	back.MaxElapsedTime = 0

	return &Listener{
		log:       log.Named("mempool"),
		source:    source,
		scheduler: scheduler,
		seen:      seen,
		local:     lru.NewCache[common.Hash, struct{}](localCacheSize),
		back:      back,
	}
}

// Run keeps a subscription open until ctx is cancelled, resubscribing with backoff when it drops
func (l *Listener) Run(ctx context.Context) error {
	err := backoff.RetryNotify(func() error {
		return l.listen(ctx)
	}, backoff.WithContext(l.back, ctx), func(err error, next time.Duration) {
		l.log.Warn("Pending transaction subscription failed, resubscribing", zap.Error(err), zap.Duration("in", next))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (l *Listener) listen(ctx context.Context) error {
	hashes := make(chan common.Hash, pendingBufferSize)
	sub, err := l.source.SubscribePending(ctx, hashes)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	l.back.Reset()
	l.log.Info("Subscribed to pending transactions")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return ErrSubscriptionClosed
			}
			return err
		case hash := <-hashes:
			l.handle(ctx, hash)
		}
	}
}

func (l *Listener) handle(ctx context.Context, hash common.Hash) {
	metrics.IncTxsObserved()
	if l.local.Contains(hash) {
		return
	}
	l.local.Add(hash, struct{}{})

	if l.seen != nil {
		first, err := l.seen.MarkSeen(ctx, hash)
		if err != nil {
			l.log.Warn("Failed to check seen transactions", zap.Error(err))
		} else if !first {
			return
		}
	}

	err := l.scheduler.Schedule(ctx, hash)
	if err != nil {
		l.log.Debug("Failed to schedule transaction", zap.String("tx", hash.Hex()), zap.Error(err))
	}
}
