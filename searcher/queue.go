package searcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/univ2-sandwich/txqueue"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrHeadUnknown = errors.New("chain head is not known yet")

type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type Handler interface {
	Handle(ctx context.Context, hash common.Hash)
}

// Queue feeds pending transactions through the redis queue into the searcher workers
type Queue struct {
	log     *zap.Logger
	queue   txqueue.Queue
	eth     BlockNumberReader
	handler Handler
	workers int
	limit   rate.Limit
}

func NewQueue(log *zap.Logger, queue txqueue.Queue, eth BlockNumberReader, handler Handler, workers int, limit rate.Limit) *Queue {
	return &Queue{
		log:     log.Named("queue"),
		queue:   queue,
		eth:     eth,
		handler: handler,
		workers: workers,
		limit:   limit,
	}
}

// Start launches the workers and a goroutine that keeps the queue up to date with the chain head
func (q *Queue) Start(ctx context.Context) *sync.WaitGroup {
	process := func(ctx context.Context, hash common.Hash, targetBlock uint64) error {
		q.handler.Handle(ctx, hash)
		return nil
	}
	workers := txqueue.MultipleWorkers(process, q.workers, q.limit, q.workers)

	blockNumber, err := q.eth.BlockNumber(ctx)
	if err != nil {
		q.log.Warn("Failed to get block number", zap.Error(err))
	} else {
		_ = q.queue.UpdateBlock(blockNumber)
	}

	wg := q.queue.StartProcessLoop(ctx, workers)

	wg.Add(1)
	go func() {
		defer wg.Done()

		back := backoff.NewExponentialBackOff()
		back.MaxInterval = 3 * time.Second
		back.MaxElapsedTime = 12 * time.Second

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := backoff.Retry(func() error {
					blockNumber, err := q.eth.BlockNumber(ctx)
					if err != nil {
						return err
					}
					return q.queue.UpdateBlock(blockNumber)
				}, backoff.WithContext(back, ctx))
				if err != nil && !errors.Is(err, context.Canceled) {
					q.log.Error("Failed to update block number", zap.Error(err))
				}
			}
		}
	}()
	return wg
}

// Schedule queues hash for the block after the current head
func (q *Queue) Schedule(ctx context.Context, hash common.Hash) error {
	head := q.queue.CurrentBlock()
	if head == 0 {
		return ErrHeadUnknown
	}
	return q.queue.Push(ctx, hash, head+1)
}
