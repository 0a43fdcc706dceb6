// Package txqueue is a redis backed queue of pending transaction hashes waiting to be sandwiched.
//
// Items live in one sorted set scored by the block they target. A sandwich is only valid for the block right after
// the head it was observed at, so the queue never retries: an item whose target block has passed is dropped, and an
// item that failed processing is dropped as well.
//
// Usage:
//  1. Create a queue with `NewRedisQueue`.
//  2. Start processing with `StartProcessLoop`, one goroutine per `ProcessFunc`.
//  3. Keep the queue informed about the chain head with `UpdateBlock`, the queue does not track it by itself.
//  4. Push hashes with `Push`.
//
// Items that were popped by a worker that crashed are lost, which is fine as they would be stale by the time
// another worker picks them up. Cancelling the context passed to `StartProcessLoop` stops the workers, the returned
// WaitGroup can be used to wait for in-flight items.
package txqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/univ2-sandwich/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrBlockNumberIncorrect = errors.New("block number is invalid")
	ErrStaleItem            = errors.New("item is stale")
	ErrQueueFull            = errors.New("queue is full")
)

type ProcessFunc func(ctx context.Context, hash common.Hash, targetBlock uint64) error

type Queue interface {
	UpdateBlock(block uint64) error
	CurrentBlock() uint64
	Push(ctx context.Context, hash common.Hash, targetBlock uint64) error
	StartProcessLoop(ctx context.Context, workers []ProcessFunc) *sync.WaitGroup
}

type RedisQueue struct {
	log          *zap.Logger
	red          *redis.Client
	currentBlock *uint64
	queueName    string

	MaxQueuedItems uint64
	WorkerTimeout  time.Duration
}

func NewRedisQueue(log *zap.Logger, red *redis.Client, queueName string, config Config) *RedisQueue {
	currentBlock := uint64(0)
	return &RedisQueue{
		log:            log.Named("txqueue").With(zap.String("queue", queueName)),
		red:            red,
		currentBlock:   &currentBlock,
		queueName:      queueName,
		MaxQueuedItems: config.MaxQueuedItems,
		WorkerTimeout:  config.WorkerTimeout,
	}
}

func (s *RedisQueue) UpdateBlock(block uint64) error {
	current := atomic.LoadUint64(s.currentBlock)
	if current == block {
		return nil
	}
	if current > block {
		return ErrBlockNumberIncorrect
	}
	atomic.StoreUint64(s.currentBlock, block)
	return nil
}

// CurrentBlock is the last head the queue was told about
func (s *RedisQueue) CurrentBlock() uint64 {
	return atomic.LoadUint64(s.currentBlock)
}

// Push schedules hash for processing while targetBlock is the next block
func (s *RedisQueue) Push(ctx context.Context, hash common.Hash, targetBlock uint64) error {
	currentBlock := atomic.LoadUint64(s.currentBlock)
	if targetBlock <= currentBlock {
		s.log.Debug("target block is already mined, skipping", zap.Uint64("target_block", targetBlock), zap.Uint64("current_block", currentBlock))
		return ErrStaleItem
	}

	err := s.pushToQueue(ctx, item{hash: hash, targetBlock: targetBlock, timestamp: time.Now()})
	if err != nil {
		return err
	}
	metrics.IncTxsQueued()
	s.log.Debug("pushed to queue", zap.String("tx", hash.Hex()), zap.Uint64("target_block", targetBlock))
	return nil
}

// returns number of items waiting in the queue
func (s *RedisQueue) queuedItems(ctx context.Context) (uint64, error) {
	return s.red.ZCard(ctx, s.queueName).Uint64()
}

func (s *RedisQueue) pushToQueue(ctx context.Context, it item) error {
	queued, err := s.queuedItems(ctx)
	if err != nil {
		s.log.Warn("failed to get queued items", zap.Error(err))
		return err
	}
	if queued >= s.MaxQueuedItems {
		s.log.Error("too many unprocessed items in the queue", zap.Uint64("queued", queued), zap.Uint64("max_queued_items", s.MaxQueuedItems))
		metrics.IncQueueFull()
		return ErrQueueFull
	}

	score, redisData := packItem(it)
	err = s.red.ZAdd(ctx, s.queueName, redis.Z{Score: score, Member: redisData}).Err()
	if err != nil {
		s.log.Debug("failed to push to queue", zap.Error(err))
	}
	return err
}

// popFromQueue blocks for up to 1 second waiting for an item if the queue is empty
func (s *RedisQueue) popFromQueue(ctx context.Context) (item, error) {
	value, err := s.red.BZPopMin(ctx, time.Second, s.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return item{}, err
		}
		s.log.Error("failed to pop from queue", zap.Error(err))
		return item{}, err
	}

	redisData, ok := value.Member.(string)
	if !ok {
		s.log.Error("failed to pop from queue, invalid data type")
		return item{}, errInvalidPackedData
	}

	it, err := unpackItem(value.Score, []byte(redisData))
	if err != nil {
		s.log.Error("failed to unpack data", zap.Error(err))
		return item{}, err
	}
	return it, nil
}

func (s *RedisQueue) processNextItem(ctx context.Context, process ProcessFunc) error {
	it, err := s.popFromQueue(ctx)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	nextBlock := atomic.LoadUint64(s.currentBlock) + 1

	// pushed ahead of our view of the head, wait for it to catch up
	if nextBlock < it.targetBlock {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = 4 * time.Second
		return backoff.Retry(func() error {
			return s.pushToQueue(ctx, it)
		}, backoff.WithContext(exp, ctx))
	}

	if nextBlock > it.targetBlock {
		s.log.Debug("skipping stale item",
			zap.String("tx", it.hash.Hex()),
			zap.Uint64("next_block", nextBlock),
			zap.Uint64("target_block", it.targetBlock))
		metrics.IncQueuePopStaleItem()
		return nil
	}

	workerCtx, workerCancel := context.WithTimeout(ctx, s.WorkerTimeout)
	defer workerCancel()
	err = process(workerCtx, it.hash, it.targetBlock)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("worker failed to process item, dropping", zap.Error(err), zap.String("tx", it.hash.Hex()))
	}
	s.log.Debug("processed queue item", zap.String("tx", it.hash.Hex()), zap.Duration("time_in_queue", time.Since(it.timestamp)))
	return nil
}

// StartProcessLoop starts a goroutine per worker that processes items until ctx is cancelled.
// The returned WaitGroup allows for graceful shutdown.
func (s *RedisQueue) StartProcessLoop(ctx context.Context, workers []ProcessFunc) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, process := range workers {
		wg.Add(1)
		go func(process ProcessFunc) {
			defer wg.Done()

			exp := backoff.NewExponentialBackOff()
			exp.MaxInterval = 30 * time.Second
			exp.MaxElapsedTime = 2 * time.Minute
			back := backoff.WithContext(exp, ctx)
			for {
				select {
				case <-ctx.Done():
					return
				default:
					err := backoff.Retry(func() error {
						return s.processNextItem(ctx, process)
					}, back)
					if err != nil && !errors.Is(err, context.Canceled) {
						s.log.Error("Processing next element failed", zap.Error(err))
					}
				}
			}
		}(process)
	}
	return &wg
}

// CleanQueues removes all data in redis associated with the queue
// NOTE: should only be used for testing
func (s *RedisQueue) CleanQueues(ctx context.Context) error {
	return s.red.Del(ctx, s.queueName).Err()
}
