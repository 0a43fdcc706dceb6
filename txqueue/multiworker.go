package txqueue

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

// MultipleWorkers creates n workers sharing one rate limiter.
// ProcessFunc must be thread safe.
func MultipleWorkers(processFunc ProcessFunc, n int, limit rate.Limit, burst int) []ProcessFunc {
	rateLimiter := rate.NewLimiter(limit, burst)

	process := make([]ProcessFunc, n)
	for i := 0; i < n; i++ {
		process[i] = func(ctx context.Context, hash common.Hash, targetBlock uint64) error {
			err := rateLimiter.Wait(ctx)
			if err != nil {
				return err
			}
			return processFunc(ctx, hash, targetBlock)
		}
	}
	return process
}
