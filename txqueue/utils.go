package txqueue

import (
	"encoding/binary"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var errInvalidPackedData = errors.New("invalid packed data")

const packedItemLen = 8 + common.HashLength

type item struct {
	hash        common.Hash
	targetBlock uint64
	timestamp   time.Time
}

// packItem returns the score and the member stored in redis. The score is the target block.
// The member is timestamp(8 bytes):hash(32 bytes) so that items for the same block pop in arrival order.
func packItem(it item) (float64, []byte) {
	value := make([]byte, packedItemLen)
	binary.BigEndian.PutUint64(value[0:8], uint64(it.timestamp.UnixNano()))
	copy(value[8:], it.hash.Bytes())
	return float64(it.targetBlock), value
}

func unpackItem(score float64, packed []byte) (item, error) {
	if len(packed) != packedItemLen {
		return item{}, errInvalidPackedData
	}
	return item{
		hash:        common.BytesToHash(packed[8:]),
		targetBlock: uint64(score),
		timestamp:   time.Unix(0, int64(binary.BigEndian.Uint64(packed[0:8]))),
	}, nil
}

type Config struct {
	MaxQueuedItems uint64
	WorkerTimeout  time.Duration
}

var DefaultConfig = Config{
	MaxQueuedItems: 4096,
	WorkerTimeout:  6 * time.Second,
}

// ConfigFromEnv loads `txqueue` config from environment.
// - `TXQUEUE_MAX_QUEUED_ITEMS`
// - `TXQUEUE_WORKER_TIMEOUT_MS`
func ConfigFromEnv() (Config, error) {
	config := DefaultConfig

	if val := os.Getenv("TXQUEUE_MAX_QUEUED_ITEMS"); val != "" {
		maxQueuedItems, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return config, err
		}
		config.MaxQueuedItems = maxQueuedItems
	}
	if val := os.Getenv("TXQUEUE_WORKER_TIMEOUT_MS"); val != "" {
		workerTimeoutMs, err := strconv.Atoi(val)
		if err != nil {
			return config, err
		}
		config.WorkerTimeout = time.Duration(workerTimeoutMs) * time.Millisecond
	}

	return config, nil
}
