package mempool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSub struct {
	err  chan error
	once sync.Once
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() { close(s.err) })
}

func (s *fakeSub) Err() <-chan error {
	return s.err
}

type fakeSource struct {
	mu         sync.Mutex
	subs       []*fakeSub
	feeds      []chan<- common.Hash
	subscribed chan struct{}
}

func (s *fakeSource) SubscribePending(ctx context.Context, ch chan<- common.Hash) (ethereum.Subscription, error) {
	sub := &fakeSub{err: make(chan error, 1)}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.feeds = append(s.feeds, ch)
	s.mu.Unlock()
	s.subscribed <- struct{}{}
	return sub, nil
}

func (s *fakeSource) last() (*fakeSub, chan<- common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[len(s.subs)-1], s.feeds[len(s.feeds)-1]
}

type scheduled chan common.Hash

func (s scheduled) Schedule(ctx context.Context, hash common.Hash) error {
	s <- hash
	return nil
}

// seenElsewhere pretends another instance already picked up some hashes
type seenElsewhere map[common.Hash]bool

func (s seenElsewhere) MarkSeen(ctx context.Context, hash common.Hash) (bool, error) {
	return !s[hash], nil
}

func TestListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h1 := common.HexToHash("0x01")
	h2 := common.HexToHash("0x02")
	h3 := common.HexToHash("0x03")
	h4 := common.HexToHash("0x04")

	source := &fakeSource{subscribed: make(chan struct{}, 1)}
	out := make(scheduled, 10)
	l := NewListener(zap.NewNop(), source, out, seenElsewhere{h2: true})
	l.back.InitialInterval = 10 * time.Millisecond

	done := make(chan error)
	go func() {
		done <- l.Run(ctx)
	}()

	next := func() common.Hash {
		select {
		case hash := <-out:
			return hash
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
		return common.Hash{}
	}
	waitSubscribed := func() {
		select {
		case <-source.subscribed:
		case <-time.After(2 * time.Second):
			t.Fatal("not subscribed")
		}
	}

	waitSubscribed()
	sub, feed := source.last()
	feed <- h1
	feed <- h1
	feed <- h2
	feed <- h3
	require.Equal(t, h1, next())
	require.Equal(t, h3, next())

	// dropped subscription is replaced
	sub.err <- errors.New("websocket closed")
	waitSubscribed()
	_, feed = source.last()
	feed <- h1
	feed <- h4
	require.Equal(t, h4, next())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
	require.Empty(t, out)
}
