package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// fakeFetcher resolves FetchBlock after a short, configurable delay, or
// with an error for blocks listed in failBlocks.
type fakeFetcher struct {
	mu         sync.Mutex
	delay      time.Duration
	failBlocks map[uint64]bool
	calls      []uint64
}

func newFakeFetcher(delay time.Duration, failBlocks ...uint64) *fakeFetcher {
	f := &fakeFetcher{delay: delay, failBlocks: make(map[uint64]bool)}
	for _, b := range failBlocks {
		f.failBlocks[b] = true
	}
	return f
}

func (f *fakeFetcher) FetchBlock(ctx context.Context, blockNumber uint64) (*domain.BlockTree, *domain.Metadata, error) {
	f.mu.Lock()
	f.calls = append(f.calls, blockNumber)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failBlocks[blockNumber] {
		return nil, nil, errors.New("trace fetch failed")
	}
	tree := domain.NewBlockTree(blockNumber)
	tree.Finalize()
	return tree, &domain.Metadata{BlockNum: blockNumber}, nil
}

func pollUntil(t *testing.T, c *StateCollector, want PollResult, timeout time.Duration) (PollResult, Tuple) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		res, tuple := c.PollNext()
		if res == want {
			return res, tuple
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for poll result %v, got %v", want, res)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStateCollector_EmitsInBlockOrder(t *testing.T) {
	fetcher := newFakeFetcher(0)
	c := NewStateCollector(fetcher, nil, 100, 103)

	var emitted []uint64
	for c.ShouldProcessNextBlock() {
		c.FetchStateFor(context.Background())
		_, tuple := pollUntil(t, c, PollReady, time.Second)
		emitted = append(emitted, tuple.BlockNumber)
	}

	assert.Equal(t, []uint64{100, 101, 102}, emitted)
}

func TestStateCollector_RespectsSingleInFlightSlot(t *testing.T) {
	fetcher := newFakeFetcher(20 * time.Millisecond)
	c := NewStateCollector(fetcher, nil, 100, 102)

	require.True(t, c.ShouldProcessNextBlock())
	c.FetchStateFor(context.Background())
	assert.False(t, c.ShouldProcessNextBlock(), "slot must not free up until the in-flight fetch resolves")
	assert.True(t, c.IsCollectingState())

	pollUntil(t, c, PollReady, time.Second)
	assert.True(t, c.ShouldProcessNextBlock())
}

func TestStateCollector_FetchErrorSkipsBlockWithoutEmitting(t *testing.T) {
	fetcher := newFakeFetcher(0, 101)
	c := NewStateCollector(fetcher, nil, 100, 102)

	var emitted []uint64
	for c.ShouldProcessNextBlock() {
		c.FetchStateFor(context.Background())
		deadline := time.Now().Add(time.Second)
		for {
			res, tuple := c.PollNext()
			if res == PollReady {
				emitted = append(emitted, tuple.BlockNumber)
				break
			}
			if !c.IsCollectingState() {
				break // resolved, but as a skipped (errored) block
			}
			if time.Now().After(deadline) {
				t.Fatal("timed out")
			}
			time.Sleep(time.Millisecond)
		}
	}

	assert.Equal(t, []uint64{100}, emitted, "block 101 errored and must not be emitted")
}

func TestStateCollector_FinishedAfterRangeFinished(t *testing.T) {
	fetcher := newFakeFetcher(0)
	c := NewStateCollector(fetcher, nil, 100, 101)

	c.FetchStateFor(context.Background())
	pollUntil(t, c, PollReady, time.Second)

	assert.False(t, c.ShouldProcessNextBlock())
	c.RangeFinished()

	res, _ := c.PollNext()
	assert.Equal(t, PollFinished, res)
}
