package app

import (
	"context"
	"sync"

	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// CollectorState is a block slot's position in the §4.3 state machine:
// Idle -> CollectingTraces -> BuildingTree -> FetchingDexPrices -> Ready -> Emitted.
type CollectorState int

const (
	StateIdle CollectorState = iota
	StateCollectingTraces
	StateBuildingTree
	StateFetchingDexPrices
	StateReady
	StateEmitted
)

func (s CollectorState) String() string {
	switch s {
	case StateCollectingTraces:
		return "collecting_traces"
	case StateBuildingTree:
		return "building_tree"
	case StateFetchingDexPrices:
		return "fetching_dex_prices"
	case StateReady:
		return "ready"
	case StateEmitted:
		return "emitted"
	default:
		return "idle"
	}
}

// PollResult is the outcome of one PollNext call.
type PollResult int

const (
	// PollNotReady: the current slot hasn't resolved yet; try again later.
	PollNotReady PollResult = iota
	// PollReady: a (tree, metadata) tuple is available via Tuple().
	PollReady
	// PollFinished: RangeFinished was called and the slot has drained.
	PollFinished
)

// Tuple is one block's collected output.
type Tuple struct {
	BlockNumber uint64
	Tree        *domain.BlockTree
	Metadata    *domain.Metadata
}

type fetchResult struct {
	block    uint64
	tree     *domain.BlockTree
	metadata *domain.Metadata
	err      error
}

// StateCollector produces (tree, metadata) tuples for a half-open block
// range, one slot at a time, in strictly increasing block order (§4.3). It
// holds exactly one in-flight fetch: fetch_state_for may not be called
// again until the slot is Idle or Emitted.
type StateCollector struct {
	fetcher TraceFetcher
	logger  logger.LoggerInterface

	mu       sync.Mutex
	state    CollectorState
	current  uint64 // next block to fetch
	endBlock uint64
	ready    *Tuple
	results  chan fetchResult
	finished bool
}

// NewStateCollector builds a collector over the half-open range
// [startBlock, endBlock).
func NewStateCollector(fetcher TraceFetcher, log logger.LoggerInterface, startBlock, endBlock uint64) *StateCollector {
	return &StateCollector{
		fetcher:  fetcher,
		logger:   log,
		state:    StateIdle,
		current:  startBlock,
		endBlock: endBlock,
		results:  make(chan fetchResult, 1),
	}
}

// ShouldProcessNextBlock reports whether the slot is free to start a new
// fetch and blocks remain in range.
func (c *StateCollector) ShouldProcessNextBlock() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotFreeLocked() && c.current < c.endBlock
}

func (c *StateCollector) slotFreeLocked() bool {
	return c.state == StateIdle || c.state == StateEmitted
}

// IsCollectingState reports whether the slot is in any non-terminal
// intermediate state (i.e. a fetch is in flight).
func (c *StateCollector) IsCollectingState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateCollectingTraces, StateBuildingTree, StateFetchingDexPrices, StateReady:
		return true
	default:
		return false
	}
}

// FetchStateFor transitions the slot to CollectingTraces and launches the
// fetch for the next block in range. Must not be called unless
// ShouldProcessNextBlock() is true.
func (c *StateCollector) FetchStateFor(ctx context.Context) {
	c.mu.Lock()
	if !c.slotFreeLocked() || c.current >= c.endBlock {
		c.mu.Unlock()
		return
	}
	block := c.current
	c.current++
	c.state = StateCollectingTraces
	c.mu.Unlock()

	go func() {
		tree, metadata, err := c.fetcher.FetchBlock(ctx, block)
		c.results <- fetchResult{block: block, tree: tree, metadata: metadata, err: err}
	}()
}

// PollNext drains the in-flight fetch, if resolved, and reports the slot's
// status. A Tracing/IO error (§4.8) is logged and treated as an empty
// emission for that block — the slot still frees up so the executor moves
// on to the next one.
func (c *StateCollector) PollNext() (PollResult, Tuple) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCollectingTraces, StateBuildingTree, StateFetchingDexPrices:
		select {
		case res := <-c.results:
			if res.err != nil {
				if c.logger != nil {
					c.logger.Error(context.Background(), "collector: block fetch failed",
						"block", res.block, "error", res.err)
				}
				c.state = StateEmitted
				return PollNotReady, Tuple{}
			}
			c.state = StateReady
			c.ready = &Tuple{BlockNumber: res.block, Tree: res.tree, Metadata: res.metadata}
		default:
			return PollNotReady, Tuple{}
		}
	case StateIdle, StateEmitted:
		if c.finished && c.current >= c.endBlock {
			return PollFinished, Tuple{}
		}
		return PollNotReady, Tuple{}
	}

	if c.state == StateReady && c.ready != nil {
		tuple := *c.ready
		c.ready = nil
		c.state = StateEmitted
		return PollReady, tuple
	}
	return PollNotReady, Tuple{}
}

// RangeFinished signals that no further blocks will be requested; once the
// slot drains (Idle or Emitted, with nothing pending), subsequent PollNext
// calls return PollFinished.
func (c *StateCollector) RangeFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
}
