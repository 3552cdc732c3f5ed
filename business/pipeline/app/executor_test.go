package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mevapp "github.com/fd1az/arbitrage-bot/business/mev/app"
	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// countingInspector emits exactly one bundle per tree, tagged with the
// block number it saw, so tests can assert persistence order/coverage
// without depending on real MEV detection logic.
type countingInspector struct{}

func (countingInspector) Name() domain.MevType { return domain.MevTypeAtomicArb }

func (countingInspector) ProcessTree(tree *domain.BlockTree, metadata *domain.Metadata) []domain.Bundle {
	return []domain.Bundle{{
		Header: domain.BundleHeader{BlockNumber: tree.BlockNumber, MevType: domain.MevTypeAtomicArb},
		Data:   domain.AtomicArbData{},
	}}
}

var _ mevapp.Inspector = countingInspector{}

type recordingSink struct {
	mu      sync.Mutex
	inserts map[uint64]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{inserts: make(map[uint64]int)}
}

func (s *recordingSink) Insert(ctx context.Context, blockNumber uint64, bundles []domain.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts[blockNumber] = len(bundles)
	return nil
}

func (s *recordingSink) blocks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.inserts))
	for b := range s.inserts {
		out = append(out, b)
	}
	return out
}

func TestRangeExecutor_ProcessesFullRange(t *testing.T) {
	fetcher := newFakeFetcher(0)
	collector := NewStateCollector(fetcher, nil, 100, 103)
	sink := newRecordingSink()

	executor, err := NewRangeExecutor(collector, []mevapp.Inspector{countingInspector{}}, sink, nil)
	require.NoError(t, err)

	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- executor.Run(context.Background(), shutdown) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not finish range in time")
	}

	assert.ElementsMatch(t, []uint64{100, 101, 102}, sink.blocks())
	for _, b := range sink.blocks() {
		assert.Equal(t, 1, sink.inserts[b])
	}
}

func TestRangeExecutor_ShutdownDrainsInFlightButStopsNewWork(t *testing.T) {
	fetcher := newFakeFetcher(30 * time.Millisecond)
	collector := NewStateCollector(fetcher, nil, 100, 103)
	sink := newRecordingSink()

	executor, err := NewRangeExecutor(collector, []mevapp.Inspector{countingInspector{}}, sink, nil)
	require.NoError(t, err)

	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- executor.Run(context.Background(), shutdown) }()

	// Let the collector emit blocks 100 and 101 before shutting down.
	time.Sleep(80 * time.Millisecond)
	close(shutdown)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not return after shutdown")
	}

	got := sink.blocks()
	assert.NotContains(t, got, uint64(102), "block 102 must not be processed once shutdown fires")
	assert.Subset(t, []uint64{100, 101, 102}, got)
}
