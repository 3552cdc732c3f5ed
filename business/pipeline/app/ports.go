// Package app implements the range executor (C9) and state collector (C8)
// that drive blocks through state collection, inspection and persistence.
package app

import (
	"context"

	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// TraceFetcher is the collector's sole suspension point for building a
// block's (tree, metadata) tuple: fetching traces, assembling the call
// tree, and resolving DEX prices for every touched token (§4.3's
// CollectingTraces / BuildingTree / FetchingDexPrices states, collapsed
// into one adapter call — the state machine still tracks them separately
// for should_process_next_block()/is_collecting_state() bookkeeping).
type TraceFetcher interface {
	FetchBlock(ctx context.Context, blockNumber uint64) (*domain.BlockTree, *domain.Metadata, error)
}

// PersistenceSink is where classified bundles go once every inspector has
// run for a block. Per §4.8, insertion errors are logged and not retried —
// the sink is expected to be idempotent by primary key.
type PersistenceSink interface {
	Insert(ctx context.Context, blockNumber uint64, bundles []domain.Bundle) error
}
