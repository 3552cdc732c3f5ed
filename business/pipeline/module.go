// Package pipeline implements the state collector and range executor
// (C8-C9): the run-lifetime orchestration that turns a block range into
// persisted bundles.
package pipeline

import (
	"fmt"

	mevDI "github.com/fd1az/arbitrage-bot/business/mev/di"
	pipelineapp "github.com/fd1az/arbitrage-bot/business/pipeline/app"
	pipelineDI "github.com/fd1az/arbitrage-bot/business/pipeline/di"
	"github.com/fd1az/arbitrage-bot/business/pipeline/infra/refstore"
	"github.com/fd1az/arbitrage-bot/internal/asset"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// Module wires the reference-store-backed TraceFetcher/PersistenceSink and
// the state collector/range executor pair that runs the block range.
type Module struct{}

// RegisterServices registers TraceFetcher, PersistenceSink, StateCollector
// and RangeExecutor. Depends on mev's Inspectors token and the globally
// registered "config"/"logger" services — main.go registers both, and the
// mev/cex modules, before this one.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pipelineDI.TraceFetcher, func(sr di.ServiceRegistry) pipelineapp.TraceFetcher {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		a, ok := registry.GetBySymbolAndChain(cfg.Run.QuoteAsset, asset.ChainIDEthereum)
		if !ok {
			panic(fmt.Sprintf("pipeline: unknown run.quote_asset symbol %q", cfg.Run.QuoteAsset))
		}
		store, err := refstore.NewStore(referenceDBPath(), a.Address())
		if err != nil {
			panic(fmt.Sprintf("pipeline: failed to load reference tables: %v", err))
		}
		return store
	})

	di.RegisterToken(c, pipelineDI.PersistenceSink, func(sr di.ServiceRegistry) pipelineapp.PersistenceSink {
		return refstore.NewSink(referenceDBPath())
	})

	di.RegisterToken(c, pipelineDI.StateCollector, func(sr di.ServiceRegistry) *pipelineapp.StateCollector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		fetcher := pipelineDI.GetTraceFetcher(sr)
		return pipelineapp.NewStateCollector(fetcher, log, cfg.Run.StartBlock, cfg.Run.EndBlock)
	})

	di.RegisterToken(c, pipelineDI.RangeExecutor, func(sr di.ServiceRegistry) *pipelineapp.RangeExecutor {
		log := sr.Get("logger").(logger.LoggerInterface)
		collector := pipelineDI.GetStateCollector(sr)
		inspectors := mevDI.GetInspectors(sr)
		sink := pipelineDI.GetPersistenceSink(sr)
		executor, err := pipelineapp.NewRangeExecutor(collector, inspectors, sink, log)
		if err != nil {
			panic(fmt.Sprintf("pipeline: failed to build range executor: %v", err))
		}
		return executor
	})

	return nil
}

// referenceDBPath resolves the local reference-store cache directory:
// DB_PATH if set, else BRONTES_DB_PATH, else the working directory's
// ./data — the three locator env vars §6 names are "read but not
// interpreted by the core"; this is the one adapter that does interpret
// them, by design (it stands in for the real reference-DB client).
func referenceDBPath() string {
	if p := config.DBPath(); p != "" {
		return p
	}
	if p := config.BrontesDBPath(); p != "" {
		return p
	}
	return "./data"
}
