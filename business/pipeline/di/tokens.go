// Package di contains dependency injection tokens for the pipeline context.
package di

import (
	pipelineapp "github.com/fd1az/arbitrage-bot/business/pipeline/app"
	"github.com/fd1az/arbitrage-bot/internal/di"
)

// DI tokens for the pipeline module.
const (
	TraceFetcher    = "pipeline.TraceFetcher"
	PersistenceSink = "pipeline.PersistenceSink"
	StateCollector  = "pipeline.StateCollector"
	RangeExecutor   = "pipeline.RangeExecutor"
)

// GetTraceFetcher resolves the (tree, metadata)-per-block source the state
// collector polls (C8's suspension point (a)/(b)/(c)).
func GetTraceFetcher(sr di.ServiceRegistry) pipelineapp.TraceFetcher {
	return di.MustGet[pipelineapp.TraceFetcher](sr, TraceFetcher)
}

// GetPersistenceSink resolves the bundle sink the range executor writes
// inspector output to (C9's suspension point (d)).
func GetPersistenceSink(sr di.ServiceRegistry) pipelineapp.PersistenceSink {
	return di.MustGet[pipelineapp.PersistenceSink](sr, PersistenceSink)
}

// GetStateCollector resolves the run-lifetime state collector (C8).
func GetStateCollector(sr di.ServiceRegistry) *pipelineapp.StateCollector {
	return di.MustGet[*pipelineapp.StateCollector](sr, StateCollector)
}

// GetRangeExecutor resolves the run-lifetime range executor (C9).
func GetRangeExecutor(sr di.ServiceRegistry) *pipelineapp.RangeExecutor {
	return di.MustGet[*pipelineapp.RangeExecutor](sr, RangeExecutor)
}
