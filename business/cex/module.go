// Package cex implements the CEX-side bounded context: the trade store and
// time-window VWAP pricer (C1-C2).
package cex

import (
	cexapp "github.com/fd1az/arbitrage-bot/business/cex/app"
	cexDI "github.com/fd1az/arbitrage-bot/business/cex/di"
	"github.com/fd1az/arbitrage-bot/internal/di"
)

// Module wires the trade store into the container. Loading it from the
// reference DB happens in main, after RegisterServices, via
// cexDI.GetTradeStore(container).Load(trades) — the trade store is a
// run-lifetime singleton, not rebuilt per block.
type Module struct{}

// RegisterServices registers the TradeStore.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, cexDI.TradeStore, func(sr di.ServiceRegistry) *cexapp.TradeStore {
		return cexapp.NewTradeStore()
	})
	return nil
}
