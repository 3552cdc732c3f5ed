// Package di contains dependency injection tokens for the cex context.
package di

import (
	cexapp "github.com/fd1az/arbitrage-bot/business/cex/app"
	"github.com/fd1az/arbitrage-bot/internal/di"
)

// DI tokens for the cex module.
const (
	TradeStore = "cex.TradeStore"
)

// GetTradeStore resolves the run-lifetime trade store (C1). Callers load it
// once (TradeStore.Load) before the range executor starts; it is read-only
// thereafter.
func GetTradeStore(sr di.ServiceRegistry) *cexapp.TradeStore {
	return di.MustGet[*cexapp.TradeStore](sr, TradeStore)
}
