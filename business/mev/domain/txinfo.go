package domain

import "github.com/ethereum/go-ethereum/common"

// GasDetails is the gas accounting attached to one transaction.
type GasDetails struct {
	GasUsed            uint64
	PriorityFee        uint64
	EffectiveGasPrice  uint64
	CoinbaseTransfer   *uint64 // nil when absent; a direct transfer to the block proposer
}

// GasPaid returns the total amount paid for gas, in wei: effective gas
// price times gas used, plus any direct coinbase transfer (a bribe paid
// outside the fee market).
func (g GasDetails) GasPaid() uint64 {
	paid := g.EffectiveGasPrice * g.GasUsed
	if g.CoinbaseTransfer != nil {
		paid += *g.CoinbaseTransfer
	}
	return paid
}

// TxInfo is per-transaction bookkeeping carried alongside the BlockTree.
type TxInfo struct {
	TxHash       common.Hash
	TxIndex      uint64
	GasDetails   GasDetails
	EOA          Address
	MevContract  *Address
	IsClassified bool
	BlockNumber  uint64
}
