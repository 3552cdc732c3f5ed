// Package refstore adapts the reference KV store §6 describes (the six
// ingested tables token_decimals, address_to_tokens, address_to_protocol,
// cex_quotes, cex_trades, pool_creation_blocks, plus metadata) onto the
// local filesystem: a directory of JSON files, one per global table plus
// one per-block trace/metadata/cex_quotes snapshot. It stands in for the
// out-of-scope ClickHouse-backed store the source reads from — see
// DESIGN.md.
package refstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	cexdomain "github.com/fd1az/arbitrage-bot/business/cex/domain"
	mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
)

// Tables holds the four global (whole-run) reference tables: token
// decimals, pool-to-token-pair, pool-to-protocol-tag, and pool creation
// blocks. A trace
// classifier would consult these; this core's trace adapter reads
// already-classified per-block snapshots instead (see traceFile in
// store.go), so Tables exists to satisfy §6's ingested-table-schema
// requirement and is exposed for any future classifier to consult.
type Tables struct {
	TokenDecimals      map[common.Address]uint8
	AddressToTokens    map[common.Address][2]common.Address
	AddressToProtocol  map[common.Address]string
	PoolCreationBlocks map[uint64][]common.Address
}

func emptyTables() *Tables {
	return &Tables{
		TokenDecimals:      make(map[common.Address]uint8),
		AddressToTokens:    make(map[common.Address][2]common.Address),
		AddressToProtocol:  make(map[common.Address]string),
		PoolCreationBlocks: make(map[uint64][]common.Address),
	}
}

// LoadTables reads the four global tables from dir, tolerating any of them
// being absent (an empty run directory is a valid, if data-starved, store).
func LoadTables(dir string) (*Tables, error) {
	t := emptyTables()

	var rawDecimals map[string]uint8
	if err := readJSONFile(filepath.Join(dir, "token_decimals.json"), &rawDecimals); err != nil {
		return nil, err
	}
	for addr, dec := range rawDecimals {
		t.TokenDecimals[common.HexToAddress(addr)] = dec
	}

	var rawTokens map[string][2]string
	if err := readJSONFile(filepath.Join(dir, "address_to_tokens.json"), &rawTokens); err != nil {
		return nil, err
	}
	for pool, pair := range rawTokens {
		t.AddressToTokens[common.HexToAddress(pool)] = [2]common.Address{
			common.HexToAddress(pair[0]), common.HexToAddress(pair[1]),
		}
	}

	var rawProtocol map[string]string
	if err := readJSONFile(filepath.Join(dir, "address_to_protocol.json"), &rawProtocol); err != nil {
		return nil, err
	}
	for pool, tag := range rawProtocol {
		t.AddressToProtocol[common.HexToAddress(pool)] = tag
	}

	var rawPools map[string][]string
	if err := readJSONFile(filepath.Join(dir, "pool_creation_blocks.json"), &rawPools); err != nil {
		return nil, err
	}
	for blockStr, pools := range rawPools {
		var block uint64
		if _, err := fmt.Sscanf(blockStr, "%d", &block); err != nil {
			continue
		}
		addrs := make([]common.Address, 0, len(pools))
		for _, p := range pools {
			addrs = append(addrs, common.HexToAddress(p))
		}
		t.PoolCreationBlocks[block] = addrs
	}

	return t, nil
}

// cexQuoteRecord is one row of a per-block cex_quotes.json snapshot.
type cexQuoteRecord struct {
	Exchange string `json:"exchange"`
	Token0   string `json:"token0"`
	Token1   string `json:"token1"`
	Bid      string `json:"bid"`
	Ask      string `json:"ask"`
}

// loadCexQuotes reads the cex_quotes snapshot for block, returning an empty
// (not nil) PriceMap when the file is absent — a block with no CEX quotes
// recorded is a valid, if price-starved, block.
func loadCexQuotes(dir string, block uint64) (*cexdomain.PriceMap, error) {
	priceMap := cexdomain.NewPriceMap()

	var rows []cexQuoteRecord
	path := filepath.Join(dir, "cex_quotes", fmt.Sprintf("%d.json", block))
	if err := readJSONFile(path, &rows); err != nil {
		return nil, err
	}

	for _, row := range rows {
		ex, err := mevdomain.ParseExchange(row.Exchange)
		if err != nil {
			continue
		}
		bid, err := decimal.NewFromString(row.Bid)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "cex_quotes: bad bid")
		}
		ask, err := decimal.NewFromString(row.Ask)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "cex_quotes: bad ask")
		}
		priceMap.Insert(cexdomain.CexQuote{
			Exchange: ex,
			Pair:     mevdomain.NewPair(common.HexToAddress(row.Token0), common.HexToAddress(row.Token1)),
			Bid:      bid,
			Ask:      ask,
		})
	}
	return priceMap, nil
}

// cexTradeRecord is one row of the whole-run cex_trades.json table.
type cexTradeRecord struct {
	TimestampUs int64  `json:"timestamp_us"`
	Exchange    string `json:"exchange"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
	Side        string `json:"side"` // "buy" or "sell"
}

// LoadCexTrades reads the whole-run cex_trades table, for loading into
// cex/app.TradeStore once at startup.
func LoadCexTrades(dir string) ([]cexdomain.CexTrade, error) {
	var rows []cexTradeRecord
	if err := readJSONFile(filepath.Join(dir, "cex_trades.json"), &rows); err != nil {
		return nil, err
	}

	trades := make([]cexdomain.CexTrade, 0, len(rows))
	for _, row := range rows {
		ex, err := mevdomain.ParseExchange(row.Exchange)
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "cex_trades: bad price")
		}
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "cex_trades: bad amount")
		}
		side := cexdomain.SideSell
		if row.Side == "buy" {
			side = cexdomain.SideBuy
		}
		trades = append(trades, cexdomain.CexTrade{
			TimestampUs: row.TimestampUs,
			Exchange:    ex,
			Pair:        mevdomain.NewPair(common.HexToAddress(row.Token0), common.HexToAddress(row.Token1)),
			Price:       price,
			Amount:      amount,
			Side:        side,
		})
	}
	return trades, nil
}

// metadataRecord is the metadata table's per-block row (MetadataNoDex),
// before dex_quotes is layered on by the trace adapter.
type metadataRecord struct {
	BlockTimestampUs int64    `json:"block_timestamp_us"`
	EthPriceUSD      string   `json:"eth_price_usd"`
	PrivateFlow      []string `json:"private_flow"`
}

func loadMetadataRecord(dir string, block uint64) (*metadataRecord, error) {
	var rec metadataRecord
	path := filepath.Join(dir, "metadata", fmt.Sprintf("%d.json", block))
	if err := readJSONFile(path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// readJSONFile decodes path's JSON content into out. A missing file leaves
// out at its zero value and is not an error — absent reference data is
// reported as DataMissing by the caller that needed it, not by the loader.
func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperror.Wrap(err, apperror.CodeStoreReadFailed, "refstore: read "+path)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: decode "+path)
	}
	return nil
}
