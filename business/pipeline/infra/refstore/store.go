package refstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
)

// traceFile is one block's pre-classified trace snapshot: every
// transaction's call tree, already reduced to Action-tagged nodes. Deriving
// this from raw EVM call traces (decoding calldata against protocol ABIs,
// matching address_to_protocol/address_to_tokens) is the classification
// engine the spec's Non-goals place out of this core's scope ("reproducing
// execution semantics"); the adapter here reads the engine's output.
type traceFile struct {
	BlockNumber uint64    `json:"block_number"`
	Txs         []txTrace `json:"txs"`
}

type txTrace struct {
	TxHash            string     `json:"tx_hash"`
	TxIndex           uint64     `json:"tx_index"`
	EOA               string     `json:"eoa"`
	MevContract       *string    `json:"mev_contract,omitempty"`
	GasUsed           uint64     `json:"gas_used"`
	PriorityFee       uint64     `json:"priority_fee"`
	EffectiveGasPrice uint64     `json:"effective_gas_price"`
	CoinbaseTransfer  *uint64    `json:"coinbase_transfer,omitempty"`
	IsClassified      bool       `json:"is_classified"`
	Nodes             []nodeJSON `json:"nodes"`
}

// nodeJSON is one call-tree node, in pre-order: ParentIndex references an
// earlier entry in the same transaction's Nodes slice by position, nil for
// a root node.
type nodeJSON struct {
	Address     string     `json:"address"`
	ParentIndex *int       `json:"parent_index,omitempty"`
	Action      actionJSON `json:"action"`
}

type actionJSON struct {
	Kind        string           `json:"kind"`
	Swap        *swapJSON        `json:"swap,omitempty"`
	Transfer    *transferJSON    `json:"transfer,omitempty"`
	FlashLoan   *flashLoanJSON   `json:"flash_loan,omitempty"`
	Mint        *liquidityJSON   `json:"mint,omitempty"`
	Burn        *liquidityJSON   `json:"burn,omitempty"`
	Liquidation *liquidationJSON `json:"liquidation,omitempty"`
	Raw         string           `json:"raw,omitempty"`
}

type swapJSON struct {
	TokenIn    string `json:"token_in"`
	TokenOut   string `json:"token_out"`
	AmountIn   string `json:"amount_in"`
	AmountOut  string `json:"amount_out"`
	Pool       string `json:"pool"`
	From       string `json:"from"`
	Recipient  string `json:"recipient"`
	TraceIndex uint64 `json:"trace_index"`
}

type transferJSON struct {
	Token  string `json:"token"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type flashLoanJSON struct {
	Asset        string       `json:"asset"`
	Amount       string       `json:"amount"`
	ChildActions []actionJSON `json:"child_actions"`
}

type liquidityJSON struct {
	Pool    string   `json:"pool"`
	Tokens  []string `json:"tokens"`
	Amounts []string `json:"amounts"`
}

type liquidationJSON struct {
	Pool             string `json:"pool"`
	DebtAsset        string `json:"debt_asset"`
	CollateralAsset  string `json:"collateral_asset"`
	DebtRepaid       string `json:"debt_repaid"`
	CollateralSeized string `json:"collateral_seized"`
}

// Store is the filesystem-backed TraceFetcher: it reads a per-block trace
// snapshot plus the metadata/cex_quotes tables and assembles the
// (BlockTree, Metadata) tuple the state collector polls for.
type Store struct {
	dir        string
	tables     *Tables
	quoteAsset common.Address
}

// NewStore loads the global reference tables from dir (DB_PATH) and
// returns a Store ready to serve FetchBlock. quoteAsset prices every
// derived DEX quote against this asset — see deriveDexQuotes.
func NewStore(dir string, quoteAsset common.Address) (*Store, error) {
	tables, err := LoadTables(dir)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, tables: tables, quoteAsset: quoteAsset}, nil
}

// Tables exposes the loaded global reference tables.
func (s *Store) Tables() *Tables { return s.tables }

// FetchBlock implements pipeline/app.TraceFetcher.
func (s *Store) FetchBlock(ctx context.Context, blockNumber uint64) (*mevdomain.BlockTree, *mevdomain.Metadata, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	tf, err := s.readTraceFile(blockNumber)
	if err != nil {
		return nil, nil, err
	}

	tree := mevdomain.NewBlockTree(blockNumber)
	for _, tx := range tf.Txs {
		txHash := common.HexToHash(tx.TxHash)
		ids := make([]mevdomain.NodeID, len(tx.Nodes))
		for i, n := range tx.Nodes {
			action, err := toAction(n.Action)
			if err != nil {
				return nil, nil, err
			}
			var parent *mevdomain.NodeID
			if n.ParentIndex != nil {
				p := ids[*n.ParentIndex]
				parent = &p
			}
			ids[i] = tree.AddNode(txHash, common.HexToAddress(n.Address), action, parent)
		}

		var mevContract *common.Address
		if tx.MevContract != nil {
			addr := common.HexToAddress(*tx.MevContract)
			mevContract = &addr
		}
		tree.SetTxInfo(txHash, mevdomain.TxInfo{
			TxHash:  txHash,
			TxIndex: tx.TxIndex,
			GasDetails: mevdomain.GasDetails{
				GasUsed:           tx.GasUsed,
				PriorityFee:       tx.PriorityFee,
				EffectiveGasPrice: tx.EffectiveGasPrice,
				CoinbaseTransfer:  tx.CoinbaseTransfer,
			},
			EOA:          common.HexToAddress(tx.EOA),
			MevContract:  mevContract,
			IsClassified: tx.IsClassified,
			BlockNumber:  blockNumber,
		})
	}
	tree.Finalize()

	metadata, err := s.buildMetadata(blockNumber, tree)
	if err != nil {
		return nil, nil, err
	}

	return tree, metadata, nil
}

func (s *Store) readTraceFile(blockNumber uint64) (*traceFile, error) {
	path := filepath.Join(s.dir, "traces", fmt.Sprintf("%d.json", blockNumber))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.New(apperror.CodeTraceFetchFailed,
				apperror.WithContext(fmt.Sprintf("refstore: no trace snapshot for block %d", blockNumber)))
		}
		return nil, apperror.Wrap(err, apperror.CodeTraceFetchFailed, "refstore: read trace file")
	}
	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: decode trace file")
	}
	return &tf, nil
}

func (s *Store) buildMetadata(blockNumber uint64, tree *mevdomain.BlockTree) (*mevdomain.Metadata, error) {
	rec, err := loadMetadataRecord(s.dir, blockNumber)
	if err != nil {
		return nil, err
	}
	ethPrice := mevdomain.RationalZero()
	if rec.EthPriceUSD != "" {
		ethPrice, err = decimal.NewFromString(rec.EthPriceUSD)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: bad eth_price_usd")
		}
	}
	privateFlow := make(map[common.Hash]struct{}, len(rec.PrivateFlow))
	for _, h := range rec.PrivateFlow {
		privateFlow[common.HexToHash(h)] = struct{}{}
	}

	cexQuotes, err := loadCexQuotes(s.dir, blockNumber)
	if err != nil {
		return nil, err
	}

	return &mevdomain.Metadata{
		BlockNum:         blockNumber,
		BlockTimestampUs: rec.BlockTimestampUs,
		EthPriceUSD:      ethPrice,
		CexQuotes:        cexQuotes,
		DexQuotes:        deriveDexQuotes(tree, s.quoteAsset),
		PrivateFlow:      privateFlow,
	}, nil
}

// deriveDexQuotes approximates the source's dex_quotes table — populated
// there by an upstream AMM-reserves indexer, out of this core's scope —
// by reading a single point price directly off each swap leg that touches
// the quote asset: amount_out/amount_in prices token_in in quote units,
// and the reciprocal prices token_out when token_in is the quote asset.
// Before/After/Lowest/Highest all collapse to that one sample; swaps that
// never touch the quote asset contribute no quote for either of their
// tokens. See DESIGN.md.
func deriveDexQuotes(tree *mevdomain.BlockTree, quoteAsset common.Address) *mevdomain.DexQuotes {
	quotes := mevdomain.NewDexQuotes()
	swaps := tree.CollectAll(func(n *mevdomain.TreeNode) (bool, bool) {
		return n.Data.IsSwap(), true
	})
	for txHash, actions := range swaps {
		for _, action := range actions {
			swap := action.Swap
			if swap == nil || swap.AmountIn.IsZero() {
				continue
			}
			switch {
			case swap.TokenOut == quoteAsset:
				price := swap.AmountOut.Div(swap.AmountIn)
				set := mevdomain.DexPriceSet{Before: price, After: price, Lowest: price, Highest: price}
				quotes.Insert(txHash, swap.TokenIn, set)
			case swap.TokenIn == quoteAsset && !swap.AmountOut.IsZero():
				price := swap.AmountIn.Div(swap.AmountOut)
				set := mevdomain.DexPriceSet{Before: price, After: price, Lowest: price, Highest: price}
				quotes.Insert(txHash, swap.TokenOut, set)
			}
		}
	}
	return quotes
}

func toAction(a actionJSON) (mevdomain.Action, error) {
	switch a.Kind {
	case "swap":
		if a.Swap == nil {
			return mevdomain.Action{}, apperror.New(apperror.CodeTraceDecodeFailed, apperror.WithContext("refstore: swap action missing payload"))
		}
		amountIn, err := decimal.NewFromString(a.Swap.AmountIn)
		if err != nil {
			return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: swap amount_in")
		}
		amountOut, err := decimal.NewFromString(a.Swap.AmountOut)
		if err != nil {
			return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: swap amount_out")
		}
		return mevdomain.NewSwapAction(mevdomain.NormalizedSwap{
			TokenIn:    common.HexToAddress(a.Swap.TokenIn),
			TokenOut:   common.HexToAddress(a.Swap.TokenOut),
			AmountIn:   amountIn,
			AmountOut:  amountOut,
			Pool:       common.HexToAddress(a.Swap.Pool),
			From:       common.HexToAddress(a.Swap.From),
			Recipient:  common.HexToAddress(a.Swap.Recipient),
			TraceIndex: a.Swap.TraceIndex,
		}), nil

	case "transfer":
		if a.Transfer == nil {
			return mevdomain.Action{}, apperror.New(apperror.CodeTraceDecodeFailed, apperror.WithContext("refstore: transfer action missing payload"))
		}
		amount, err := decimal.NewFromString(a.Transfer.Amount)
		if err != nil {
			return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: transfer amount")
		}
		return mevdomain.NewTransferAction(mevdomain.Transfer{
			Token:  common.HexToAddress(a.Transfer.Token),
			From:   common.HexToAddress(a.Transfer.From),
			To:     common.HexToAddress(a.Transfer.To),
			Amount: amount,
		}), nil

	case "flash_loan":
		if a.FlashLoan == nil {
			return mevdomain.Action{}, apperror.New(apperror.CodeTraceDecodeFailed, apperror.WithContext("refstore: flash_loan action missing payload"))
		}
		amount, err := decimal.NewFromString(a.FlashLoan.Amount)
		if err != nil {
			return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: flash_loan amount")
		}
		children := make([]mevdomain.Action, 0, len(a.FlashLoan.ChildActions))
		for _, child := range a.FlashLoan.ChildActions {
			childAction, err := toAction(child)
			if err != nil {
				return mevdomain.Action{}, err
			}
			children = append(children, childAction)
		}
		return mevdomain.NewFlashLoanAction(mevdomain.FlashLoan{
			Asset:        common.HexToAddress(a.FlashLoan.Asset),
			Amount:       amount,
			ChildActions: children,
		}), nil

	case "mint", "burn":
		payload := a.Mint
		if a.Kind == "burn" {
			payload = a.Burn
		}
		if payload == nil {
			return mevdomain.Action{}, apperror.New(apperror.CodeTraceDecodeFailed, apperror.WithContext("refstore: "+a.Kind+" action missing payload"))
		}
		tokens := make([]common.Address, len(payload.Tokens))
		for i, t := range payload.Tokens {
			tokens[i] = common.HexToAddress(t)
		}
		amounts := make([]decimal.Decimal, len(payload.Amounts))
		for i, amt := range payload.Amounts {
			v, err := decimal.NewFromString(amt)
			if err != nil {
				return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: "+a.Kind+" amount")
			}
			amounts[i] = v
		}
		liquidity := mevdomain.LiquidityAction{Pool: common.HexToAddress(payload.Pool), Tokens: tokens, Amounts: amounts}
		if a.Kind == "burn" {
			return mevdomain.NewBurnAction(liquidity), nil
		}
		return mevdomain.NewMintAction(liquidity), nil

	case "liquidation":
		if a.Liquidation == nil {
			return mevdomain.Action{}, apperror.New(apperror.CodeTraceDecodeFailed, apperror.WithContext("refstore: liquidation action missing payload"))
		}
		debtRepaid, err := decimal.NewFromString(a.Liquidation.DebtRepaid)
		if err != nil {
			return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: liquidation debt_repaid")
		}
		collateralSeized, err := decimal.NewFromString(a.Liquidation.CollateralSeized)
		if err != nil {
			return mevdomain.Action{}, apperror.Wrap(err, apperror.CodeTraceDecodeFailed, "refstore: liquidation collateral_seized")
		}
		return mevdomain.NewLiquidationAction(mevdomain.LiquidationAction{
			Pool:             common.HexToAddress(a.Liquidation.Pool),
			DebtAsset:        common.HexToAddress(a.Liquidation.DebtAsset),
			CollateralAsset:  common.HexToAddress(a.Liquidation.CollateralAsset),
			DebtRepaid:       debtRepaid,
			CollateralSeized: collateralSeized,
		}), nil

	default:
		return mevdomain.NewUnclassifiedAction([]byte(a.Raw)), nil
	}
}
