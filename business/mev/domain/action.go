package domain

// ActionKind tags the variant an Action carries, letting callers switch on
// Kind() without a type assertion when they only need the tag.
type ActionKind int

const (
	ActionUnclassified ActionKind = iota
	ActionSwap
	ActionTransfer
	ActionFlashLoan
	ActionMint
	ActionBurn
	ActionLiquidation
)

// Action is the tagged variant every BlockTree node carries. Exactly one of
// Swap/Transfer/FlashLoan/Mint/Burn/Liquidation/Raw is populated, selected
// by Kind.
type Action struct {
	Kind        ActionKind
	Swap        *NormalizedSwap
	Transfer    *Transfer
	FlashLoan   *FlashLoan
	Mint        *LiquidityAction
	Burn        *LiquidityAction
	Liquidation *LiquidationAction
	Raw         []byte // only populated for ActionUnclassified
}

// Transfer is a plain ERC20/native value movement.
type Transfer struct {
	Token     Address
	From      Address
	To        Address
	Amount    Rational
}

// FlashLoan wraps the actions that ran inside its borrow/repay bracket.
// ChildActions preserves call-tree order.
type FlashLoan struct {
	Asset        Address
	Amount       Rational
	ChildActions []Action
}

// LiquidityAction covers both Mint and Burn (add/remove liquidity) shapes.
type LiquidityAction struct {
	Pool   Address
	Tokens []Address
	Amounts []Rational
}

// LiquidationAction is a lending-protocol liquidation.
type LiquidationAction struct {
	Pool            Address
	DebtAsset       Address
	CollateralAsset Address
	DebtRepaid      Rational
	CollateralSeized Rational
}

func NewSwapAction(s NormalizedSwap) Action   { return Action{Kind: ActionSwap, Swap: &s} }
func NewTransferAction(t Transfer) Action     { return Action{Kind: ActionTransfer, Transfer: &t} }
func NewFlashLoanAction(f FlashLoan) Action   { return Action{Kind: ActionFlashLoan, FlashLoan: &f} }
func NewMintAction(m LiquidityAction) Action  { return Action{Kind: ActionMint, Mint: &m} }
func NewBurnAction(b LiquidityAction) Action  { return Action{Kind: ActionBurn, Burn: &b} }
func NewLiquidationAction(l LiquidationAction) Action {
	return Action{Kind: ActionLiquidation, Liquidation: &l}
}
func NewUnclassifiedAction(raw []byte) Action {
	return Action{Kind: ActionUnclassified, Raw: raw}
}

func (a Action) IsSwap() bool        { return a.Kind == ActionSwap }
func (a Action) IsTransfer() bool    { return a.Kind == ActionTransfer }
func (a Action) IsFlashLoan() bool   { return a.Kind == ActionFlashLoan }
func (a Action) IsMint() bool        { return a.Kind == ActionMint }
func (a Action) IsBurn() bool        { return a.Kind == ActionBurn }
func (a Action) IsLiquidation() bool { return a.Kind == ActionLiquidation }
func (a Action) IsUnclassified() bool {
	return a.Kind == ActionUnclassified
}
