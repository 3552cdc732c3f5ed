package domain

// FlattenActions implements the source's general "flatten wanted nodes,
// pull children up, leave the rest" shape (tree/util/flatten.rs): given a
// flat action list as collected by BlockTree.CollectAll, it pulls every
// swap out of any FlashLoan wrapper (recursively, since a flash loan can
// wrap another flash loan) and drops everything else, producing the single
// ordered swap list §4.6's shape classifier and §4.7's CEX/DEX inspector
// both need.
//
// Order is preserved: a flash loan's child swaps are spliced in at the
// position the flash loan action itself occupied.
func FlattenActions(actions []Action) []NormalizedSwap {
	var out []NormalizedSwap
	for _, a := range actions {
		flattenInto(a, &out)
	}
	return out
}

func flattenInto(a Action, out *[]NormalizedSwap) {
	switch {
	case a.IsSwap():
		*out = append(*out, *a.Swap)
	case a.IsFlashLoan():
		for _, child := range a.FlashLoan.ChildActions {
			flattenInto(child, out)
		}
	}
}
