package domain

import "github.com/ethereum/go-ethereum/common"

// NodeID indexes into a BlockTree's node arena. No node owns another — the
// tree is a flat arena of nodes linked by NodeID, avoiding the cyclic
// ownership a directly-translated tree-of-children representation would
// require.
type NodeID int

// TreeNode is one call-trace node: an address, its classified Action, and
// links to its children and full descendant set.
type TreeNode struct {
	ID         NodeID
	TxHash     common.Hash
	Address    Address
	Data       Action
	Parent     *NodeID
	Children   []NodeID
	Subactions []NodeID // full descendant set, precomputed by Finalize
}

// BlockTree is a root-per-transaction forest over one block's traces. It is
// read-only during inspection; construction (AddNode + Finalize) happens
// once, before any inspector runs.
type BlockTree struct {
	BlockNumber uint64

	nodes   map[NodeID]*TreeNode
	roots   map[common.Hash][]NodeID
	txInfo  map[common.Hash]TxInfo
	nextID  NodeID
}

// NewBlockTree builds an empty tree for blockNumber.
func NewBlockTree(blockNumber uint64) *BlockTree {
	return &BlockTree{
		BlockNumber: blockNumber,
		nodes:       make(map[NodeID]*TreeNode),
		roots:       make(map[common.Hash][]NodeID),
		txInfo:      make(map[common.Hash]TxInfo),
	}
}

// AddNode inserts a node under txHash, linked to parent (nil for a root
// node of that transaction), and returns its NodeID.
func (t *BlockTree) AddNode(txHash common.Hash, address Address, data Action, parent *NodeID) NodeID {
	id := t.nextID
	t.nextID++

	node := &TreeNode{ID: id, TxHash: txHash, Address: address, Data: data, Parent: parent}
	t.nodes[id] = node

	if parent == nil {
		t.roots[txHash] = append(t.roots[txHash], id)
	} else {
		t.nodes[*parent].Children = append(t.nodes[*parent].Children, id)
	}
	return id
}

// SetTxInfo records the TxInfo associated with txHash.
func (t *BlockTree) SetTxInfo(txHash common.Hash, info TxInfo) {
	t.txInfo[txHash] = info
}

// TxInfoFor returns the TxInfo recorded for txHash.
func (t *BlockTree) TxInfoFor(txHash common.Hash) (TxInfo, bool) {
	info, ok := t.txInfo[txHash]
	return info, ok
}

// Finalize computes each node's full descendant set (Subactions) bottom-up.
// Must be called once after every AddNode call, before any query.
func (t *BlockTree) Finalize() {
	var walk func(id NodeID) []NodeID
	memo := make(map[NodeID][]NodeID)
	walk = func(id NodeID) []NodeID {
		if cached, ok := memo[id]; ok {
			return cached
		}
		node := t.nodes[id]
		descendants := make([]NodeID, 0, len(node.Children))
		for _, child := range node.Children {
			descendants = append(descendants, child)
			descendants = append(descendants, walk(child)...)
		}
		memo[id] = descendants
		node.Subactions = descendants
		return descendants
	}
	for id := range t.nodes {
		walk(id)
	}
}

// Node returns the node stored at id.
func (t *BlockTree) Node(id NodeID) (*TreeNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// TxHashes returns every transaction hash with at least one root node, in
// no particular order.
func (t *BlockTree) TxHashes() []common.Hash {
	out := make([]common.Hash, 0, len(t.roots))
	for h := range t.roots {
		out = append(out, h)
	}
	return out
}

// CollectPredicate decides, for a visited node, whether to include it in
// the result set and whether to recurse into its children.
type CollectPredicate func(node *TreeNode) (includeSelf, recurse bool)

// CollectAll walks every transaction's root nodes, applying predicate at
// each visited node, and returns the included actions grouped by
// transaction hash.
func (t *BlockTree) CollectAll(predicate CollectPredicate) map[common.Hash][]Action {
	out := make(map[common.Hash][]Action)

	var visit func(id NodeID, acc *[]Action)
	visit = func(id NodeID, acc *[]Action) {
		node, ok := t.nodes[id]
		if !ok {
			return
		}
		include, recurse := predicate(node)
		if include {
			*acc = append(*acc, node.Data)
		}
		if !recurse {
			return
		}
		for _, child := range node.Children {
			visit(child, acc)
		}
	}

	for txHash, roots := range t.roots {
		var acc []Action
		for _, root := range roots {
			visit(root, &acc)
		}
		if len(acc) > 0 {
			out[txHash] = acc
		}
	}
	return out
}

// CollectAllForTx is CollectAll scoped to a single transaction.
func (t *BlockTree) CollectAllForTx(txHash common.Hash, predicate CollectPredicate) []Action {
	all := t.CollectAll(predicate)
	return all[txHash]
}

// RootAction returns the Action at txHash's first root node — the
// "root.head" the emission filters in §4.7 reference.
func (t *BlockTree) RootAction(txHash common.Hash) (Action, bool) {
	roots, ok := t.roots[txHash]
	if !ok || len(roots) == 0 {
		return Action{}, false
	}
	return t.nodes[roots[0]].Data, true
}
