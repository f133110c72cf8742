package contextualstatemanager

import (
	"math/big"

	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// blockNode is one non-finalized block in the arena, linked to its parent.
// The node owns everything needed to serve state queries at this block and to
// finalize or unwind it later without touching the block data again.
type blockNode struct {
	block *externalapi.DomainBlock
	hash  externalapi.DomainHash

	// parent is nil when this block's parent is the finalized tip.
	parent *blockNode
	height uint64

	// work is the cumulative proof-of-work weight up to and including this
	// block. Fork choice prefers the chain with the greatest work.
	work *big.Int

	diff *model.BlockStateDiff

	// nullifiers indexes diff.NullifiersAdded for O(1) double-spend lookups
	// along chain walks.
	nullifiers map[externalapi.ShieldedPool]map[externalapi.DomainNullifier]struct{}

	// transactionIndex maps the block's transaction IDs to their position.
	transactionIndex map[externalapi.DomainTransactionID]int
}

// isAncestorOf returns whether node is on the parent chain of (or equal to)
// descendant.
func (node *blockNode) isAncestorOf(descendant *blockNode) bool {
	for current := descendant; current != nil; current = current.parent {
		if current == node {
			return true
		}
	}
	return false
}
