package model

import (
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/commitmenttree"
	"github.com/umbraproject/umbrad/domain/consensus/utils/utxo"
)

// BlockStateDiff captures everything a single block changes in chain state.
// The state at any non-finalized block is the finalized state plus the
// composition of the BlockStateDiffs along the path from the finalized tip to
// that block.
type BlockStateDiff struct {
	// UTXODiff is the change this block makes to the transparent UTXO set.
	UTXODiff *utxo.Diff

	// NullifiersAdded are the nullifiers this block reveals, per pool.
	NullifiersAdded map[externalapi.ShieldedPool][]externalapi.DomainNullifier

	// CommitmentsAdded are the note commitments this block appends to each
	// pool's commitment tree, in order.
	CommitmentsAdded map[externalapi.ShieldedPool][]*externalapi.DomainHash

	// Trees are the post-block commitment tree frontiers per pool.
	Trees map[externalapi.ShieldedPool]*commitmenttree.Tree

	// Anchors are the post-block commitment roots per pool. Each becomes a
	// valid anchor for spends in descendant blocks.
	Anchors map[externalapi.ShieldedPool]*externalapi.DomainHash
}

// NewBlockStateDiff returns an empty BlockStateDiff.
func NewBlockStateDiff() *BlockStateDiff {
	return &BlockStateDiff{
		UTXODiff:         utxo.NewDiff(),
		NullifiersAdded:  make(map[externalapi.ShieldedPool][]externalapi.DomainNullifier),
		CommitmentsAdded: make(map[externalapi.ShieldedPool][]*externalapi.DomainHash),
		Trees:            make(map[externalapi.ShieldedPool]*commitmenttree.Tree),
		Anchors:          make(map[externalapi.ShieldedPool]*externalapi.DomainHash),
	}
}
