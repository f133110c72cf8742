package contextualstatemanager

import (
	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/commitmenttree"
)

// stateView is a read-only view of chain state as it is at some arena node,
// resolved as the durable finalized state plus the diffs along the node's
// parent chain. A nil tip views the finalized state itself.
type stateView struct {
	csm *contextualStateManager
	tip *blockNode
}

func (csm *contextualStateManager) viewAt(tip *blockNode) *stateView {
	return &stateView{csm: csm, tip: tip}
}

// utxoEntry resolves an outpoint through the overlay down to the durable
// UTXO set. It returns (nil, false, nil) when the outpoint is spent or was
// never created on this fork.
func (view *stateView) utxoEntry(outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, bool, error) {
	for node := view.tip; node != nil; node = node.parent {
		if entry, ok := node.diff.UTXODiff.ToAdd().Get(outpoint); ok {
			return entry, true, nil
		}
		if node.diff.UTXODiff.ToRemove().Contains(outpoint) {
			return nil, false, nil
		}
	}

	entry, err := view.csm.utxoSetStore.UTXOEntry(view.csm.databaseContext, outpoint)
	if database.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// hasNullifier returns whether the given nullifier is spent in the given
// pool on this fork.
func (view *stateView) hasNullifier(pool externalapi.ShieldedPool,
	nullifier *externalapi.DomainNullifier) (bool, error) {

	for node := view.tip; node != nil; node = node.parent {
		if poolNullifiers, ok := node.nullifiers[pool]; ok {
			if _, ok := poolNullifiers[*nullifier]; ok {
				return true, nil
			}
		}
	}
	return view.csm.nullifierStore.Has(view.csm.databaseContext, pool, nullifier)
}

// hasAnchor returns whether the given commitment root has ever been a
// post-block root of the given pool on this fork.
func (view *stateView) hasAnchor(pool externalapi.ShieldedPool,
	anchor *externalapi.DomainHash) (bool, error) {

	for node := view.tip; node != nil; node = node.parent {
		if nodeAnchor, ok := node.diff.Anchors[pool]; ok && nodeAnchor.Equal(anchor) {
			return true, nil
		}
	}
	return view.csm.commitmentTreeStore.HasAnchor(view.csm.databaseContext, pool, anchor)
}

// tree returns the commitment tree frontier of the given pool as it is at
// this view.
func (view *stateView) tree(pool externalapi.ShieldedPool) (*commitmenttree.Tree, error) {
	if view.tip != nil {
		// Every connected node carries the post-block frontier of both
		// pools.
		return view.tip.diff.Trees[pool].Clone(), nil
	}
	return view.csm.commitmentTreeStore.Tree(view.csm.databaseContext, pool)
}
