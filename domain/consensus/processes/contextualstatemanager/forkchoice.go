package contextualstatemanager

import (
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
)

// AddBlock connects a semantically-valid block to the arena, runs fork
// choice, and advances finality if the new tip buries blocks deep enough.
func (csm *contextualStateManager) AddBlock(block *externalapi.DomainBlock,
	blockHash *externalapi.DomainHash) (*model.BlockInsertionResult, error) {

	parent, height, err := csm.resolveParent(block)
	if err != nil {
		return nil, err
	}

	node, err := csm.connectBlock(parent, height, block, blockHash)
	if err != nil {
		if ruleerrors.IsRuleError(err) {
			// Remember the verdict; this block will never be revalidated.
			csm.invalid[*blockHash] = struct{}{}
			log.Infof("Block %s failed contextual validation: %s", blockHash, err)
		}
		return nil, err
	}
	csm.arena[*blockHash] = node

	oldVirtual := csm.virtual
	tipChanged := csm.runForkChoice(node)
	result := &model.BlockInsertionResult{
		TipChanged: tipChanged,
		TipInfo:    csm.TipInfo(),
	}
	if !tipChanged {
		log.Debugf("Block %s accepted on a side chain at height %d", blockHash, height)
		return result, nil
	}

	result.IsReorg = oldVirtual != nil && oldVirtual != node.parent
	if result.IsReorg {
		log.Infof("Chain reorganized to tip %s at height %d (previous tip %s at height %d)",
			blockHash, node.height, oldVirtual.hash, oldVirtual.height)
	} else {
		log.Debugf("Chain extended to tip %s at height %d", blockHash, node.height)
	}

	finalizedHashes, err := csm.advanceFinality()
	if err != nil {
		return nil, err
	}
	result.FinalizedHashes = finalizedHashes
	result.TipInfo = csm.TipInfo()
	return result, nil
}

// runForkChoice decides whether the freshly connected node becomes the best
// tip. The chain with the greatest cumulative work wins; ties break toward
// the lower hash so all nodes converge on the same tip.
func (csm *contextualStateManager) runForkChoice(node *blockNode) bool {
	if csm.virtual == nil {
		csm.virtual = node
		return true
	}
	workComparison := node.work.Cmp(csm.virtual.work)
	if workComparison > 0 || (workComparison == 0 && node.hash.Less(&csm.virtual.hash)) {
		csm.virtual = node
		return true
	}
	return false
}

// advanceFinality finalizes every best-chain block that is now buried at
// least FinalityDepth under the best tip, then prunes the arena of the
// finalized blocks and of forks that lost below the new finality point.
func (csm *contextualStateManager) advanceFinality() ([]*externalapi.DomainHash, error) {
	tip := csm.virtual
	if tip == nil || tip.height < csm.finalizedTipHeight+csm.params.FinalityDepth+1 {
		return nil, nil
	}
	numToFinalize := tip.height - csm.params.FinalityDepth - csm.finalizedTipHeight

	// Collect the best chain from the finalized tip (exclusive) upward.
	chainLength := tip.height - csm.finalizedTipHeight
	chain := make([]*blockNode, chainLength)
	for node, i := tip, chainLength-1; node != nil; node, i = node.parent, i-1 {
		chain[i] = node
	}

	entries := make([]*model.FinalizationEntry, numToFinalize)
	finalizedHashes := make([]*externalapi.DomainHash, numToFinalize)
	for i := uint64(0); i < numToFinalize; i++ {
		node := chain[i]
		entries[i] = &model.FinalizationEntry{
			Block:     node.block,
			BlockHash: &node.hash,
			Height:    node.height,
			Work:      node.work,
			Diff:      node.diff,
		}
		finalizedHashes[i] = &node.hash
	}

	err := csm.finalityManager.FinalizeBlocks(entries)
	if err != nil {
		return nil, err
	}

	newFinalizedTip := chain[numToFinalize-1]
	log.Infof("Finalized %d blocks up to %s at height %d",
		numToFinalize, newFinalizedTip.hash, newFinalizedTip.height)

	csm.pruneArena(newFinalizedTip)
	csm.finalizedTipHash = newFinalizedTip.hash
	csm.finalizedTipHeight = newFinalizedTip.height
	csm.finalizedTipWork = newFinalizedTip.work

	return finalizedHashes, nil
}

// pruneArena drops the freshly finalized blocks and every fork that does not
// descend from the new finalized tip. Survivors directly on top of the new
// finalized tip are re-anchored to the durable state.
func (csm *contextualStateManager) pruneArena(newFinalizedTip *blockNode) {
	var toDelete []externalapi.DomainHash
	var toReanchor []*blockNode

	for hash, node := range csm.arena {
		if node.height <= newFinalizedTip.height {
			toDelete = append(toDelete, hash)
			continue
		}

		// Walk down to this fork's node right above the new finality
		// point; the fork survives only if that node's parent is the new
		// finalized tip.
		ancestor := node
		for ancestor.parent != nil && ancestor.parent.height > newFinalizedTip.height {
			ancestor = ancestor.parent
		}
		if ancestor.parent != newFinalizedTip {
			toDelete = append(toDelete, hash)
			continue
		}
		if node.parent == newFinalizedTip {
			toReanchor = append(toReanchor, node)
		}
	}

	for _, hash := range toDelete {
		delete(csm.arena, hash)
	}
	for _, node := range toReanchor {
		node.parent = nil
	}
	if len(toDelete) > 0 {
		log.Debugf("Pruned %d blocks from the arena; %d remain",
			len(toDelete), len(csm.arena))
	}
}
