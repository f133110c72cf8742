package contextualstatemanager

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// TipInfo returns the current best tip and finality point.
func (csm *contextualStateManager) TipInfo() *externalapi.TipInfo {
	tipHash := csm.finalizedTipHash
	tipHeight := csm.finalizedTipHeight
	tipWork := csm.finalizedTipWork
	if csm.virtual != nil {
		tipHash = csm.virtual.hash
		tipHeight = csm.virtual.height
		tipWork = csm.virtual.work
	}
	finalityPointHash := csm.finalizedTipHash
	return &externalapi.TipInfo{
		TipHash:             &tipHash,
		TipHeight:           tipHeight,
		TipWork:             new(big.Int).Set(tipWork),
		FinalityPointHash:   &finalityPointHash,
		FinalityPointHeight: csm.finalizedTipHeight,
	}
}

// MarkInvalid records a terminal validation verdict for the given block.
func (csm *contextualStateManager) MarkInvalid(blockHash *externalapi.DomainHash) {
	csm.invalid[*blockHash] = struct{}{}
}

// BlockInfo returns what is known about the given block hash.
func (csm *contextualStateManager) BlockInfo(blockHash *externalapi.DomainHash) (*externalapi.BlockInfo, error) {
	if node, ok := csm.arena[*blockHash]; ok {
		return &externalapi.BlockInfo{
			Exists:        true,
			Status:        externalapi.StatusValidated,
			Height:        node.height,
			Work:          new(big.Int).Set(node.work),
			IsInBestChain: csm.virtual != nil && node.isAncestorOf(csm.virtual),
		}, nil
	}
	if _, ok := csm.invalid[*blockHash]; ok {
		return &externalapi.BlockInfo{
			Exists: true,
			Status: externalapi.StatusInvalid,
			Work:   big.NewInt(0),
		}, nil
	}

	isFinalized, err := csm.blockStatusStore.Exists(csm.databaseContext, blockHash)
	if err != nil {
		return nil, err
	}
	if isFinalized {
		height, err := csm.chainStateStore.HeightByHash(csm.databaseContext, blockHash)
		if err != nil {
			return nil, err
		}
		return &externalapi.BlockInfo{
			Exists: true,
			Status: externalapi.StatusFinalized,
			Height: height,
			// Per-block work is not kept for finalized blocks; it is
			// irrelevant once a block can no longer be reorganized away.
			Work:          big.NewInt(0),
			IsInBestChain: true,
		}, nil
	}

	return &externalapi.BlockInfo{Exists: false, Work: big.NewInt(0)}, nil
}

// Block returns the block with the given hash, whether finalized or not.
func (csm *contextualStateManager) Block(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	if node, ok := csm.arena[*blockHash]; ok {
		return node.block, nil
	}
	return csm.blockStore.Block(csm.databaseContext, blockHash)
}

// BlockByHeight returns the block at the given height on the best chain.
func (csm *contextualStateManager) BlockByHeight(height uint64) (*externalapi.DomainBlock, error) {
	if height <= csm.finalizedTipHeight {
		hash, err := csm.chainStateStore.HashAtHeight(csm.databaseContext, height)
		if err != nil {
			return nil, err
		}
		return csm.blockStore.Block(csm.databaseContext, hash)
	}

	if csm.virtual == nil || height > csm.virtual.height {
		return nil, errors.Wrapf(database.ErrNotFound,
			"no block at height %d on the best chain", height)
	}
	node := csm.virtual
	for node.height > height {
		node = node.parent
	}
	return node.block, nil
}

// TransactionByID returns the transaction with the given ID if it is in a
// best-chain or finalized block.
func (csm *contextualStateManager) TransactionByID(
	transactionID *externalapi.DomainTransactionID) (*externalapi.DomainTransaction, error) {

	for node := csm.virtual; node != nil; node = node.parent {
		if index, ok := node.transactionIndex[*transactionID]; ok {
			return node.block.Transactions[index], nil
		}
	}

	location, err := csm.transactionStore.Location(csm.databaseContext, transactionID)
	if err != nil {
		return nil, err
	}
	block, err := csm.blockStore.Block(csm.databaseContext, &location.BlockHash)
	if err != nil {
		return nil, err
	}
	return block.Transactions[location.Index], nil
}

// UTXOEntry returns the unspent entry for the given outpoint as seen from
// the best tip.
func (csm *contextualStateManager) UTXOEntry(outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, error) {
	entry, ok, err := csm.viewAt(csm.virtual).utxoEntry(outpoint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(database.ErrNotFound,
			"outpoint %s is not in the best chain's UTXO set", outpoint)
	}
	return entry, nil
}

// HasNullifier returns whether the given nullifier is spent in the given
// pool as seen from the best tip.
func (csm *contextualStateManager) HasNullifier(pool externalapi.ShieldedPool,
	nullifier *externalapi.DomainNullifier) (bool, error) {

	return csm.viewAt(csm.virtual).hasNullifier(pool, nullifier)
}

// HasAnchor returns whether the given commitment root is a valid anchor of
// the given pool as seen from the best tip.
func (csm *contextualStateManager) HasAnchor(pool externalapi.ShieldedPool,
	anchor *externalapi.DomainHash) (bool, error) {

	return csm.viewAt(csm.virtual).hasAnchor(pool, anchor)
}
