// Package finalitymanager merges finalized blocks into the durable stores.
// All stores commit inside one database transaction: a crash mid-merge
// leaves the previous finalized state fully intact, and restart resumes from
// it.
package finalitymanager

import (
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/domain/consensus/utils/multiset"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
	"github.com/umbraproject/umbrad/infrastructure/logger"
)

type finalityManager struct {
	databaseContext model.DBManager

	blockStore          model.BlockStore
	blockStatusStore    model.BlockStatusStore
	chainStateStore     model.ChainStateStore
	utxoSetStore        model.UTXOSetStore
	nullifierStore      model.NullifierStore
	commitmentTreeStore model.CommitmentTreeStore
	transactionStore    model.TransactionStore
}

// New creates a new FinalityManager over the given stores.
func New(
	databaseContext model.DBManager,
	blockStore model.BlockStore,
	blockStatusStore model.BlockStatusStore,
	chainStateStore model.ChainStateStore,
	utxoSetStore model.UTXOSetStore,
	nullifierStore model.NullifierStore,
	commitmentTreeStore model.CommitmentTreeStore,
	transactionStore model.TransactionStore) model.FinalityManager {

	return &finalityManager{
		databaseContext: databaseContext,

		blockStore:          blockStore,
		blockStatusStore:    blockStatusStore,
		chainStateStore:     chainStateStore,
		utxoSetStore:        utxoSetStore,
		nullifierStore:      nullifierStore,
		commitmentTreeStore: commitmentTreeStore,
		transactionStore:    transactionStore,
	}
}

// FinalizeBlocks merges the given blocks, lowest height first, into durable
// state atomically.
func (fm *finalityManager) FinalizeBlocks(entries []*model.FinalizationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	onEnd := logger.LogAndMeasureExecutionTime(log, "FinalizeBlocks")
	defer onEnd()

	utxoCommitment, err := fm.updatedUTXOCommitment(entries)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fm.blockStore.Stage(entry.BlockHash, entry.Block)
		fm.blockStatusStore.Stage(entry.BlockHash, externalapi.StatusFinalized)
		fm.chainStateStore.StageHashAtHeight(entry.Height, entry.BlockHash)
		for index, tx := range entry.Block.Transactions {
			fm.transactionStore.Stage(consensushashing.TransactionID(tx), &model.TransactionLocation{
				BlockHash: *entry.BlockHash,
				Index:     uint32(index),
			})
		}

		fm.utxoSetStore.StageDiff(entry.Diff.UTXODiff)
		for pool, nullifiers := range entry.Diff.NullifiersAdded {
			fm.nullifierStore.Stage(pool, nullifiers)
		}
		for pool, anchor := range entry.Diff.Anchors {
			fm.commitmentTreeStore.StageAnchors(pool, []*externalapi.DomainHash{anchor})
		}
	}

	lastEntry := entries[len(entries)-1]
	for pool, tree := range lastEntry.Diff.Trees {
		fm.commitmentTreeStore.StageTree(pool, tree)
	}
	fm.chainStateStore.StageChainState(&model.FinalizedChainState{
		TipHash:        *lastEntry.BlockHash,
		TipHeight:      lastEntry.Height,
		TipWork:        lastEntry.Work,
		UTXOCommitment: utxoCommitment,
	})

	err = fm.commitAllStores()
	if err != nil {
		fm.discardAllStores()
		return err
	}

	log.Debugf("Durably finalized %d blocks; new finalized tip %s at height %d",
		len(entries), lastEntry.BlockHash, lastEntry.Height)
	return nil
}

// updatedUTXOCommitment rolls the stored ECMH commitment forward over the
// entries' UTXO diffs.
func (fm *finalityManager) updatedUTXOCommitment(entries []*model.FinalizationEntry) ([]byte, error) {
	ms, err := fm.currentMultiset()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		for outpoint, utxoEntry := range entry.Diff.UTXODiff.ToRemove() {
			outpoint := outpoint
			serialized, err := serialization.SerializeUTXO(&outpoint, utxoEntry)
			if err != nil {
				return nil, err
			}
			ms.Remove(serialized)
		}
		for outpoint, utxoEntry := range entry.Diff.UTXODiff.ToAdd() {
			outpoint := outpoint
			serialized, err := serialization.SerializeUTXO(&outpoint, utxoEntry)
			if err != nil {
				return nil, err
			}
			ms.Add(serialized)
		}
	}
	return ms.Serialize(), nil
}

func (fm *finalityManager) currentMultiset() (*multiset.Multiset, error) {
	hasChainState, err := fm.chainStateStore.HasChainState(fm.databaseContext)
	if err != nil {
		return nil, err
	}
	if !hasChainState {
		return multiset.New(), nil
	}
	state, err := fm.chainStateStore.ChainState(fm.databaseContext)
	if err != nil {
		return nil, err
	}
	return multiset.FromBytes(state.UTXOCommitment)
}

func (fm *finalityManager) allStores() []model.Store {
	return []model.Store{
		fm.blockStore,
		fm.blockStatusStore,
		fm.chainStateStore,
		fm.utxoSetStore,
		fm.nullifierStore,
		fm.commitmentTreeStore,
		fm.transactionStore,
	}
}

func (fm *finalityManager) commitAllStores() error {
	dbTx, err := fm.databaseContext.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	for _, store := range fm.allStores() {
		err := store.Commit(dbTx)
		if err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (fm *finalityManager) discardAllStores() {
	for _, store := range fm.allStores() {
		store.Discard()
	}
}
