// Package contextualstatemanager implements the contextual side of block
// validation: everything that depends on chain state. It keeps the
// non-finalized blocks of all candidate chains in an in-memory arena on top
// of the durable finalized state, runs fork choice by cumulative work, and
// hands blocks that sink deep enough under the best tip to the finality
// manager.
package contextualstatemanager

import (
	"math/big"
	"sort"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/domain/consensus/utils/difficulty"
)

type contextualStateManager struct {
	params          *chainconfig.Params
	databaseContext model.DBManager

	blockStore          model.BlockStore
	blockStatusStore    model.BlockStatusStore
	chainStateStore     model.ChainStateStore
	utxoSetStore        model.UTXOSetStore
	nullifierStore      model.NullifierStore
	commitmentTreeStore model.CommitmentTreeStore
	transactionStore    model.TransactionStore

	finalityManager model.FinalityManager
	scriptVerifier  model.ScriptVerifier

	// arena holds every non-finalized block of every candidate chain,
	// keyed by block hash.
	arena map[externalapi.DomainHash]*blockNode

	// invalid remembers blocks that failed validation so they are never
	// revalidated.
	invalid map[externalapi.DomainHash]struct{}

	// virtual is the best tip's node, or nil when the finalized tip is the
	// best tip (the arena is empty).
	virtual *blockNode

	finalizedTipHash   externalapi.DomainHash
	finalizedTipHeight uint64
	finalizedTipWork   *big.Int
}

// New creates a new ContextualStateManager over the given stores. On a fresh
// database it finalizes the network's genesis block so that the finalized
// state is never empty.
func New(
	params *chainconfig.Params,
	databaseContext model.DBManager,
	blockStore model.BlockStore,
	blockStatusStore model.BlockStatusStore,
	chainStateStore model.ChainStateStore,
	utxoSetStore model.UTXOSetStore,
	nullifierStore model.NullifierStore,
	commitmentTreeStore model.CommitmentTreeStore,
	transactionStore model.TransactionStore,
	finalityManager model.FinalityManager,
	scriptVerifier model.ScriptVerifier) (model.ContextualStateManager, error) {

	csm := &contextualStateManager{
		params:          params,
		databaseContext: databaseContext,

		blockStore:          blockStore,
		blockStatusStore:    blockStatusStore,
		chainStateStore:     chainStateStore,
		utxoSetStore:        utxoSetStore,
		nullifierStore:      nullifierStore,
		commitmentTreeStore: commitmentTreeStore,
		transactionStore:    transactionStore,

		finalityManager: finalityManager,
		scriptVerifier:  scriptVerifier,

		arena:   make(map[externalapi.DomainHash]*blockNode),
		invalid: make(map[externalapi.DomainHash]struct{}),

		// Genesis bootstrap connects a block before any chain state has
		// been loaded, so the finalized work must already be a valid zero.
		finalizedTipWork: big.NewInt(0),
	}

	hasChainState, err := chainStateStore.HasChainState(databaseContext)
	if err != nil {
		return nil, err
	}
	if !hasChainState {
		err := csm.finalizeGenesis()
		if err != nil {
			return nil, err
		}
	}

	state, err := chainStateStore.ChainState(databaseContext)
	if err != nil {
		return nil, err
	}
	csm.finalizedTipHash = state.TipHash
	csm.finalizedTipHeight = state.TipHeight
	csm.finalizedTipWork = state.TipWork
	log.Infof("Loaded finalized chain state: tip %s at height %d",
		state.TipHash, state.TipHeight)

	return csm, nil
}

// finalizeGenesis bootstraps a fresh database by running the genesis block
// through the regular connect-and-finalize path against empty state.
func (csm *contextualStateManager) finalizeGenesis() error {
	genesis := csm.params.GenesisBlock
	genesisHash := csm.params.GenesisHash
	log.Infof("Finalizing genesis block %s", genesisHash)

	node, err := csm.connectBlock(nil, 0, genesis, genesisHash)
	if err != nil {
		return err
	}
	return csm.finalityManager.FinalizeBlocks([]*model.FinalizationEntry{{
		Block:     genesis,
		BlockHash: genesisHash,
		Height:    0,
		Work:      difficulty.CalcWork(genesis.Header.Bits),
		Diff:      node.diff,
	}})
}

// CheckBlockContext runs the admission checks that precede semantic
// verification and returns the block's height.
func (csm *contextualStateManager) CheckBlockContext(block *externalapi.DomainBlock,
	blockHash *externalapi.DomainHash) (uint64, error) {

	if _, ok := csm.invalid[*blockHash]; ok {
		return 0, ruleerrors.Errorf(ruleerrors.ErrKnownInvalid,
			"block %s is known to be invalid", blockHash)
	}
	if _, ok := csm.arena[*blockHash]; ok {
		return 0, ruleerrors.Errorf(ruleerrors.ErrDuplicateBlock,
			"block %s already exists", blockHash)
	}
	isFinalized, err := csm.blockStatusStore.Exists(csm.databaseContext, blockHash)
	if err != nil {
		return 0, err
	}
	if isFinalized {
		return 0, ruleerrors.Errorf(ruleerrors.ErrDuplicateBlock,
			"block %s already exists", blockHash)
	}

	parent, height, err := csm.resolveParent(block)
	if err != nil {
		return 0, err
	}

	if checkpoint := csm.params.CheckpointAtHeight(height); checkpoint != nil {
		if !checkpoint.Hash.Equal(blockHash) {
			return 0, ruleerrors.Errorf(ruleerrors.ErrCheckpointMismatch,
				"block %s at height %d does not match the checkpoint hash %s",
				blockHash, height, checkpoint.Hash)
		}
	}

	err = csm.checkBlockTime(parent, block)
	if err != nil {
		return 0, err
	}

	return height, nil
}

// resolveParent locates the block's parent and derives the block's height.
// The parent is either an arena node or the finalized tip; anything else is a
// missing parent or a fork below finality.
func (csm *contextualStateManager) resolveParent(block *externalapi.DomainBlock) (*blockNode, uint64, error) {
	parentHash := block.Header.ParentHash
	if parentNode, ok := csm.arena[parentHash]; ok {
		return parentNode, parentNode.height + 1, nil
	}
	if parentHash.Equal(&csm.finalizedTipHash) {
		return nil, csm.finalizedTipHeight + 1, nil
	}

	parentIsFinalized, err := csm.blockStatusStore.Exists(csm.databaseContext, &parentHash)
	if err != nil {
		return nil, 0, err
	}
	if parentIsFinalized {
		// The parent is finalized but isn't the finalized tip: the block
		// forks below the finality point and can never win fork choice.
		return nil, 0, ruleerrors.Errorf(ruleerrors.ErrPrunedAncestry,
			"block's parent %s is finalized but is not the finalized tip", parentHash)
	}
	return nil, 0, ruleerrors.Errorf(ruleerrors.ErrMissingParent,
		"block's parent %s is unknown", parentHash)
}

// checkBlockTime enforces the past-median-time rule: a block's timestamp
// must be strictly greater than the median timestamp of its recent
// ancestors.
func (csm *contextualStateManager) checkBlockTime(parent *blockNode, block *externalapi.DomainBlock) error {
	timestamps, err := csm.collectAncestorTimestamps(parent, csm.params.PastMedianTimeWindow)
	if err != nil {
		return err
	}
	if len(timestamps) == 0 {
		// Only the genesis block has no ancestors, and it is never
		// admitted through this path.
		return nil
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	medianTime := timestamps[len(timestamps)/2]
	if block.Header.TimeInMilliseconds <= medianTime {
		return ruleerrors.Errorf(ruleerrors.ErrTimeTooOld,
			"block timestamp %d is not after the past median time %d",
			block.Header.TimeInMilliseconds, medianTime)
	}
	return nil
}

func (csm *contextualStateManager) collectAncestorTimestamps(parent *blockNode, window int) ([]int64, error) {
	timestamps := make([]int64, 0, window)
	current := parent
	for current != nil && len(timestamps) < window {
		timestamps = append(timestamps, current.block.Header.TimeInMilliseconds)
		current = current.parent
	}

	// Continue into finalized territory, starting at the finalized tip.
	hash := csm.finalizedTipHash
	zeroHash := externalapi.NewZeroHash()
	for len(timestamps) < window {
		finalizedBlock, err := csm.blockStore.Block(csm.databaseContext, &hash)
		if err != nil {
			return nil, err
		}
		timestamps = append(timestamps, finalizedBlock.Header.TimeInMilliseconds)
		if finalizedBlock.Header.ParentHash.Equal(zeroHash) {
			break
		}
		hash = finalizedBlock.Header.ParentHash
	}
	return timestamps, nil
}
