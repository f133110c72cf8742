package contextualstatemanager

import (
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/domain/consensus/utils/difficulty"
)

// connectContext accumulates the effects of the block being connected, so
// that later transactions in the block see the outputs and nullifiers of
// earlier ones.
type connectContext struct {
	view *stateView
	diff *model.BlockStateDiff

	// spentInBlock tracks transparent outpoints spent by this block, to
	// tell an intra-block double spend apart from a missing output.
	spentInBlock map[externalapi.DomainOutpoint]struct{}

	nullifiers map[externalapi.ShieldedPool]map[externalapi.DomainNullifier]struct{}
}

// connectBlock validates the block against the state at parent and builds
// its node. It does not touch the arena; the caller decides what to do with
// the node.
func (csm *contextualStateManager) connectBlock(parent *blockNode, height uint64,
	block *externalapi.DomainBlock, blockHash *externalapi.DomainHash) (*blockNode, error) {

	cctx := &connectContext{
		view:         csm.viewAt(parent),
		diff:         model.NewBlockStateDiff(),
		spentInBlock: make(map[externalapi.DomainOutpoint]struct{}),
		nullifiers:   make(map[externalapi.ShieldedPool]map[externalapi.DomainNullifier]struct{}),
	}

	transactionIndex := make(map[externalapi.DomainTransactionID]int, len(block.Transactions))
	for i, tx := range block.Transactions {
		transactionID := consensushashing.TransactionID(tx)
		transactionIndex[*transactionID] = i

		err := csm.connectTransaction(cctx, tx, i, height)
		if err != nil {
			return nil, err
		}
	}

	err := csm.connectCommitments(cctx, block)
	if err != nil {
		return nil, err
	}

	work := difficulty.CalcWork(block.Header.Bits)
	if parent != nil {
		work.Add(work, parent.work)
	} else {
		work.Add(work, csm.finalizedTipWork)
	}

	return &blockNode{
		block:            block,
		hash:             *blockHash,
		parent:           parent,
		height:           height,
		work:             work,
		diff:             cctx.diff,
		nullifiers:       cctx.nullifiers,
		transactionIndex: transactionIndex,
	}, nil
}

func (csm *contextualStateManager) connectTransaction(cctx *connectContext,
	tx *externalapi.DomainTransaction, txIndex int, blockHeight uint64) error {

	transactionID := consensushashing.TransactionID(tx)

	// The first transaction with no inputs is the coinbase; it creates
	// outputs out of thin air and has no spending side to validate.
	isCoinbase := txIndex == 0 && len(tx.Inputs) == 0

	totalIn, err := csm.connectTransparentInputs(cctx, tx)
	if err != nil {
		return err
	}

	var totalOut uint64
	for outputIndex, output := range tx.Outputs {
		totalOut += output.Value
		outpoint := externalapi.NewDomainOutpoint(transactionID, uint32(outputIndex))
		entry := externalapi.NewUTXOEntry(output.Value, output.ScriptPublicKey, blockHeight, isCoinbase)
		err := cctx.diff.UTXODiff.AddEntry(outpoint, entry)
		if err != nil {
			return err
		}
	}

	// Transparent value balance can only be enforced for transactions that
	// don't touch the shielded pools; shielded value flows are hidden
	// behind the pools' commitments.
	if !isCoinbase && !tx.HasShieldedData() && totalOut > totalIn {
		return ruleerrors.Errorf(ruleerrors.ErrSpendTooHigh,
			"transaction %s spends %d but only provides %d",
			transactionID, totalOut, totalIn)
	}

	if tx.Aurora != nil {
		err := csm.connectShieldedSpends(cctx, externalapi.PoolAurora, auroraSpendsOf(tx))
		if err != nil {
			return err
		}
		for _, output := range tx.Aurora.Outputs {
			commitment := output.Commitment
			cctx.diff.CommitmentsAdded[externalapi.PoolAurora] =
				append(cctx.diff.CommitmentsAdded[externalapi.PoolAurora], &commitment)
		}
	}
	if tx.Borealis != nil {
		err := csm.connectShieldedSpends(cctx, externalapi.PoolBorealis, borealisSpendsOf(tx))
		if err != nil {
			return err
		}
		for _, action := range tx.Borealis.Actions {
			commitment := action.Commitment
			cctx.diff.CommitmentsAdded[externalapi.PoolBorealis] =
				append(cctx.diff.CommitmentsAdded[externalapi.PoolBorealis], &commitment)
		}
	}

	return nil
}

func (csm *contextualStateManager) connectTransparentInputs(cctx *connectContext,
	tx *externalapi.DomainTransaction) (uint64, error) {

	var totalIn uint64
	var missingOutpoints []*externalapi.DomainOutpoint
	for inputIndex, input := range tx.Inputs {
		outpoint := input.PreviousOutpoint

		if _, ok := cctx.spentInBlock[outpoint]; ok {
			return 0, ruleerrors.Errorf(ruleerrors.ErrDoubleSpendInBlock,
				"outpoint %s is spent twice within one block", outpoint)
		}

		// Outputs of earlier transactions in this block are spendable, so
		// resolve through the in-progress diff before the parent view.
		entry, ok := cctx.diff.UTXODiff.ToAdd().Get(&outpoint)
		if !ok {
			var err error
			entry, ok, err = cctx.view.utxoEntry(&outpoint)
			if err != nil {
				return 0, err
			}
		}
		if !ok {
			missingOutpoints = append(missingOutpoints, &input.PreviousOutpoint)
			continue
		}

		err := csm.scriptVerifier.VerifyScript(tx, inputIndex, entry.ScriptPublicKey, entry.Amount)
		if err != nil {
			return 0, ruleerrors.Wrap(ruleerrors.ErrScriptValidation, err)
		}

		totalIn += entry.Amount
		cctx.spentInBlock[outpoint] = struct{}{}
		err = cctx.diff.UTXODiff.RemoveEntry(&outpoint, entry)
		if err != nil {
			return 0, err
		}
	}
	if len(missingOutpoints) > 0 {
		return 0, ruleerrors.NewErrMissingTxOut(missingOutpoints)
	}
	return totalIn, nil
}

// shieldedSpend is the pool-independent view of an aurora spend or a
// borealis action's spending side.
type shieldedSpend struct {
	nullifier externalapi.DomainNullifier
	anchor    externalapi.DomainHash
}

func auroraSpendsOf(tx *externalapi.DomainTransaction) []shieldedSpend {
	spends := make([]shieldedSpend, len(tx.Aurora.Spends))
	for i, spend := range tx.Aurora.Spends {
		spends[i] = shieldedSpend{nullifier: spend.Nullifier, anchor: spend.Anchor}
	}
	return spends
}

func borealisSpendsOf(tx *externalapi.DomainTransaction) []shieldedSpend {
	spends := make([]shieldedSpend, len(tx.Borealis.Actions))
	for i, action := range tx.Borealis.Actions {
		spends[i] = shieldedSpend{nullifier: action.Nullifier, anchor: action.Anchor}
	}
	return spends
}

func (csm *contextualStateManager) connectShieldedSpends(cctx *connectContext,
	pool externalapi.ShieldedPool, spends []shieldedSpend) error {

	poolNullifiers, ok := cctx.nullifiers[pool]
	if !ok {
		poolNullifiers = make(map[externalapi.DomainNullifier]struct{})
		cctx.nullifiers[pool] = poolNullifiers
	}

	for _, spend := range spends {
		if _, ok := poolNullifiers[spend.nullifier]; ok {
			return ruleerrors.Errorf(ruleerrors.ErrDuplicateNullifierInBlock,
				"nullifier %s is revealed twice within one block in the %s pool",
				spend.nullifier, pool)
		}
		spent, err := cctx.view.hasNullifier(pool, &spend.nullifier)
		if err != nil {
			return err
		}
		if spent {
			return ruleerrors.NewErrDuplicateNullifier(pool, spend.nullifier)
		}

		hasAnchor, err := cctx.view.hasAnchor(pool, &spend.anchor)
		if err != nil {
			return err
		}
		if !hasAnchor {
			return ruleerrors.Errorf(ruleerrors.ErrUnknownAnchor,
				"anchor %s was never a commitment root of the %s pool on this chain",
				spend.anchor, pool)
		}

		poolNullifiers[spend.nullifier] = struct{}{}
		cctx.diff.NullifiersAdded[pool] = append(cctx.diff.NullifiersAdded[pool], spend.nullifier)
	}
	return nil
}

// connectCommitments appends the block's note commitments to each pool's
// tree and checks the resulting roots against the header's declared roots.
func (csm *contextualStateManager) connectCommitments(cctx *connectContext,
	block *externalapi.DomainBlock) error {

	for _, pool := range externalapi.ShieldedPools {
		tree, err := cctx.view.tree(pool)
		if err != nil {
			return err
		}
		for _, commitment := range cctx.diff.CommitmentsAdded[pool] {
			err := tree.Append(commitment)
			if err != nil {
				return err
			}
		}

		root := tree.Root()
		declaredRoot := block.Header.CommitmentRoot(pool)
		if !root.Equal(declaredRoot) {
			return ruleerrors.Errorf(ruleerrors.ErrBadCommitmentRoot,
				"the computed %s commitment root %s does not match the declared root %s",
				pool, root, declaredRoot)
		}

		cctx.diff.Trees[pool] = tree
		cctx.diff.Anchors[pool] = root
	}
	return nil
}
