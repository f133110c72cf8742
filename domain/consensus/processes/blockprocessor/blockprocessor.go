// Package blockprocessor orchestrates the processing of an incoming block:
// contextual admission, proof of work, semantic verification (skipped under
// checkpoints) and insertion into the state manager, in that order, cheapest
// checks first.
package blockprocessor

import (
	"context"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/domain/consensus/utils/difficulty"
	"github.com/umbraproject/umbrad/infrastructure/logger"
)

// OnTipChangedHandler is called, when set, after every commit that moved the
// best tip.
type OnTipChangedHandler func(notification *externalapi.TipChangedNotification)

type blockProcessor struct {
	params                 *chainconfig.Params
	semanticVerifier       model.SemanticVerifier
	contextualStateManager model.ContextualStateManager
	onTipChanged           OnTipChangedHandler
}

// New creates a new BlockProcessor.
func New(params *chainconfig.Params, semanticVerifier model.SemanticVerifier,
	contextualStateManager model.ContextualStateManager,
	onTipChanged OnTipChangedHandler) model.BlockProcessor {

	return &blockProcessor{
		params:                 params,
		semanticVerifier:       semanticVerifier,
		contextualStateManager: contextualStateManager,
		onTipChanged:           onTipChanged,
	}
}

// ValidateAndInsertBlock runs the block through the full validation pipeline
// and, if it is valid, connects it to chain state. It returns the tip info
// after the insertion.
func (bp *blockProcessor) ValidateAndInsertBlock(ctx context.Context,
	block *externalapi.DomainBlock) (*externalapi.TipInfo, error) {

	blockHash := consensushashing.BlockHash(block)
	onEnd := logger.LogAndMeasureExecutionTime(log, "ValidateAndInsertBlock")
	defer onEnd()
	log.Debugf("Processing block %s", blockHash)

	height, err := bp.contextualStateManager.CheckBlockContext(block, blockHash)
	if err != nil {
		return nil, err
	}

	err = bp.checkProofOfWork(block, blockHash)
	if err != nil {
		bp.contextualStateManager.MarkInvalid(blockHash)
		return nil, err
	}

	// Blocks at or under the top checkpoint chain toward a known good
	// hash, so their signatures are historical facts; skip the expensive
	// crypto and keep only the cheap semantic checks.
	skipCryptoVerification := false
	if checkpoint := bp.params.TopCheckpoint(); checkpoint != nil && height <= checkpoint.Height {
		skipCryptoVerification = true
	}

	err = bp.semanticVerifier.VerifyBlockTransactions(ctx, block, skipCryptoVerification)
	if err != nil {
		if ruleerrors.IsRuleError(err) {
			bp.contextualStateManager.MarkInvalid(blockHash)
			log.Infof("Block %s failed semantic verification: %s", blockHash, err)
		}
		return nil, err
	}

	result, err := bp.contextualStateManager.AddBlock(block, blockHash)
	if err != nil {
		return nil, err
	}

	if result.TipChanged && bp.onTipChanged != nil {
		bp.onTipChanged(&externalapi.TipChangedNotification{
			TipInfo:         result.TipInfo,
			IsReorg:         result.IsReorg,
			FinalizedHashes: result.FinalizedHashes,
		})
	}
	return result.TipInfo, nil
}

// checkProofOfWork verifies that the block hash satisfies its claimed target
// and that the target does not exceed the network's limit.
func (bp *blockProcessor) checkProofOfWork(block *externalapi.DomainBlock,
	blockHash *externalapi.DomainHash) error {

	target := difficulty.CompactToBig(block.Header.Bits)
	if target.Sign() <= 0 || target.Cmp(bp.params.PowMax) > 0 {
		return ruleerrors.Errorf(ruleerrors.ErrInvalidPoW,
			"block %s claims an illegal difficulty target %064x", blockHash, target)
	}
	if difficulty.HashToBig(blockHash).Cmp(target) > 0 {
		return ruleerrors.Errorf(ruleerrors.ErrInvalidPoW,
			"block hash %s is above its claimed difficulty target %064x", blockHash, target)
	}
	return nil
}
