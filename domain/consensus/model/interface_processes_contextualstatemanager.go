package model

import "github.com/umbraproject/umbrad/domain/consensus/model/externalapi"

// BlockInsertionResult is the result of inserting a block into the state
// manager.
type BlockInsertionResult struct {
	TipChanged      bool
	IsReorg         bool
	TipInfo         *externalapi.TipInfo
	FinalizedHashes []*externalapi.DomainHash
}

// ContextualStateManager manages everything that requires chain context: the
// arena of non-finalized blocks, fork choice, per-fork UTXO/nullifier/
// commitment state, and triggering finalization when blocks sink deep enough
// under the best tip.
type ContextualStateManager interface {
	// CheckBlockContext runs the contextual admission checks that precede
	// semantic verification (duplicate, known-invalid, missing parent,
	// checkpoint hash) and returns the block's height.
	CheckBlockContext(block *externalapi.DomainBlock, blockHash *externalapi.DomainHash) (uint64, error)

	// AddBlock connects a semantically-valid block to chain state. The block
	// must have passed CheckBlockContext in the same processing cycle.
	AddBlock(block *externalapi.DomainBlock, blockHash *externalapi.DomainHash) (*BlockInsertionResult, error)

	// MarkInvalid records a terminal validation verdict for a block that
	// failed outside of AddBlock.
	MarkInvalid(blockHash *externalapi.DomainHash)

	TipInfo() *externalapi.TipInfo
	BlockInfo(blockHash *externalapi.DomainHash) (*externalapi.BlockInfo, error)
	Block(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error)
	BlockByHeight(height uint64) (*externalapi.DomainBlock, error)
	TransactionByID(transactionID *externalapi.DomainTransactionID) (*externalapi.DomainTransaction, error)

	// UTXOEntry, HasNullifier and HasAnchor query the state as seen from the
	// current best tip.
	UTXOEntry(outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, error)
	HasNullifier(pool externalapi.ShieldedPool, nullifier *externalapi.DomainNullifier) (bool, error)
	HasAnchor(pool externalapi.ShieldedPool, anchor *externalapi.DomainHash) (bool, error)
}
