package externalapi

// Consensus maintains the current core state of the node. It is the single
// entry point of the validation pipeline: blocks go in through
// ValidateAndInsertBlock, everything else is a read of the current best
// chain's view.
type Consensus interface {
	// ValidateAndInsertBlock validates the given block semantically and
	// contextually and, if valid, commits it onto its candidate chain.
	// It returns the updated tip information. Rule violations are
	// returned as errors of type ruleerrors.RuleError; they never
	// partially mutate state.
	ValidateAndInsertBlock(block *DomainBlock) (*TipInfo, error)

	// GetTipInfo returns the current best tip and finality point.
	GetTipInfo() (*TipInfo, error)

	// GetBlock returns the block with the given hash, whether finalized
	// or in the non-finalized overlay of any candidate chain.
	GetBlock(blockHash *DomainHash) (*DomainBlock, error)

	// GetBlockByHeight returns the block at the given height on the
	// current best chain.
	GetBlockByHeight(height uint64) (*DomainBlock, error)

	// GetBlockInfo returns info about the block with the given hash.
	// Never returns an error for a missing block; Exists is false
	// instead.
	GetBlockInfo(blockHash *DomainHash) (*BlockInfo, error)

	// GetTransaction returns the transaction with the given ID as
	// observed by the current best chain.
	GetTransaction(transactionID *DomainTransactionID) (*DomainTransaction, error)

	// GetUTXOEntry returns the UTXO entry of the given outpoint as
	// observed by the current best chain, consulting the non-finalized
	// overlay before durable storage. Returns ErrUTXONotFound when the
	// outpoint is absent (never created, or spent).
	GetUTXOEntry(outpoint *DomainOutpoint) (*UTXOEntry, error)

	// HasNullifier returns whether the given nullifier was revealed in
	// the given pool on the current best chain.
	HasNullifier(pool ShieldedPool, nullifier *DomainNullifier) (bool, error)

	// HasAnchor returns whether the given anchor existed in the given
	// pool at some position of the current best chain.
	HasAnchor(pool ShieldedPool, anchor *DomainHash) (bool, error)

	// SubscribeToTipChanges registers a subscriber that is notified on
	// every successful commit, reorg and finality advancement. The
	// returned function unsubscribes. Notifications to slow subscribers
	// are dropped rather than blocking the commit path.
	SubscribeToTipChanges() (notifications <-chan *TipChangedNotification, unsubscribe func())
}
