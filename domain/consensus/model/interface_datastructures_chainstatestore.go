package model

import (
	"math/big"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// FinalizedChainState is the durable record of where the finalized chain
// currently ends.
type FinalizedChainState struct {
	TipHash   externalapi.DomainHash
	TipHeight uint64
	TipWork   *big.Int

	// UTXOCommitment is the ECMH multiset commitment over the finalized
	// transparent UTXO set, serialized.
	UTXOCommitment []byte
}

// ChainStateStore represents the finalized chain: its tip record and the
// height-to-hash index of every finalized block.
type ChainStateStore interface {
	Store
	StageChainState(state *FinalizedChainState)
	StageHashAtHeight(height uint64, blockHash *externalapi.DomainHash)
	IsStaged() bool
	ChainState(dbContext DBReader) (*FinalizedChainState, error)
	HashAtHeight(dbContext DBReader, height uint64) (*externalapi.DomainHash, error)
	HeightByHash(dbContext DBReader, blockHash *externalapi.DomainHash) (uint64, error)
	HasChainState(dbContext DBReader) (bool, error)
}
