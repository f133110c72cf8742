package model

import (
	"math/big"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// FinalizationEntry is one block about to be finalized, along with everything
// the durable stores need to absorb it.
type FinalizationEntry struct {
	Block     *externalapi.DomainBlock
	BlockHash *externalapi.DomainHash
	Height    uint64
	Work      *big.Int
	Diff      *BlockStateDiff
}

// FinalityManager merges finalized blocks into the durable stores. The whole
// batch is written in one database transaction, so a crash either leaves the
// previous finalized state intact or the new one complete, never anything in
// between.
type FinalityManager interface {
	FinalizeBlocks(entries []*FinalizationEntry) error
}
