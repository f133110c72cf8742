package externalapi

import "math/big"

// TipInfo describes the current best tip of the chain along with the
// finality point everything above it is anchored to.
type TipInfo struct {
	TipHash   *DomainHash
	TipHeight uint64
	TipWork   *big.Int

	FinalityPointHash   *DomainHash
	FinalityPointHeight uint64
}

// Clone returns a clone of TipInfo.
func (ti *TipInfo) Clone() *TipInfo {
	return &TipInfo{
		TipHash:             ti.TipHash,
		TipHeight:           ti.TipHeight,
		TipWork:             new(big.Int).Set(ti.TipWork),
		FinalityPointHash:   ti.FinalityPointHash,
		FinalityPointHeight: ti.FinalityPointHeight,
	}
}

// TipChangedNotification fires on every successful block commit, reorg, and
// finality advancement.
type TipChangedNotification struct {
	TipInfo *TipInfo

	// IsReorg is true when the new tip does not extend the previous one.
	IsReorg bool

	// FinalizedHashes lists the blocks that became finalized as part of
	// this commit, in ascending height order. Usually empty.
	FinalizedHashes []*DomainHash
}
