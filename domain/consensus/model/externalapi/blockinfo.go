package externalapi

import "math/big"

// BlockInfo contains various information about a specific block.
type BlockInfo struct {
	Exists        bool
	Status        BlockStatus
	Height        uint64
	Work          *big.Int
	IsInBestChain bool
}

// Clone returns a clone of BlockInfo.
func (bi *BlockInfo) Clone() *BlockInfo {
	return &BlockInfo{
		Exists:        bi.Exists,
		Status:        bi.Status,
		Height:        bi.Height,
		Work:          new(big.Int).Set(bi.Work),
		IsInBestChain: bi.IsInBestChain,
	}
}
