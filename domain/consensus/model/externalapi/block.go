package externalapi

// DomainBlockHeader represents the header part of a block.
type DomainBlockHeader struct {
	Version uint16

	// ParentHash is the hash of the block this block extends. The zero
	// hash marks the genesis block.
	ParentHash DomainHash

	// TransactionsRoot is the merkle root over the block's transaction
	// IDs. It is guaranteed correct by the structural layer.
	TransactionsRoot DomainHash

	// AuroraCommitmentRoot and BorealisCommitmentRoot are the roots of
	// the pools' note commitment trees after all of this block's outputs
	// have been appended ("anchors").
	AuroraCommitmentRoot   DomainHash
	BorealisCommitmentRoot DomainHash

	TimeInMilliseconds int64
	Bits               uint32
	Nonce              uint64
}

// Clone returns a clone of DomainBlockHeader.
func (header *DomainBlockHeader) Clone() *DomainBlockHeader {
	headerClone := *header
	return &headerClone
}

// CommitmentRoot returns the commitment root the header declares for the
// given shielded pool.
func (header *DomainBlockHeader) CommitmentRoot(pool ShieldedPool) *DomainHash {
	if pool == PoolAurora {
		root := header.AuroraCommitmentRoot
		return &root
	}
	root := header.BorealisCommitmentRoot
	return &root
}

// DomainBlock represents a block. A block is owned exclusively by whichever
// component currently processes it and is passed by shared reference once
// past structural validation; it must never be mutated.
type DomainBlock struct {
	Header       *DomainBlockHeader
	Transactions []*DomainTransaction
}

// Clone returns a clone of DomainBlock.
func (block *DomainBlock) Clone() *DomainBlock {
	transactionsClone := make([]*DomainTransaction, len(block.Transactions))
	for i, tx := range block.Transactions {
		transactionsClone[i] = tx.Clone()
	}
	return &DomainBlock{
		Header:       block.Header.Clone(),
		Transactions: transactionsClone,
	}
}
