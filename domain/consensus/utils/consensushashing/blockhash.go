package consensushashing

import (
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

// BlockHash returns the given block's hash.
func BlockHash(block *externalapi.DomainBlock) *externalapi.DomainHash {
	return HeaderHash(block.Header)
}

// HeaderHash returns the given header's hash.
func HeaderHash(header *externalapi.DomainBlockHeader) *externalapi.DomainHash {
	writer := newHashWriter(blockHashKey)
	err := serialization.WriteElements(writer,
		header.Version,
		&header.ParentHash,
		&header.TransactionsRoot,
		&header.AuroraCommitmentRoot,
		&header.BorealisCommitmentRoot,
		header.TimeInMilliseconds,
		header.Bits,
		header.Nonce,
	)
	if err != nil {
		// That's impossible, this writer can never fail.
		panic(err)
	}
	return writer.Finalize()
}

// CalculateTransactionsRoot calculates the merkle root over the given
// transactions' IDs.
func CalculateTransactionsRoot(transactions []*externalapi.DomainTransaction) *externalapi.DomainHash {
	if len(transactions) == 0 {
		return externalapi.NewZeroHash()
	}

	level := make([]*externalapi.DomainHash, len(transactions))
	for i, tx := range transactions {
		level[i] = (*externalapi.DomainHash)(TransactionID(tx))
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		nextLevel := make([]*externalapi.DomainHash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			nextLevel[i/2] = HashMerkleBranches(level[i], level[i+1])
		}
		level = nextLevel
	}
	return level[0]
}
