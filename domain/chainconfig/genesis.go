package chainconfig

import (
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/commitmenttree"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
)

// genesisCoinbaseTx is the coinbase transaction for the genesis blocks of
// the main network.
var genesisCoinbaseTx = externalapi.DomainTransaction{
	Version: 1,
	Outputs: []*externalapi.DomainTransactionOutput{{
		Value: 0,
		// The genesis output is unspendable by convention.
		ScriptPublicKey: []byte{0x00},
	}},
}

func newGenesisBlock(timeInMilliseconds int64, bits uint32, nonce uint64) externalapi.DomainBlock {
	coinbase := genesisCoinbaseTx.Clone()
	emptyTreeRoot := commitmenttree.New().Root()
	header := &externalapi.DomainBlockHeader{
		Version:                1,
		ParentHash:             *externalapi.NewZeroHash(),
		TransactionsRoot:       *consensushashing.CalculateTransactionsRoot([]*externalapi.DomainTransaction{coinbase}),
		AuroraCommitmentRoot:   *emptyTreeRoot,
		BorealisCommitmentRoot: *emptyTreeRoot,
		TimeInMilliseconds:     timeInMilliseconds,
		Bits:                   bits,
		Nonce:                  nonce,
	}
	return externalapi.DomainBlock{
		Header:       header,
		Transactions: []*externalapi.DomainTransaction{coinbase},
	}
}

// genesisBlock defines the genesis block of the block chain which serves as
// the public transaction ledger for the main network.
var genesisBlock = newGenesisBlock(0x17e2d5bd964, 0x207fffff, 0x2f83)

// genesisHash is the hash of the first block in the block chain for the main
// network.
var genesisHash = consensushashing.BlockHash(&genesisBlock)

// testnetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the test network.
var testnetGenesisBlock = newGenesisBlock(0x17e2d5bda11, 0x207fffff, 0x162ca)

// testnetGenesisHash is the hash of the first block in the block chain for
// the test network.
var testnetGenesisHash = consensushashing.BlockHash(&testnetGenesisBlock)

// simnetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the simulation network.
var simnetGenesisBlock = newGenesisBlock(0x17e2d5bdad3, 0x207fffff, 0x0)

// simnetGenesisHash is the hash of the first block in the block chain for
// the simulation network.
var simnetGenesisHash = consensushashing.BlockHash(&simnetGenesisBlock)
