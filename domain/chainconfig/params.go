package chainconfig

import (
	"math/big"
	"time"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// These variables are the chain proof-of-work limit parameters for each
// default network.
var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowMax is the highest proof of work value an umbra block can
	// have for the main network. It is the value 2^255 - 1.
	mainPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	// testnetPowMax is the highest proof of work value an umbra block
	// can have for the test network. It is the value 2^239 - 1.
	testnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

	// simnetPowMax is the highest proof of work value an umbra block
	// can have for the simulation test network. It is the value
	// 2^255 - 1.
	simnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

const (
	defaultFinalityDepth         = 100
	defaultCryptoBatchSize       = 64
	defaultCryptoBatchMaxLatency = 5 * time.Millisecond

	// timestampDeviationTolerance is the number of recent ancestor blocks
	// over which the past median time is calculated.
	timestampDeviationTolerance = 11
)

// Checkpoint identifies a known good point in the chain. Blocks at or below
// the highest checkpoint height that chain toward a checkpointed hash may
// skip semantic verification during initial sync.
type Checkpoint struct {
	Height uint64
	Hash   *externalapi.DomainHash
}

// Params defines an umbra network by its parameters. These parameters may be
// used by umbra applications to differentiate networks as well as addresses
// and keys for one network from those intended for use on another network.
// The parameter set is supplied once at initialization and is immutable
// thereafter.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *externalapi.DomainBlock

	// GenesisHash is the starting block hash.
	GenesisHash *externalapi.DomainHash

	// PowMax defines the highest allowed proof of work value for a block
	// as a uint256.
	PowMax *big.Int

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// PastMedianTimeWindow is the number of recent ancestor blocks over
	// which the past median time is calculated for the block time rule.
	PastMedianTimeWindow int

	// FinalityDepth is the number of descendant blocks a block must be
	// buried under on the best chain before it is finalized: merged into
	// durable storage and made irreversible.
	FinalityDepth uint64

	// Checkpoints orders known good (height, hash) pairs by height.
	Checkpoints []Checkpoint

	// CryptoBatchSize is the number of crypto items the batch verifier
	// accumulates before flushing.
	CryptoBatchSize int

	// CryptoBatchMaxLatency bounds how long a submitted crypto item may
	// wait for its batch to fill before the batch is flushed anyway.
	CryptoBatchMaxLatency time.Duration

	// MaxTransactionVersion is the highest transaction version this
	// rule set accepts.
	MaxTransactionVersion uint16
}

// TopCheckpoint returns the checkpoint with the greatest height, or nil if
// the network has no checkpoints.
func (p *Params) TopCheckpoint() *Checkpoint {
	if len(p.Checkpoints) == 0 {
		return nil
	}
	return &p.Checkpoints[len(p.Checkpoints)-1]
}

// CheckpointAtHeight returns the checkpoint at the given height, or nil if
// there is none.
func (p *Params) CheckpointAtHeight(height uint64) *Checkpoint {
	for i := range p.Checkpoints {
		if p.Checkpoints[i].Height == height {
			return &p.Checkpoints[i]
		}
	}
	return nil
}

// MainnetParams defines the network parameters for the main umbra network.
var MainnetParams = Params{
	Name: "umbra-mainnet",

	GenesisBlock: &genesisBlock,
	GenesisHash:  genesisHash,

	PowMax:                mainPowMax,
	TargetTimePerBlock:    75 * time.Second,
	PastMedianTimeWindow:  timestampDeviationTolerance,
	FinalityDepth:         defaultFinalityDepth,
	Checkpoints:           nil,
	CryptoBatchSize:       defaultCryptoBatchSize,
	CryptoBatchMaxLatency: defaultCryptoBatchMaxLatency,
	MaxTransactionVersion: 2,
}

// TestnetParams defines the network parameters for the test umbra network.
var TestnetParams = Params{
	Name: "umbra-testnet",

	GenesisBlock: &testnetGenesisBlock,
	GenesisHash:  testnetGenesisHash,

	PowMax:                testnetPowMax,
	TargetTimePerBlock:    75 * time.Second,
	PastMedianTimeWindow:  timestampDeviationTolerance,
	FinalityDepth:         defaultFinalityDepth,
	Checkpoints:           nil,
	CryptoBatchSize:       defaultCryptoBatchSize,
	CryptoBatchMaxLatency: defaultCryptoBatchMaxLatency,
	MaxTransactionVersion: 2,
}

// SimnetParams defines the network parameters for the simulation test umbra
// network. This network is similar to the normal test network except it is
// intended for private use within a group of individuals doing simulation
// testing.
var SimnetParams = Params{
	Name: "umbra-simnet",

	GenesisBlock: &simnetGenesisBlock,
	GenesisHash:  simnetGenesisHash,

	PowMax:                simnetPowMax,
	TargetTimePerBlock:    time.Second,
	PastMedianTimeWindow:  timestampDeviationTolerance,
	FinalityDepth:         10,
	Checkpoints:           nil,
	CryptoBatchSize:       8,
	CryptoBatchMaxLatency: time.Millisecond,
	MaxTransactionVersion: 2,
}
