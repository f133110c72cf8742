package chainstatestore

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

var (
	chainStateKey     = database.MakeBucket([]byte("chain")).Key([]byte("state"))
	heightIndexBucket = database.MakeBucket([]byte("chain-height-index"))
	hashIndexBucket   = database.MakeBucket([]byte("chain-hash-index"))
)

// chainStateStore represents the finalized chain: the tip record and the
// height-to-hash index.
type chainStateStore struct {
	stagedState   *model.FinalizedChainState
	stagedHeights map[uint64]externalapi.DomainHash

	stateCache *model.FinalizedChainState
}

// New instantiates a new ChainStateStore.
func New() model.ChainStateStore {
	return &chainStateStore{
		stagedHeights: make(map[uint64]externalapi.DomainHash),
	}
}

// StageChainState stages the given state as the new finalized tip record.
func (css *chainStateStore) StageChainState(state *model.FinalizedChainState) {
	css.stagedState = state
}

// StageHashAtHeight stages the given blockHash as the finalized block at the
// given height.
func (css *chainStateStore) StageHashAtHeight(height uint64, blockHash *externalapi.DomainHash) {
	css.stagedHeights[height] = *blockHash
}

func (css *chainStateStore) IsStaged() bool {
	return css.stagedState != nil || len(css.stagedHeights) != 0
}

func (css *chainStateStore) Discard() {
	css.stagedState = nil
	css.stagedHeights = make(map[uint64]externalapi.DomainHash)
}

func (css *chainStateStore) Commit(dbTx model.DBTransaction) error {
	if css.stagedState != nil {
		stateBytes, err := css.serializeChainState(css.stagedState)
		if err != nil {
			return err
		}
		err = dbTx.Put(chainStateKey, stateBytes)
		if err != nil {
			return err
		}
		css.stateCache = css.stagedState
	}
	for height, hash := range css.stagedHeights {
		hash := hash
		err := dbTx.Put(css.heightAsKey(height), hash.ByteSlice())
		if err != nil {
			return err
		}
		var heightBytes [8]byte
		binary.BigEndian.PutUint64(heightBytes[:], height)
		err = dbTx.Put(css.hashAsKey(&hash), heightBytes[:])
		if err != nil {
			return err
		}
	}
	css.Discard()
	return nil
}

// ChainState gets the finalized tip record.
func (css *chainStateStore) ChainState(dbContext model.DBReader) (*model.FinalizedChainState, error) {
	if css.stagedState != nil {
		return css.stagedState, nil
	}
	if css.stateCache != nil {
		return css.stateCache, nil
	}

	stateBytes, err := dbContext.Get(chainStateKey)
	if err != nil {
		return nil, err
	}
	state, err := css.deserializeChainState(stateBytes)
	if err != nil {
		return nil, err
	}
	css.stateCache = state
	return state, nil
}

// HasChainState returns whether a finalized tip record exists. It is false
// only before the genesis block has been finalized into a fresh database.
func (css *chainStateStore) HasChainState(dbContext model.DBReader) (bool, error) {
	if css.stagedState != nil || css.stateCache != nil {
		return true, nil
	}
	return dbContext.Has(chainStateKey)
}

// HashAtHeight gets the hash of the finalized block at the given height.
func (css *chainStateStore) HashAtHeight(dbContext model.DBReader, height uint64) (*externalapi.DomainHash, error) {
	if hash, ok := css.stagedHeights[height]; ok {
		return &hash, nil
	}
	hashBytes, err := dbContext.Get(css.heightAsKey(height))
	if err != nil {
		return nil, err
	}
	return externalapi.NewDomainHashFromByteSlice(hashBytes)
}

// HeightByHash gets the height of the given finalized block.
func (css *chainStateStore) HeightByHash(dbContext model.DBReader, blockHash *externalapi.DomainHash) (uint64, error) {
	for height, hash := range css.stagedHeights {
		if hash.Equal(blockHash) {
			return height, nil
		}
	}
	heightBytes, err := dbContext.Get(css.hashAsKey(blockHash))
	if err != nil {
		return 0, err
	}
	if len(heightBytes) != 8 {
		return 0, errors.Errorf("invalid height index entry length: %d", len(heightBytes))
	}
	return binary.BigEndian.Uint64(heightBytes), nil
}

func (css *chainStateStore) hashAsKey(blockHash *externalapi.DomainHash) model.DBKey {
	return hashIndexBucket.Key(blockHash.ByteSlice())
}

// heightAsKey encodes the height in big endian so that cursor order is
// height order.
func (css *chainStateStore) heightAsKey(height uint64) model.DBKey {
	var keyBytes [8]byte
	binary.BigEndian.PutUint64(keyBytes[:], height)
	return heightIndexBucket.Key(keyBytes[:])
}

func (css *chainStateStore) serializeChainState(state *model.FinalizedChainState) ([]byte, error) {
	buffer := &bytes.Buffer{}
	workBytes := state.TipWork.Bytes()
	err := serialization.WriteElements(buffer, &state.TipHash, state.TipHeight,
		uint64(len(workBytes)))
	if err != nil {
		return nil, err
	}
	_, err = buffer.Write(workBytes)
	if err != nil {
		return nil, err
	}
	err = serialization.WriteElement(buffer, uint64(len(state.UTXOCommitment)))
	if err != nil {
		return nil, err
	}
	_, err = buffer.Write(state.UTXOCommitment)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (css *chainStateStore) deserializeChainState(stateBytes []byte) (*model.FinalizedChainState, error) {
	state := &model.FinalizedChainState{}
	reader := bytes.NewReader(stateBytes)
	var workLength uint64
	err := serialization.ReadElements(reader, &state.TipHash, &state.TipHeight, &workLength)
	if err != nil {
		return nil, err
	}
	workBytes := make([]byte, workLength)
	_, err = io.ReadFull(reader, workBytes)
	if err != nil {
		return nil, err
	}
	state.TipWork = new(big.Int).SetBytes(workBytes)
	var commitmentLength uint64
	err = serialization.ReadElement(reader, &commitmentLength)
	if err != nil {
		return nil, err
	}
	state.UTXOCommitment = make([]byte, commitmentLength)
	_, err = io.ReadFull(reader, state.UTXOCommitment)
	if err != nil {
		return nil, err
	}
	return state, nil
}
