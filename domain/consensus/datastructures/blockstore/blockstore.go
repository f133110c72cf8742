package blockstore

import (
	"bytes"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/lrucache"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

var bucket = database.MakeBucket([]byte("blocks"))

// blockStore represents a store of finalized blocks.
type blockStore struct {
	staging map[externalapi.DomainHash]*externalapi.DomainBlock
	cache   *lrucache.LRUCache
}

// New instantiates a new BlockStore.
func New(cacheSize int) model.BlockStore {
	return &blockStore{
		staging: make(map[externalapi.DomainHash]*externalapi.DomainBlock),
		cache:   lrucache.New(cacheSize),
	}
}

// Stage stages the given block for the given blockHash.
func (bs *blockStore) Stage(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) {
	bs.staging[*blockHash] = block.Clone()
}

func (bs *blockStore) IsStaged() bool {
	return len(bs.staging) != 0
}

func (bs *blockStore) Discard() {
	bs.staging = make(map[externalapi.DomainHash]*externalapi.DomainBlock)
}

func (bs *blockStore) Commit(dbTx model.DBTransaction) error {
	for hash, block := range bs.staging {
		hash := hash
		blockBytes, err := bs.serializeBlock(block)
		if err != nil {
			return err
		}
		err = dbTx.Put(bs.hashAsKey(&hash), blockBytes)
		if err != nil {
			return err
		}
		bs.cache.Add(&hash, block)
	}
	bs.Discard()
	return nil
}

// Block gets the block associated with the given blockHash.
func (bs *blockStore) Block(dbContext model.DBReader, blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	if block, ok := bs.staging[*blockHash]; ok {
		return block.Clone(), nil
	}
	if block, ok := bs.cache.Get(blockHash); ok {
		return block.(*externalapi.DomainBlock).Clone(), nil
	}

	blockBytes, err := dbContext.Get(bs.hashAsKey(blockHash))
	if err != nil {
		return nil, err
	}
	block, err := bs.deserializeBlock(blockBytes)
	if err != nil {
		return nil, err
	}
	bs.cache.Add(blockHash, block)
	return block.Clone(), nil
}

// HasBlock returns whether a block with the given blockHash exists in the
// store.
func (bs *blockStore) HasBlock(dbContext model.DBReader, blockHash *externalapi.DomainHash) (bool, error) {
	if _, ok := bs.staging[*blockHash]; ok {
		return true, nil
	}
	if bs.cache.Has(blockHash) {
		return true, nil
	}
	return dbContext.Has(bs.hashAsKey(blockHash))
}

func (bs *blockStore) hashAsKey(hash *externalapi.DomainHash) model.DBKey {
	return bucket.Key(hash.ByteSlice())
}

func (bs *blockStore) serializeBlock(block *externalapi.DomainBlock) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := serialization.SerializeBlock(buffer, block)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (bs *blockStore) deserializeBlock(blockBytes []byte) (*externalapi.DomainBlock, error) {
	return serialization.DeserializeBlock(bytes.NewReader(blockBytes))
}
