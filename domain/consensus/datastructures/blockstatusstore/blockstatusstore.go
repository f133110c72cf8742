package blockstatusstore

import (
	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/lrucache"
)

var bucket = database.MakeBucket([]byte("block-statuses"))

// blockStatusStore represents a store of BlockStatuses.
type blockStatusStore struct {
	staging map[externalapi.DomainHash]externalapi.BlockStatus
	cache   *lrucache.LRUCache
}

// New instantiates a new BlockStatusStore.
func New(cacheSize int) model.BlockStatusStore {
	return &blockStatusStore{
		staging: make(map[externalapi.DomainHash]externalapi.BlockStatus),
		cache:   lrucache.New(cacheSize),
	}
}

// Stage stages the given blockStatus for the given blockHash.
func (bss *blockStatusStore) Stage(blockHash *externalapi.DomainHash, blockStatus externalapi.BlockStatus) {
	bss.staging[*blockHash] = blockStatus
}

func (bss *blockStatusStore) IsStaged() bool {
	return len(bss.staging) != 0
}

func (bss *blockStatusStore) Discard() {
	bss.staging = make(map[externalapi.DomainHash]externalapi.BlockStatus)
}

func (bss *blockStatusStore) Commit(dbTx model.DBTransaction) error {
	for hash, status := range bss.staging {
		hash := hash
		err := dbTx.Put(bss.hashAsKey(&hash), []byte{byte(status)})
		if err != nil {
			return err
		}
		bss.cache.Add(&hash, status)
	}
	bss.Discard()
	return nil
}

// Get gets the blockStatus associated with the given blockHash.
func (bss *blockStatusStore) Get(dbContext model.DBReader, blockHash *externalapi.DomainHash) (externalapi.BlockStatus, error) {
	if status, ok := bss.staging[*blockHash]; ok {
		return status, nil
	}
	if status, ok := bss.cache.Get(blockHash); ok {
		return status.(externalapi.BlockStatus), nil
	}

	statusBytes, err := dbContext.Get(bss.hashAsKey(blockHash))
	if err != nil {
		return 0, err
	}
	if len(statusBytes) != 1 {
		return 0, errors.Errorf("invalid block status length: %d", len(statusBytes))
	}
	status := externalapi.BlockStatus(statusBytes[0])
	bss.cache.Add(blockHash, status)
	return status, nil
}

// Exists returns true if the blockStatus for the given blockHash exists.
func (bss *blockStatusStore) Exists(dbContext model.DBReader, blockHash *externalapi.DomainHash) (bool, error) {
	if _, ok := bss.staging[*blockHash]; ok {
		return true, nil
	}
	if bss.cache.Has(blockHash) {
		return true, nil
	}
	return dbContext.Has(bss.hashAsKey(blockHash))
}

func (bss *blockStatusStore) hashAsKey(hash *externalapi.DomainHash) model.DBKey {
	return bucket.Key(hash.ByteSlice())
}
