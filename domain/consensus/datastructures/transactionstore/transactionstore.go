package transactionstore

import (
	"bytes"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/lrucache"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

var bucket = database.MakeBucket([]byte("transaction-locations"))

// transactionStore maps transaction IDs to their location in finalized
// blocks.
type transactionStore struct {
	staging map[externalapi.DomainTransactionID]*model.TransactionLocation
	cache   *lrucache.LRUCache
}

// New instantiates a new TransactionStore.
func New(cacheSize int) model.TransactionStore {
	return &transactionStore{
		staging: make(map[externalapi.DomainTransactionID]*model.TransactionLocation),
		cache:   lrucache.New(cacheSize),
	}
}

// Stage stages the given location for the given transactionID.
func (ts *transactionStore) Stage(transactionID *externalapi.DomainTransactionID, location *model.TransactionLocation) {
	ts.staging[*transactionID] = location
}

func (ts *transactionStore) IsStaged() bool {
	return len(ts.staging) != 0
}

func (ts *transactionStore) Discard() {
	ts.staging = make(map[externalapi.DomainTransactionID]*model.TransactionLocation)
}

func (ts *transactionStore) Commit(dbTx model.DBTransaction) error {
	for transactionID, location := range ts.staging {
		transactionID := transactionID
		locationBytes, err := ts.serializeLocation(location)
		if err != nil {
			return err
		}
		err = dbTx.Put(ts.transactionIDAsKey(&transactionID), locationBytes)
		if err != nil {
			return err
		}
		ts.cache.Add((*externalapi.DomainHash)(&transactionID), location)
	}
	ts.Discard()
	return nil
}

// Location gets the location associated with the given transactionID.
func (ts *transactionStore) Location(dbContext model.DBReader,
	transactionID *externalapi.DomainTransactionID) (*model.TransactionLocation, error) {

	if location, ok := ts.staging[*transactionID]; ok {
		return location, nil
	}
	if location, ok := ts.cache.Get((*externalapi.DomainHash)(transactionID)); ok {
		return location.(*model.TransactionLocation), nil
	}

	locationBytes, err := dbContext.Get(ts.transactionIDAsKey(transactionID))
	if err != nil {
		return nil, err
	}
	location, err := ts.deserializeLocation(locationBytes)
	if err != nil {
		return nil, err
	}
	ts.cache.Add((*externalapi.DomainHash)(transactionID), location)
	return location, nil
}

// Has returns whether the given transactionID is indexed.
func (ts *transactionStore) Has(dbContext model.DBReader, transactionID *externalapi.DomainTransactionID) (bool, error) {
	if _, ok := ts.staging[*transactionID]; ok {
		return true, nil
	}
	if ts.cache.Has((*externalapi.DomainHash)(transactionID)) {
		return true, nil
	}
	return dbContext.Has(ts.transactionIDAsKey(transactionID))
}

func (ts *transactionStore) transactionIDAsKey(transactionID *externalapi.DomainTransactionID) model.DBKey {
	return bucket.Key(transactionID.ByteSlice())
}

func (ts *transactionStore) serializeLocation(location *model.TransactionLocation) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := serialization.WriteElements(buffer, &location.BlockHash, location.Index)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (ts *transactionStore) deserializeLocation(locationBytes []byte) (*model.TransactionLocation, error) {
	location := &model.TransactionLocation{}
	reader := bytes.NewReader(locationBytes)
	err := serialization.ReadElements(reader, &location.BlockHash, &location.Index)
	if err != nil {
		return nil, err
	}
	return location, nil
}
