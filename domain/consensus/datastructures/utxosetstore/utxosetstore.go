package utxosetstore

import (
	"bytes"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
	"github.com/umbraproject/umbrad/domain/consensus/utils/utxo"
)

var bucket = database.MakeBucket([]byte("utxo-set"))

// utxoSetStore represents the finalized transparent UTXO set. Changes are
// staged as a single composed diff and applied entry by entry on commit.
type utxoSetStore struct {
	stagedDiff *utxo.Diff
}

// New instantiates a new UTXOSetStore.
func New() model.UTXOSetStore {
	return &utxoSetStore{}
}

// StageDiff stages the given diff on top of any previously staged diff.
func (uss *utxoSetStore) StageDiff(diff *utxo.Diff) {
	if uss.stagedDiff == nil {
		uss.stagedDiff = diff.Clone()
		return
	}
	err := uss.stagedDiff.WithDiffInPlace(diff)
	if err != nil {
		// Diffs along one chain always compose; a conflict here means the
		// caller staged diffs from different forks.
		panic(err)
	}
}

func (uss *utxoSetStore) IsStaged() bool {
	return uss.stagedDiff != nil
}

func (uss *utxoSetStore) Discard() {
	uss.stagedDiff = nil
}

func (uss *utxoSetStore) Commit(dbTx model.DBTransaction) error {
	if uss.stagedDiff == nil {
		return nil
	}
	for outpoint := range uss.stagedDiff.ToRemove() {
		outpoint := outpoint
		err := dbTx.Delete(uss.outpointAsKey(&outpoint))
		if err != nil {
			return err
		}
	}
	for outpoint, entry := range uss.stagedDiff.ToAdd() {
		outpoint := outpoint
		entryBytes, err := uss.serializeUTXOEntry(entry)
		if err != nil {
			return err
		}
		err = dbTx.Put(uss.outpointAsKey(&outpoint), entryBytes)
		if err != nil {
			return err
		}
	}
	uss.Discard()
	return nil
}

// UTXOEntry gets the entry associated with the given outpoint.
func (uss *utxoSetStore) UTXOEntry(dbContext model.DBReader,
	outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, error) {

	if uss.stagedDiff != nil {
		if entry, ok := uss.stagedDiff.ToAdd().Get(outpoint); ok {
			return entry, nil
		}
		if uss.stagedDiff.ToRemove().Contains(outpoint) {
			return nil, database.ErrNotFound
		}
	}

	entryBytes, err := dbContext.Get(uss.outpointAsKey(outpoint))
	if err != nil {
		return nil, err
	}
	return uss.deserializeUTXOEntry(entryBytes)
}

// HasUTXOEntry returns whether the given outpoint is unspent.
func (uss *utxoSetStore) HasUTXOEntry(dbContext model.DBReader, outpoint *externalapi.DomainOutpoint) (bool, error) {
	if uss.stagedDiff != nil {
		if uss.stagedDiff.ToAdd().Contains(outpoint) {
			return true, nil
		}
		if uss.stagedDiff.ToRemove().Contains(outpoint) {
			return false, nil
		}
	}
	return dbContext.Has(uss.outpointAsKey(outpoint))
}

func (uss *utxoSetStore) outpointAsKey(outpoint *externalapi.DomainOutpoint) model.DBKey {
	buffer := &bytes.Buffer{}
	err := serialization.SerializeOutpoint(buffer, outpoint)
	if err != nil {
		// Writing to a bytes.Buffer never fails.
		panic(err)
	}
	return bucket.Key(buffer.Bytes())
}

func (uss *utxoSetStore) serializeUTXOEntry(entry *externalapi.UTXOEntry) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := serialization.SerializeUTXOEntry(buffer, entry)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (uss *utxoSetStore) deserializeUTXOEntry(entryBytes []byte) (*externalapi.UTXOEntry, error) {
	return serialization.DeserializeUTXOEntry(bytes.NewReader(entryBytes))
}
