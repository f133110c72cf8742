package nullifierstore

import (
	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

var bucket = database.MakeBucket([]byte("nullifiers"))

type poolNullifiers map[externalapi.DomainNullifier]struct{}

// nullifierStore represents the finalized nullifier sets, one namespace per
// shielded pool. Entries are only ever added; a finalized nullifier is spent
// forever.
type nullifierStore struct {
	staging map[externalapi.ShieldedPool]poolNullifiers
}

// New instantiates a new NullifierStore.
func New() model.NullifierStore {
	return &nullifierStore{
		staging: make(map[externalapi.ShieldedPool]poolNullifiers),
	}
}

// Stage stages the given nullifiers as spent in the given pool.
func (ns *nullifierStore) Stage(pool externalapi.ShieldedPool, nullifiers []externalapi.DomainNullifier) {
	staged, ok := ns.staging[pool]
	if !ok {
		staged = make(poolNullifiers)
		ns.staging[pool] = staged
	}
	for _, nullifier := range nullifiers {
		staged[nullifier] = struct{}{}
	}
}

func (ns *nullifierStore) IsStaged() bool {
	for _, staged := range ns.staging {
		if len(staged) != 0 {
			return true
		}
	}
	return false
}

func (ns *nullifierStore) Discard() {
	ns.staging = make(map[externalapi.ShieldedPool]poolNullifiers)
}

func (ns *nullifierStore) Commit(dbTx model.DBTransaction) error {
	for pool, staged := range ns.staging {
		for nullifier := range staged {
			nullifier := nullifier
			err := dbTx.Put(ns.nullifierAsKey(pool, &nullifier), []byte{})
			if err != nil {
				return err
			}
		}
	}
	ns.Discard()
	return nil
}

// Has returns whether the given nullifier is spent in the given pool.
func (ns *nullifierStore) Has(dbContext model.DBReader, pool externalapi.ShieldedPool,
	nullifier *externalapi.DomainNullifier) (bool, error) {

	if staged, ok := ns.staging[pool]; ok {
		if _, ok := staged[*nullifier]; ok {
			return true, nil
		}
	}
	return dbContext.Has(ns.nullifierAsKey(pool, nullifier))
}

func (ns *nullifierStore) nullifierAsKey(pool externalapi.ShieldedPool,
	nullifier *externalapi.DomainNullifier) model.DBKey {

	return bucket.Bucket([]byte{byte(pool)}).Key(nullifier[:])
}
