package model

import "github.com/umbraproject/umbrad/domain/consensus/model/externalapi"

// NullifierStore represents the finalized nullifier sets of the shielded
// pools. A nullifier in this store is spent forever; nullifier sets of
// different pools are disjoint namespaces.
type NullifierStore interface {
	Store
	Stage(pool externalapi.ShieldedPool, nullifiers []externalapi.DomainNullifier)
	IsStaged() bool
	Has(dbContext DBReader, pool externalapi.ShieldedPool, nullifier *externalapi.DomainNullifier) (bool, error)
}
