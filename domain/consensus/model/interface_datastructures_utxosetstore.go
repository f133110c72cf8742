package model

import (
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/utxo"
)

// UTXOSetStore represents the finalized transparent UTXO set.
type UTXOSetStore interface {
	Store
	StageDiff(diff *utxo.Diff)
	IsStaged() bool
	UTXOEntry(dbContext DBReader, outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, error)
	HasUTXOEntry(dbContext DBReader, outpoint *externalapi.DomainOutpoint) (bool, error)
}
