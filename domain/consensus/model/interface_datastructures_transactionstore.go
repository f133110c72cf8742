package model

import "github.com/umbraproject/umbrad/domain/consensus/model/externalapi"

// TransactionLocation points at a transaction inside a finalized block.
type TransactionLocation struct {
	BlockHash externalapi.DomainHash
	Index     uint32
}

// TransactionStore represents an index from transaction IDs to their location
// in finalized blocks.
type TransactionStore interface {
	Store
	Stage(transactionID *externalapi.DomainTransactionID, location *TransactionLocation)
	IsStaged() bool
	Location(dbContext DBReader, transactionID *externalapi.DomainTransactionID) (*TransactionLocation, error)
	Has(dbContext DBReader, transactionID *externalapi.DomainTransactionID) (bool, error)
}
