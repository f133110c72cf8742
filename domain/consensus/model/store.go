package model

// Store is a common interface for data stores that support staging. Staged
// data is kept in memory until Commit flushes it to the given database
// transaction; a single transaction spanning all stores makes finalization
// atomic.
type Store interface {
	Discard()
	Commit(dbTx DBTransaction) error
}
