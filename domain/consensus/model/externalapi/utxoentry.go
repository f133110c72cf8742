package externalapi

import "bytes"

// UTXOEntry houses details about an individual transaction output of the
// transparent pool, such as whether or not it was contained in a coinbase
// transaction, the height of the block that accepted it, its amount and its
// spending condition.
type UTXOEntry struct {
	Amount          uint64
	ScriptPublicKey []byte
	BlockHeight     uint64
	IsCoinbase      bool
}

// NewUTXOEntry creates a new UTXOEntry.
func NewUTXOEntry(amount uint64, scriptPublicKey []byte, blockHeight uint64, isCoinbase bool) *UTXOEntry {
	scriptPublicKeyClone := make([]byte, len(scriptPublicKey))
	copy(scriptPublicKeyClone, scriptPublicKey)
	return &UTXOEntry{
		Amount:          amount,
		ScriptPublicKey: scriptPublicKeyClone,
		BlockHeight:     blockHeight,
		IsCoinbase:      isCoinbase,
	}
}

// Clone returns a clone of UTXOEntry.
func (entry *UTXOEntry) Clone() *UTXOEntry {
	return NewUTXOEntry(entry.Amount, entry.ScriptPublicKey, entry.BlockHeight, entry.IsCoinbase)
}

// Equal returns whether entry equals to other.
func (entry *UTXOEntry) Equal(other *UTXOEntry) bool {
	if entry == nil || other == nil {
		return entry == other
	}
	return entry.Amount == other.Amount &&
		bytes.Equal(entry.ScriptPublicKey, other.ScriptPublicKey) &&
		entry.BlockHeight == other.BlockHeight &&
		entry.IsCoinbase == other.IsCoinbase
}

// OutpointAndUTXOEntryPair is an outpoint along with its respective UTXO
// entry.
type OutpointAndUTXOEntryPair struct {
	Outpoint  *DomainOutpoint
	UTXOEntry *UTXOEntry
}
