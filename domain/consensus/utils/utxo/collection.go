package utxo

import (
	"fmt"
	"strings"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// Collection is a set of transparent UTXO entries indexed by their outpoints.
type Collection map[externalapi.DomainOutpoint]*externalapi.UTXOEntry

// NewCollection creates an empty Collection.
func NewCollection() Collection {
	return Collection{}
}

func (c Collection) String() string {
	utxoStrings := make([]string, 0, len(c))
	for outpoint, entry := range c {
		utxoStrings = append(utxoStrings,
			fmt.Sprintf("(%s, %d) => %d, height: %d", outpoint.TransactionID, outpoint.Index,
				entry.Amount, entry.BlockHeight))
	}
	return "[ " + strings.Join(utxoStrings, ", ") + " ]"
}

// Add adds a new UTXO entry to this collection.
func (c Collection) Add(outpoint *externalapi.DomainOutpoint, entry *externalapi.UTXOEntry) {
	c[*outpoint] = entry
}

// Remove removes a UTXO entry from this collection if it exists.
func (c Collection) Remove(outpoint *externalapi.DomainOutpoint) {
	delete(c, *outpoint)
}

// Get returns the UTXOEntry represented by provided outpoint, and a boolean
// value indicating if said UTXOEntry is in the collection or not.
func (c Collection) Get(outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, bool) {
	entry, ok := c[*outpoint]
	return entry, ok
}

// Contains returns a boolean value indicating whether a UTXO entry is in the
// collection.
func (c Collection) Contains(outpoint *externalapi.DomainOutpoint) bool {
	_, ok := c[*outpoint]
	return ok
}

// Len returns the number of entries in the collection.
func (c Collection) Len() int {
	return len(c)
}

// Clone returns a shallow clone of the collection. Entries are immutable once
// placed in a collection, so they are shared.
func (c Collection) Clone() Collection {
	clone := make(Collection, len(c))
	for outpoint, entry := range c {
		clone[outpoint] = entry
	}
	return clone
}
