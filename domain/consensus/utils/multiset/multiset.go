// Package multiset wraps an ECMH multiset to commit to the contents of the
// finalized UTXO set. Because the multiset is commutative, entries can be
// added and removed in any order and the commitment stays equal to hashing
// the final set, which is what lets finalization update it incrementally.
package multiset

import (
	"github.com/kaspanet/go-muhash"
	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// Multiset is an unordered collection of byte strings with an incremental
// hash commitment.
type Multiset struct {
	ms *muhash.MuHash
}

// New returns an empty multiset.
func New() *Multiset {
	return &Multiset{ms: muhash.NewMuHash()}
}

// Add adds the given data to this multiset.
func (m *Multiset) Add(data []byte) {
	m.ms.Add(data)
}

// Remove removes the given data from this multiset.
func (m *Multiset) Remove(data []byte) {
	m.ms.Remove(data)
}

// Hash returns the commitment to this multiset's contents.
func (m *Multiset) Hash() *externalapi.DomainHash {
	finalized := m.ms.Finalize()
	return externalapi.NewDomainHashFromByteArray(finalized.AsArray())
}

// Clone returns a copy of this multiset.
func (m *Multiset) Clone() *Multiset {
	return &Multiset{ms: m.ms.Clone()}
}

// Serialize returns the serialized representation of this multiset.
func (m *Multiset) Serialize() []byte {
	return m.ms.Serialize()[:]
}

// FromBytes deserializes a multiset previously serialized with Serialize.
func FromBytes(serialized []byte) (*Multiset, error) {
	if len(serialized) != muhash.SerializedMuHashSize {
		return nil, errors.Errorf("invalid serialized multiset length: want %d, got %d",
			muhash.SerializedMuHashSize, len(serialized))
	}
	var su muhash.SerializedMuHash
	copy(su[:], serialized)
	ms, err := muhash.DeserializeMuHash(&su)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Multiset{ms: ms}, nil
}
