// Package utxo implements the diff algebra the state engine uses to describe
// how a block (or a whole chain segment) changes the transparent UTXO set.
// Diffs compose: applying block diffs in order is equivalent to applying
// their composition, and every diff has a reversal that undoes it.
package utxo

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// Diff represents the difference between two UTXO sets: the entries that have
// to be added and the entries that have to be removed to get from the base
// set to the target set.
type Diff struct {
	toAdd    Collection
	toRemove Collection
}

// NewDiff creates an empty Diff.
func NewDiff() *Diff {
	return &Diff{
		toAdd:    NewCollection(),
		toRemove: NewCollection(),
	}
}

// ToAdd returns the collection of entries this diff adds.
func (d *Diff) ToAdd() Collection {
	return d.toAdd
}

// ToRemove returns the collection of entries this diff removes.
func (d *Diff) ToRemove() Collection {
	return d.toRemove
}

func (d *Diff) String() string {
	return fmt.Sprintf("toAdd: %s; toRemove: %s", d.toAdd, d.toRemove)
}

// Clone returns a clone of this diff.
func (d *Diff) Clone() *Diff {
	return &Diff{
		toAdd:    d.toAdd.Clone(),
		toRemove: d.toRemove.Clone(),
	}
}

// AddEntry adds a UTXO entry to the diff. If the entry was previously
// removed by this diff the two cancel out.
func (d *Diff) AddEntry(outpoint *externalapi.DomainOutpoint, entry *externalapi.UTXOEntry) error {
	if d.toRemove.Contains(outpoint) {
		d.toRemove.Remove(outpoint)
		return nil
	}
	if d.toAdd.Contains(outpoint) {
		return errors.Errorf("AddEntry: outpoint %s both added and re-added", outpoint)
	}
	d.toAdd.Add(outpoint, entry)
	return nil
}

// RemoveEntry removes a UTXO entry from the diff. If the entry was previously
// added by this diff the two cancel out.
func (d *Diff) RemoveEntry(outpoint *externalapi.DomainOutpoint, entry *externalapi.UTXOEntry) error {
	if d.toAdd.Contains(outpoint) {
		d.toAdd.Remove(outpoint)
		return nil
	}
	if d.toRemove.Contains(outpoint) {
		return errors.Errorf("RemoveEntry: outpoint %s removed twice", outpoint)
	}
	d.toRemove.Add(outpoint, entry)
	return nil
}

// Reversed returns a diff that undoes this diff: applying d and then
// d.Reversed() to any UTXO set leaves the set unchanged.
func (d *Diff) Reversed() *Diff {
	return &Diff{
		toAdd:    d.toRemove.Clone(),
		toRemove: d.toAdd.Clone(),
	}
}

// WithDiff composes this diff with another diff applied after it, returning a
// single diff equivalent to applying d and then other.
func (d *Diff) WithDiff(other *Diff) (*Diff, error) {
	result := d.Clone()
	err := result.WithDiffInPlace(other)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WithDiffInPlace composes other into this diff in place. See WithDiff.
func (d *Diff) WithDiffInPlace(other *Diff) error {
	for outpoint, entry := range other.toRemove {
		outpoint := outpoint
		if d.toAdd.Contains(&outpoint) {
			// d added it, other removes it: they cancel out.
			d.toAdd.Remove(&outpoint)
			continue
		}
		if d.toRemove.Contains(&outpoint) {
			return errors.Errorf("WithDiffInPlace: outpoint %s removed by both diffs", outpoint)
		}
		d.toRemove.Add(&outpoint, entry)
	}

	for outpoint, entry := range other.toAdd {
		outpoint := outpoint
		if d.toRemove.Contains(&outpoint) {
			// d removed it, other re-adds it: they cancel out.
			d.toRemove.Remove(&outpoint)
			continue
		}
		if d.toAdd.Contains(&outpoint) {
			return errors.Errorf("WithDiffInPlace: outpoint %s added by both diffs", outpoint)
		}
		d.toAdd.Add(&outpoint, entry)
	}

	return nil
}
