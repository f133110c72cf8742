// Package commitmenttree implements the append-only note commitment tree of a
// shielded pool as an incremental merkle frontier. Only the rightmost path of
// the tree is materialized, so appending and computing the root are both
// O(depth) regardless of how many notes the pool holds.
package commitmenttree

import (
	"io"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

// Depth is the fixed depth of the commitment tree. The tree can hold up to
// 2^Depth note commitments.
const Depth = 32

// emptyRoots[i] is the root of a complete subtree of depth i whose leaves are
// all the uncommitted padding leaf. The padding leaf is domain separated from
// real note commitments, so appending any commitment always changes the root.
var emptyRoots [Depth + 1]*externalapi.DomainHash

func init() {
	emptyRoots[0] = consensushashing.UncommittedLeaf()
	for i := 0; i < Depth; i++ {
		emptyRoots[i+1] = consensushashing.MergeCommitmentBranches(emptyRoots[i], emptyRoots[i])
	}
}

// EmptyRoot returns the root of a tree with no commitments appended.
func EmptyRoot() *externalapi.DomainHash {
	return emptyRoots[Depth]
}

// Tree is an incremental merkle frontier. frontier[i], when non-nil, is the
// root of a complete left subtree of depth i waiting for its right sibling,
// exactly like the set bits of a binary counter of the tree's size.
type Tree struct {
	frontier [Depth]*externalapi.DomainHash
	size     uint64
}

// New returns an empty commitment tree.
func New() *Tree {
	return &Tree{}
}

// Size returns the number of commitments appended so far.
func (t *Tree) Size() uint64 {
	return t.size
}

// Append adds a note commitment as the next leaf of the tree. It returns an
// error if the tree is full.
func (t *Tree) Append(commitment *externalapi.DomainHash) error {
	if t.size == 1<<Depth {
		return errors.Errorf("commitment tree is full (%d leaves)", t.size)
	}

	node := commitment
	for level := 0; ; level++ {
		if t.frontier[level] == nil {
			t.frontier[level] = node
			break
		}
		if level == Depth-1 {
			// The last leaf of a full tree carries all the way up. The
			// complete root is pinned in the top frontier slot; Root
			// returns it directly and the size guard above rejects any
			// further append.
			t.frontier[level] = consensushashing.MergeCommitmentBranches(t.frontier[level], node)
			break
		}
		node = consensushashing.MergeCommitmentBranches(t.frontier[level], node)
		t.frontier[level] = nil
	}
	t.size++
	return nil
}

// Root returns the current root of the tree, padding incomplete subtrees with
// empty roots.
func (t *Tree) Root() *externalapi.DomainHash {
	if t.size == 1<<Depth {
		// A full tree keeps its complete root in the top frontier slot.
		return t.frontier[Depth-1]
	}
	acc := emptyRoots[0]
	for level := 0; level < Depth; level++ {
		if t.frontier[level] != nil {
			acc = consensushashing.MergeCommitmentBranches(t.frontier[level], acc)
		} else {
			acc = consensushashing.MergeCommitmentBranches(acc, emptyRoots[level])
		}
	}
	return acc
}

// Clone returns a deep copy of the tree. The frontier hashes themselves are
// immutable, so they are shared.
func (t *Tree) Clone() *Tree {
	clone := &Tree{size: t.size}
	copy(clone.frontier[:], t.frontier[:])
	return clone
}

// Serialize writes the tree to w.
func (t *Tree) Serialize(w io.Writer) error {
	err := serialization.WriteElement(w, t.size)
	if err != nil {
		return err
	}
	for _, node := range t.frontier {
		err := serialization.WriteElement(w, node != nil)
		if err != nil {
			return err
		}
		if node != nil {
			err := serialization.WriteElement(w, node)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Deserialize reads a tree previously written with Serialize from r.
func Deserialize(r io.Reader) (*Tree, error) {
	tree := &Tree{}
	err := serialization.ReadElement(r, &tree.size)
	if err != nil {
		return nil, err
	}
	for i := 0; i < Depth; i++ {
		var present bool
		err := serialization.ReadElement(r, &present)
		if err != nil {
			return nil, err
		}
		if present {
			node := &externalapi.DomainHash{}
			err := serialization.ReadElement(r, node)
			if err != nil {
				return nil, err
			}
			tree.frontier[i] = node
		}
	}
	return tree, nil
}
