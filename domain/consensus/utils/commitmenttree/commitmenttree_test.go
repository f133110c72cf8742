package commitmenttree

import (
	"bytes"
	"testing"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
)

func leaf(b byte) *externalapi.DomainHash {
	var arr [externalapi.DomainHashSize]byte
	arr[0] = b
	return externalapi.NewDomainHashFromByteArray(&arr)
}

func TestEmptyRoot(t *testing.T) {
	tree := New()
	if !tree.Root().Equal(EmptyRoot()) {
		t.Fatalf("empty tree root %s is not the precomputed empty root %s",
			tree.Root(), EmptyRoot())
	}
	if tree.Size() != 0 {
		t.Fatalf("empty tree has size %d", tree.Size())
	}
}

func TestAppendChangesRoot(t *testing.T) {
	tree := New()
	seen := map[externalapi.DomainHash]struct{}{
		*tree.Root(): {},
	}
	for i := 0; i < 16; i++ {
		err := tree.Append(leaf(byte(i)))
		if err != nil {
			t.Fatalf("Append: %+v", err)
		}
		root := *tree.Root()
		if _, ok := seen[root]; ok {
			t.Fatalf("root repeated after appending leaf %d", i)
		}
		seen[root] = struct{}{}
	}
	if tree.Size() != 16 {
		t.Fatalf("expected size 16, got %d", tree.Size())
	}
}

// TestZeroCommitmentIsNotPadding makes sure the all-zero commitment is a
// real leaf: appending it must change the root, because the padding node for
// absent positions is domain separated from the commitment value space.
func TestZeroCommitmentIsNotPadding(t *testing.T) {
	tree := New()
	err := tree.Append(externalapi.NewZeroHash())
	if err != nil {
		t.Fatalf("Append: %+v", err)
	}
	if tree.Root().Equal(EmptyRoot()) {
		t.Fatalf("appending the zero commitment left the root at the empty root %s",
			EmptyRoot())
	}
	if externalapi.NewZeroHash().Equal(emptyRoots[0]) {
		t.Fatalf("the padding leaf is the zero hash, inside the commitment domain")
	}
}

// TestAppendIntoAlmostFullTree drives the tree through its last legal append.
// The near-full frontier is round-tripped through Deserialize first, the way
// a restored pool tree would arrive at the boundary.
func TestAppendIntoAlmostFullTree(t *testing.T) {
	almostFull := &Tree{size: 1<<Depth - 1}
	for i := 0; i < Depth; i++ {
		almostFull.frontier[i] = leaf(byte(i + 1))
	}

	buffer := &bytes.Buffer{}
	err := almostFull.Serialize(buffer)
	if err != nil {
		t.Fatalf("Serialize: %+v", err)
	}
	restored, err := Deserialize(buffer)
	if err != nil {
		t.Fatalf("Deserialize: %+v", err)
	}

	lastLeaf := leaf(0xfe)
	err = restored.Append(lastLeaf)
	if err != nil {
		t.Fatalf("appending the final leaf of the tree failed: %+v", err)
	}
	if restored.Size() != 1<<Depth {
		t.Fatalf("expected a full tree of %d leaves, got size %d", uint64(1)<<Depth, restored.Size())
	}

	// The full root is the frontier folded up with the final leaf.
	expected := lastLeaf
	for i := 0; i < Depth; i++ {
		expected = consensushashing.MergeCommitmentBranches(almostFull.frontier[i], expected)
	}
	if !restored.Root().Equal(expected) {
		t.Fatalf("full tree root %s != folded frontier root %s", restored.Root(), expected)
	}

	err = restored.Append(leaf(0xff))
	if err == nil {
		t.Fatalf("appending to a full tree unexpectedly succeeded")
	}

	// A full tree still round-trips and keeps its root.
	buffer.Reset()
	err = restored.Serialize(buffer)
	if err != nil {
		t.Fatalf("Serialize: %+v", err)
	}
	restoredFull, err := Deserialize(buffer)
	if err != nil {
		t.Fatalf("Deserialize: %+v", err)
	}
	if !restoredFull.Root().Equal(expected) {
		t.Fatalf("full tree root changed across a round trip: %s != %s",
			restoredFull.Root(), expected)
	}
}

// TestRootMatchesNaiveMerkle cross-checks the frontier against a naive
// bottom-up merkle computation over a fully padded tree.
func TestRootMatchesNaiveMerkle(t *testing.T) {
	for _, numLeaves := range []int{1, 2, 3, 4, 5, 7, 8, 13} {
		tree := New()
		leaves := make([]*externalapi.DomainHash, numLeaves)
		for i := 0; i < numLeaves; i++ {
			leaves[i] = leaf(byte(i + 1))
			err := tree.Append(leaves[i])
			if err != nil {
				t.Fatalf("Append: %+v", err)
			}
		}

		level := leaves
		for depth := 0; depth < Depth; depth++ {
			if len(level)%2 != 0 {
				level = append(level, emptyRoots[depth])
			}
			nextLevel := make([]*externalapi.DomainHash, 0, (len(level)+1)/2)
			for i := 0; i < len(level); i += 2 {
				nextLevel = append(nextLevel,
					consensushashing.MergeCommitmentBranches(level[i], level[i+1]))
			}
			level = nextLevel
		}

		if !tree.Root().Equal(level[0]) {
			t.Fatalf("%d leaves: frontier root %s != naive root %s",
				numLeaves, tree.Root(), level[0])
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tree := New()
	for i := 0; i < 5; i++ {
		err := tree.Append(leaf(byte(i)))
		if err != nil {
			t.Fatalf("Append: %+v", err)
		}
	}
	clone := tree.Clone()
	originalRoot := tree.Root()

	err := clone.Append(leaf(0xff))
	if err != nil {
		t.Fatalf("Append: %+v", err)
	}
	if !tree.Root().Equal(originalRoot) {
		t.Fatalf("appending to a clone mutated the original tree")
	}
	if clone.Root().Equal(originalRoot) {
		t.Fatalf("appending to a clone did not change its root")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tree := New()
	for i := 0; i < 11; i++ {
		err := tree.Append(leaf(byte(i)))
		if err != nil {
			t.Fatalf("Append: %+v", err)
		}
	}

	buffer := &bytes.Buffer{}
	err := tree.Serialize(buffer)
	if err != nil {
		t.Fatalf("Serialize: %+v", err)
	}
	deserialized, err := Deserialize(buffer)
	if err != nil {
		t.Fatalf("Deserialize: %+v", err)
	}

	if deserialized.Size() != tree.Size() {
		t.Fatalf("size mismatch after round trip: %d != %d", deserialized.Size(), tree.Size())
	}
	if !deserialized.Root().Equal(tree.Root()) {
		t.Fatalf("root mismatch after round trip: %s != %s", deserialized.Root(), tree.Root())
	}

	err = deserialized.Append(leaf(0xaa))
	if err != nil {
		t.Fatalf("Append: %+v", err)
	}
	err = tree.Append(leaf(0xaa))
	if err != nil {
		t.Fatalf("Append: %+v", err)
	}
	if !deserialized.Root().Equal(tree.Root()) {
		t.Fatalf("deserialized tree diverged from original after appending")
	}
}
