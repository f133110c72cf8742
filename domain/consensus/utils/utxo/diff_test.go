package utxo

import (
	"testing"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

func testOutpoint(b byte) *externalapi.DomainOutpoint {
	var arr [externalapi.DomainHashSize]byte
	arr[0] = b
	return externalapi.NewDomainOutpoint(
		externalapi.NewDomainTransactionIDFromByteArray(&arr), 0)
}

func testEntry(amount uint64) *externalapi.UTXOEntry {
	return externalapi.NewUTXOEntry(amount, []byte{0x51}, 1, false)
}

func applyDiff(t *testing.T, set Collection, diff *Diff) Collection {
	result := set.Clone()
	for outpoint := range diff.ToRemove() {
		outpoint := outpoint
		if !result.Contains(&outpoint) {
			t.Fatalf("applyDiff: removing non-existent outpoint %s", outpoint)
		}
		result.Remove(&outpoint)
	}
	for outpoint, entry := range diff.ToAdd() {
		outpoint := outpoint
		if result.Contains(&outpoint) {
			t.Fatalf("applyDiff: adding already-existing outpoint %s", outpoint)
		}
		result.Add(&outpoint, entry)
	}
	return result
}

func collectionsEqual(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	for outpoint, entry := range a {
		outpoint := outpoint
		otherEntry, ok := b.Get(&outpoint)
		if !ok || !entry.Equal(otherEntry) {
			return false
		}
	}
	return true
}

func TestAddRemoveCancelOut(t *testing.T) {
	diff := NewDiff()
	outpoint := testOutpoint(1)
	entry := testEntry(100)

	err := diff.AddEntry(outpoint, entry)
	if err != nil {
		t.Fatalf("AddEntry: %+v", err)
	}
	err = diff.RemoveEntry(outpoint, entry)
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}

	if diff.ToAdd().Len() != 0 || diff.ToRemove().Len() != 0 {
		t.Fatalf("add followed by remove of the same outpoint should cancel out, got %s", diff)
	}
}

// TestWithDiffEquivalentToSequentialApplication checks that applying a
// composed diff is equivalent to applying the two diffs one after the other.
func TestWithDiffEquivalentToSequentialApplication(t *testing.T) {
	base := NewCollection()
	base.Add(testOutpoint(1), testEntry(100))
	base.Add(testOutpoint(2), testEntry(200))

	// First diff spends outpoint 1 and creates outpoint 3.
	first := NewDiff()
	err := first.RemoveEntry(testOutpoint(1), testEntry(100))
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}
	err = first.AddEntry(testOutpoint(3), testEntry(99))
	if err != nil {
		t.Fatalf("AddEntry: %+v", err)
	}

	// Second diff spends the freshly created outpoint 3 and outpoint 2.
	second := NewDiff()
	err = second.RemoveEntry(testOutpoint(3), testEntry(99))
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}
	err = second.RemoveEntry(testOutpoint(2), testEntry(200))
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}
	err = second.AddEntry(testOutpoint(4), testEntry(298))
	if err != nil {
		t.Fatalf("AddEntry: %+v", err)
	}

	sequential := applyDiff(t, applyDiff(t, base, first), second)

	composed, err := first.WithDiff(second)
	if err != nil {
		t.Fatalf("WithDiff: %+v", err)
	}
	composedResult := applyDiff(t, base, composed)

	if !collectionsEqual(sequential, composedResult) {
		t.Fatalf("sequential application %s != composed application %s",
			sequential, composedResult)
	}
}

// TestReversedUndoes checks that applying a diff and then its reversal leaves
// the UTXO set unchanged. This is the property reorgs rely on.
func TestReversedUndoes(t *testing.T) {
	base := NewCollection()
	base.Add(testOutpoint(1), testEntry(100))
	base.Add(testOutpoint(2), testEntry(200))

	diff := NewDiff()
	err := diff.RemoveEntry(testOutpoint(1), testEntry(100))
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}
	err = diff.AddEntry(testOutpoint(3), testEntry(50))
	if err != nil {
		t.Fatalf("AddEntry: %+v", err)
	}

	roundTripped := applyDiff(t, applyDiff(t, base, diff), diff.Reversed())
	if !collectionsEqual(base, roundTripped) {
		t.Fatalf("apply-then-reverse changed the set: %s != %s", base, roundTripped)
	}
}

func TestDoubleRemoveFails(t *testing.T) {
	first := NewDiff()
	err := first.RemoveEntry(testOutpoint(1), testEntry(100))
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}

	second := NewDiff()
	err = second.RemoveEntry(testOutpoint(1), testEntry(100))
	if err != nil {
		t.Fatalf("RemoveEntry: %+v", err)
	}

	_, err = first.WithDiff(second)
	if err == nil {
		t.Fatalf("composing two diffs that remove the same outpoint should fail")
	}
}
