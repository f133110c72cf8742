package consensus

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/domain/consensus/utils/txscript"
)

// auroraSpendTransaction builds a transaction revealing one aurora nullifier
// against the given anchor, with a valid authorization signature.
func auroraSpendTransaction(t *testing.T, nullifierFill byte,
	anchor *externalapi.DomainHash) *externalapi.DomainTransaction {

	key := newTestKey(t)
	tx := &externalapi.DomainTransaction{
		Version: 1,
		Aurora: &externalapi.AuroraBundle{
			Spends: []*externalapi.AuroraSpend{{
				Nullifier:     externalapi.DomainNullifier{nullifierFill},
				Anchor:        *anchor,
				RandomizedKey: key.publicKey,
			}},
		},
	}
	tx.Aurora.Spends[0].AuthSignature = key.sign(t, consensushashing.AuroraSpendDigest(tx, 0))
	return tx
}

// auroraOutputTransaction builds a transaction adding one commitment to the
// aurora pool's tree.
func auroraOutputTransaction(commitmentFill byte) *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Version: 1,
		Aurora: &externalapi.AuroraBundle{
			Outputs: []*externalapi.AuroraOutput{{
				Commitment: *hashWithFill(commitmentFill),
			}},
		},
	}
}

// borealisActionTransaction builds a transaction with one borealis action
// spending against the given anchor and adding one commitment.
func borealisActionTransaction(t *testing.T, nullifierFill byte, anchor *externalapi.DomainHash,
	commitmentFill byte) *externalapi.DomainTransaction {

	key := newTestKey(t)
	tx := &externalapi.DomainTransaction{
		Version: 1,
		Borealis: &externalapi.BorealisBundle{
			Actions: []*externalapi.BorealisAction{{
				Nullifier:     externalapi.DomainNullifier{nullifierFill},
				Anchor:        *anchor,
				Commitment:    *hashWithFill(commitmentFill),
				RandomizedKey: key.publicKey,
			}},
		},
	}
	tx.Borealis.Actions[0].AuthSignature = key.sign(t, consensushashing.BorealisActionDigest(tx, 0))
	return tx
}

func hashWithFill(fill byte) *externalapi.DomainHash {
	var hashBytes [externalapi.DomainHashSize]byte
	for i := range hashBytes {
		hashBytes[i] = fill
	}
	return externalapi.NewDomainHashFromByteArray(&hashBytes)
}

func TestUnknownAnchorIsRejected(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	chain := newTestChain(&params)
	spend := auroraSpendTransaction(t, 0x01, hashWithFill(0xab))
	block := chain.buildBlock(t, txscript.AnyoneCanSpendScript(), spend)
	_, err := consensusInstance.ValidateAndInsertBlock(block)
	if !errors.Is(err, ruleerrors.ErrUnknownAnchor) {
		t.Fatalf("Unknown anchor: expected ErrUnknownAnchor, got %+v", err)
	}
}

func TestEmptyTreeRootIsAValidAnchor(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	// The genesis block commits to empty trees, so the empty root is an
	// anchor of every chain from the start.
	chain := newTestChain(&params)
	emptyRoot := chain.trees[externalapi.PoolAurora].Root()
	hasAnchor, err := consensusInstance.HasAnchor(externalapi.PoolAurora, emptyRoot)
	if err != nil {
		t.Fatalf("HasAnchor: %+v", err)
	}
	if !hasAnchor {
		t.Fatal("The empty tree root is not an anchor")
	}

	chain.addBlock(t, consensusInstance, auroraSpendTransaction(t, 0x01, emptyRoot))
}

func TestAnchorsAccumulate(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	chain := newTestChain(&params)
	emptyRoot := *chain.trees[externalapi.PoolAurora].Root()
	chain.addBlock(t, consensusInstance, auroraOutputTransaction(0x11))
	grownRoot := chain.trees[externalapi.PoolAurora].Root()
	if grownRoot.Equal(&emptyRoot) {
		t.Fatal("Appending a commitment did not change the tree root")
	}

	for _, anchor := range []*externalapi.DomainHash{&emptyRoot, grownRoot} {
		hasAnchor, err := consensusInstance.HasAnchor(externalapi.PoolAurora, anchor)
		if err != nil {
			t.Fatalf("HasAnchor(%s): %+v", anchor, err)
		}
		if !hasAnchor {
			t.Errorf("Anchor %s is not recognized", anchor)
		}
	}

	// Both the historical and the current root are spendable anchors.
	chain.addBlock(t, consensusInstance,
		auroraSpendTransaction(t, 0x01, &emptyRoot),
		auroraSpendTransaction(t, 0x02, grownRoot))
}

func TestDuplicateNullifierIsRejected(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	chain := newTestChain(&params)
	emptyRoot := chain.trees[externalapi.PoolAurora].Root()

	const nullifierFill = 0x42
	chain.addBlock(t, consensusInstance, auroraSpendTransaction(t, nullifierFill, emptyRoot))

	spent, err := consensusInstance.HasNullifier(
		externalapi.PoolAurora, &externalapi.DomainNullifier{nullifierFill})
	if err != nil {
		t.Fatalf("HasNullifier: %+v", err)
	}
	if !spent {
		t.Fatal("The revealed nullifier is not reported spent")
	}

	// Revealing the same nullifier again on the same chain is rejected.
	repeatBlock := chain.buildBlock(t, txscript.AnyoneCanSpendScript(),
		auroraSpendTransaction(t, nullifierFill, emptyRoot))
	_, err = consensusInstance.ValidateAndInsertBlock(repeatBlock)
	var duplicate ruleerrors.ErrDuplicateNullifier
	if !errors.As(err, &duplicate) {
		t.Fatalf("Repeated nullifier: expected ErrDuplicateNullifier, got %+v", err)
	}
	if duplicate.Pool != externalapi.PoolAurora ||
		duplicate.Nullifier != (externalapi.DomainNullifier{nullifierFill}) {
		t.Errorf("ErrDuplicateNullifier blames %s in pool %s", duplicate.Nullifier, duplicate.Pool)
	}

	// Revealing the same nullifier twice within one block is also
	// rejected, before either reveal lands.
	conflictBlock := chain.buildBlock(t, txscript.AnyoneCanSpendScript(),
		auroraSpendTransaction(t, 0x43, emptyRoot),
		auroraSpendTransaction(t, 0x43, emptyRoot))
	_, err = consensusInstance.ValidateAndInsertBlock(conflictBlock)
	if !errors.Is(err, ruleerrors.ErrDuplicateNullifierInBlock) {
		t.Fatalf("Intra-block repeated nullifier: expected ErrDuplicateNullifierInBlock, got %+v", err)
	}
}

func TestPoolsTrackNullifiersIndependently(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	chain := newTestChain(&params)
	auroraRoot := chain.trees[externalapi.PoolAurora].Root()
	borealisRoot := chain.trees[externalapi.PoolBorealis].Root()

	// The same nullifier value may be revealed once per pool.
	const nullifierFill = 0x55
	chain.addBlock(t, consensusInstance,
		auroraSpendTransaction(t, nullifierFill, auroraRoot),
		borealisActionTransaction(t, nullifierFill, borealisRoot, 0x66))

	for _, pool := range externalapi.ShieldedPools {
		spent, err := consensusInstance.HasNullifier(
			pool, &externalapi.DomainNullifier{nullifierFill})
		if err != nil {
			t.Fatalf("HasNullifier(%s): %+v", pool, err)
		}
		if !spent {
			t.Errorf("The nullifier is not reported spent in the %s pool", pool)
		}
	}

	// A borealis action grows only the borealis tree.
	emptyAuroraRoot := auroraRoot
	if !chain.trees[externalapi.PoolAurora].Root().Equal(emptyAuroraRoot) {
		t.Error("A borealis action changed the aurora tree root")
	}
	if chain.trees[externalapi.PoolBorealis].Root().Equal(borealisRoot) {
		t.Error("A borealis action did not change the borealis tree root")
	}
}

func TestBorealisActionAnchorsAndCommitments(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	chain := newTestChain(&params)
	emptyRoot := chain.trees[externalapi.PoolBorealis].Root()
	chain.addBlock(t, consensusInstance,
		borealisActionTransaction(t, 0x01, emptyRoot, 0x10))
	grownRoot := chain.trees[externalapi.PoolBorealis].Root()

	// The action's own commitment became a spendable anchor.
	hasAnchor, err := consensusInstance.HasAnchor(externalapi.PoolBorealis, grownRoot)
	if err != nil {
		t.Fatalf("HasAnchor: %+v", err)
	}
	if !hasAnchor {
		t.Fatal("The grown borealis root is not an anchor")
	}
	chain.addBlock(t, consensusInstance,
		borealisActionTransaction(t, 0x02, grownRoot, 0x11))

	// A borealis anchor is not an aurora anchor.
	hasAnchor, err = consensusInstance.HasAnchor(externalapi.PoolAurora, grownRoot)
	if err != nil {
		t.Fatalf("HasAnchor: %+v", err)
	}
	if hasAnchor {
		t.Error("A borealis root is recognized as an aurora anchor")
	}
}
