package consensus

import (
	"testing"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/domain/consensus/utils/txscript"
)

func TestForkChoicePrefersMoreWork(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	chainA := newTestChain(&params)
	chainA.addBlock(t, consensusInstance)
	blockA2 := chainA.addBlock(t, consensusInstance)

	// A shorter competing fork is stored but does not move the tip.
	chainB := newTestChain(&params)
	blockB1 := chainB.buildBlock(t, txscript.AnyoneCanSpendScript())
	tipInfo, err := consensusInstance.ValidateAndInsertBlock(blockB1)
	if err != nil {
		t.Fatalf("Failed to insert the fork block: %+v", err)
	}
	chainB.applyBlock(t, blockB1)
	if !tipInfo.TipHash.Equal(consensushashing.BlockHash(blockA2)) {
		t.Errorf("A lighter fork moved the tip to %s", tipInfo.TipHash)
	}

	blockInfo, err := consensusInstance.GetBlockInfo(consensushashing.BlockHash(blockB1))
	if err != nil {
		t.Fatalf("GetBlockInfo(fork block): %+v", err)
	}
	if !blockInfo.Exists || blockInfo.Status != externalapi.StatusValidated {
		t.Errorf("Fork block status is %s, expected validated", blockInfo.Status)
	}
	if blockInfo.IsInBestChain {
		t.Error("A lighter fork block reports itself on the best chain")
	}
}

func TestReorgRoundTrip(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	notifications, unsubscribe := consensusInstance.SubscribeToTipChanges()
	defer unsubscribe()
	// Equal-work ties break toward the lower hash, so a fork may take the
	// tip one block before it strictly overtakes; the reorg notification
	// can arrive on either commit.
	drainedReorg := func() bool {
		reorged := false
		for {
			select {
			case notification := <-notifications:
				reorged = reorged || notification.IsReorg
			default:
				return reorged
			}
		}
	}

	// Chain A carries a transparent spend and a shielded spend.
	key := newTestKey(t)
	chainA := newTestChain(&params)
	fundingBlock := chainA.addBlockPayingTo(t, consensusInstance, key.script)
	fundingOutpoint := coinbaseOutpoint(fundingBlock)

	spend := spendTransaction(t, key, fundingOutpoint, 40_000_000, txscript.AnyoneCanSpendScript())
	emptyRoot := newTestChain(&params).trees[externalapi.PoolAurora].Root()
	shieldedSpend := auroraSpendTransaction(t, 0x77, emptyRoot)
	chainA.addBlock(t, consensusInstance, spend, shieldedSpend)

	spendOutpoint := externalapi.DomainOutpoint{
		TransactionID: *consensushashing.TransactionID(spend),
		Index:         0,
	}
	nullifier := &shieldedSpend.Aurora.Spends[0].Nullifier
	assertChainAState := func(expected bool) {
		t.Helper()
		_, err := consensusInstance.GetUTXOEntry(&spendOutpoint)
		if (err == nil) != expected {
			t.Fatalf("Spend output visible=%t, expected %t (err: %v)", err == nil, expected, err)
		}
		spent, err := consensusInstance.HasNullifier(externalapi.PoolAurora, nullifier)
		if err != nil {
			t.Fatalf("HasNullifier: %+v", err)
		}
		if spent != expected {
			t.Fatalf("Nullifier spent=%t, expected %t", spent, expected)
		}
	}
	assertChainAState(true)
	drainedReorg()

	// Chain B overtakes chain A with three blocks against two.
	chainB := newTestChain(&params)
	chainB.addBlockToFork(t, consensusInstance)
	chainB.addBlockToFork(t, consensusInstance)
	overtakingBlock := chainB.buildBlock(t, txscript.AnyoneCanSpendScript())
	tipInfo, err := consensusInstance.ValidateAndInsertBlock(overtakingBlock)
	if err != nil {
		t.Fatalf("Failed to insert the overtaking block: %+v", err)
	}
	chainB.applyBlock(t, overtakingBlock)
	if !tipInfo.TipHash.Equal(chainB.tipHash) {
		t.Fatalf("Tip is %s, expected chain B's %s", tipInfo.TipHash, chainB.tipHash)
	}

	if !drainedReorg() {
		t.Error("The overtaking commit did not notify a reorg")
	}

	// Chain A's effects are gone: the output it created is unknown and
	// its nullifier is unspent.
	assertChainAState(false)

	// Chain A overtakes back; its effects reappear exactly as before.
	chainA.addBlockToFork(t, consensusInstance)
	returningBlock := chainA.buildBlock(t, txscript.AnyoneCanSpendScript())
	tipInfo, err = consensusInstance.ValidateAndInsertBlock(returningBlock)
	if err != nil {
		t.Fatalf("Failed to reorg back to chain A: %+v", err)
	}
	chainA.applyBlock(t, returningBlock)
	if !tipInfo.TipHash.Equal(chainA.tipHash) {
		t.Fatalf("Tip is %s, expected chain A's %s", tipInfo.TipHash, chainA.tipHash)
	}
	if !drainedReorg() {
		t.Error("The return commit did not notify a reorg")
	}
	assertChainAState(true)
}

func TestForksAreIsolated(t *testing.T) {
	params := chainconfig.SimnetParams
	consensusInstance, teardown := setupTestConsensus(t, &params)
	defer teardown()

	// Both forks share a funding block and spend the same outpoint and
	// the same nullifier. Each fork accepts the spend independently.
	key := newTestKey(t)
	trunk := newTestChain(&params)
	fundingBlock := trunk.addBlockPayingTo(t, consensusInstance, key.script)
	fundingOutpoint := coinbaseOutpoint(fundingBlock)
	emptyRoot := newTestChain(&params).trees[externalapi.PoolAurora].Root()

	forkA := trunk.fork()
	forkB := trunk.fork()

	spendOnA := spendTransaction(t, key, fundingOutpoint, 40_000_000, txscript.AnyoneCanSpendScript())
	shieldedOnA := auroraSpendTransaction(t, 0x33, emptyRoot)
	forkA.addBlockToFork(t, consensusInstance, spendOnA, shieldedOnA)

	spendOnB := spendTransaction(t, key, fundingOutpoint, 39_000_000, txscript.AnyoneCanSpendScript())
	shieldedOnB := auroraSpendTransaction(t, 0x33, emptyRoot)
	forkB.addBlockToFork(t, consensusInstance, spendOnB, shieldedOnB)

	// Extending either fork afterwards still works: each fork's state is
	// its own.
	forkA.addBlockToFork(t, consensusInstance)
	forkB.addBlockToFork(t, consensusInstance)
}

// addBlockToFork builds and submits a block without requiring that it becomes
// the tip.
func (c *testChain) addBlockToFork(t *testing.T, consensusInstance externalapi.Consensus,
	transactions ...*externalapi.DomainTransaction) *externalapi.DomainBlock {

	block := c.buildBlock(t, txscript.AnyoneCanSpendScript(), transactions...)
	_, err := consensusInstance.ValidateAndInsertBlock(block)
	if err != nil {
		t.Fatalf("Failed to insert fork block at height %d: %+v", c.height+1, err)
	}
	c.applyBlock(t, block)
	return block
}
