package batchverifier

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
)

func randomDigest(t *testing.T) *externalapi.DomainHash {
	var digestBytes [externalapi.DomainHashSize]byte
	_, err := rand.Read(digestBytes[:])
	if err != nil {
		t.Fatalf("Failed to generate a random digest: %v", err)
	}
	return externalapi.NewDomainHashFromByteArray(&digestBytes)
}

func validItem(t *testing.T, transactionID externalapi.DomainTransactionID, itemIndex int) *model.CryptoItem {
	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate a private key: %v", err)
	}
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("Failed to derive the public key: %v", err)
	}
	serializedPublicKey, err := publicKey.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize the public key: %v", err)
	}

	digest := randomDigest(t)
	secpDigest := secp256k1.Hash(*digest.ByteArray())
	signature, err := keyPair.SchnorrSign(&secpDigest)
	if err != nil {
		t.Fatalf("Failed to sign the digest: %v", err)
	}

	item := &model.CryptoItem{
		Tag:           model.CryptoItemTransparentInput,
		Digest:        *digest,
		TransactionID: transactionID,
		ItemIndex:     itemIndex,
	}
	copy(item.PublicKey[:], serializedPublicKey[:])
	copy(item.Signature[:], signature.Serialize()[:])
	return item
}

func forgedItem(t *testing.T, transactionID externalapi.DomainTransactionID, itemIndex int) *model.CryptoItem {
	item := validItem(t, transactionID, itemIndex)
	// Corrupt the digest so the signature no longer covers it.
	item.Digest = *randomDigest(t)
	return item
}

func testTransactionID(fill byte) externalapi.DomainTransactionID {
	var idBytes [externalapi.DomainHashSize]byte
	for i := range idBytes {
		idBytes[i] = fill
	}
	return *externalapi.NewDomainTransactionIDFromByteArray(&idBytes)
}

func TestBatchMatchesIndividualVerification(t *testing.T) {
	const numItems = 20
	forged := map[int]bool{3: true, 11: true}

	items := make([]*model.CryptoItem, numItems)
	for i := 0; i < numItems; i++ {
		if forged[i] {
			items[i] = forgedItem(t, testTransactionID(byte(i)), i)
		} else {
			items[i] = validItem(t, testTransactionID(byte(i)), i)
		}
	}

	// Individual verification is the reference verdict.
	individualVerdicts := make([]error, numItems)
	for i, item := range items {
		individualVerdicts[i] = verifyItem(item)
	}

	scheduler := New(8, 5*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	batchedVerdicts := make([]error, numItems)
	var wg sync.WaitGroup
	for i := range items {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			batchedVerdicts[i] = <-scheduler.Submit(context.Background(), items[i])
		}()
	}
	wg.Wait()

	for i := range items {
		individual, batched := individualVerdicts[i], batchedVerdicts[i]
		if (individual == nil) != (batched == nil) {
			t.Errorf("Item %d: batched verdict %v differs from individual verdict %v",
				i, batched, individual)
			continue
		}
		if individual == nil {
			continue
		}
		var individualFailure, batchedFailure ruleerrors.ErrCryptoVerificationFailure
		if !errors.As(individual, &individualFailure) || !errors.As(batched, &batchedFailure) {
			t.Errorf("Item %d: expected ErrCryptoVerificationFailure from both paths", i)
			continue
		}
		if individualFailure != batchedFailure {
			t.Errorf("Item %d: batched failure %v differs from individual failure %v",
				i, batchedFailure, individualFailure)
		}
	}
}

func TestForgedSignatureIsLocalized(t *testing.T) {
	const numItems = 10
	const forgedIndex = 5

	scheduler := New(numItems, time.Hour)
	scheduler.Start()
	defer scheduler.Stop()

	items := make([]*model.CryptoItem, numItems)
	for i := 0; i < numItems; i++ {
		if i == forgedIndex {
			items[i] = forgedItem(t, testTransactionID(byte(i)), i)
		} else {
			items[i] = validItem(t, testTransactionID(byte(i)), i)
		}
	}

	// Submitting exactly batchSize items flushes a single batch without
	// waiting for the (deliberately unreachable) latency timer.
	resultChans := make([]<-chan error, numItems)
	for i, item := range items {
		resultChans[i] = scheduler.Submit(context.Background(), item)
	}

	for i := range items {
		err := <-resultChans[i]
		if i == forgedIndex {
			if err == nil {
				t.Fatalf("Forged item %d unexpectedly verified", i)
			}
			var failure ruleerrors.ErrCryptoVerificationFailure
			if !errors.As(err, &failure) {
				t.Fatalf("Forged item %d: expected ErrCryptoVerificationFailure, got %+v", i, err)
			}
			expectedID := testTransactionID(byte(forgedIndex))
			if !failure.TransactionID.Equal(&expectedID) || failure.ItemIndex != forgedIndex {
				t.Errorf("Failure blames transaction %s item %d, expected transaction %s item %d",
					failure.TransactionID, failure.ItemIndex, expectedID, forgedIndex)
			}
			continue
		}
		if err != nil {
			t.Errorf("Valid item %d failed verification: %+v", i, err)
		}
	}
}

func TestMaxLatencyFlushesPartialBatch(t *testing.T) {
	scheduler := New(1000, 10*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	item := validItem(t, testTransactionID(1), 0)
	resultChan := scheduler.Submit(context.Background(), item)

	select {
	case err := <-resultChan:
		if err != nil {
			t.Fatalf("Valid item failed verification: %+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("A partial batch was never flushed by the latency timer")
	}
}

func TestCanceledSubmitterIsDroppedFromBatch(t *testing.T) {
	scheduler := New(2, 50*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	canceledChan := scheduler.Submit(ctx, validItem(t, testTransactionID(1), 0))
	cancel()

	// A second, healthy item still gets verified by the same batch.
	healthyChan := scheduler.Submit(context.Background(), validItem(t, testTransactionID(2), 0))

	err := <-canceledChan
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Canceled item: expected context.Canceled, got %v", err)
	}
	err = <-healthyChan
	if err != nil {
		t.Errorf("Healthy item failed verification: %+v", err)
	}
}

// TestConcurrentFlushesDoNotStallAccumulation floods the scheduler with
// several full batches and then a lone straggler. The straggler's partial
// batch must still be flushed by the latency timer while the earlier batches
// are being verified on the worker pool.
func TestConcurrentFlushesDoNotStallAccumulation(t *testing.T) {
	const batchSize = 4
	const fullBatches = 6
	scheduler := New(batchSize, 20*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	items := make([]*model.CryptoItem, fullBatches*batchSize)
	for i := range items {
		items[i] = validItem(t, testTransactionID(byte(i)), i)
	}
	straggler := validItem(t, testTransactionID(0xff), 0)

	verdicts := make(chan error, len(items))
	var wg sync.WaitGroup
	for _, item := range items {
		item := item
		wg.Add(1)
		go func() {
			defer wg.Done()
			verdicts <- <-scheduler.Submit(context.Background(), item)
		}()
	}

	stragglerChan := scheduler.Submit(context.Background(), straggler)
	select {
	case err := <-stragglerChan:
		if err != nil {
			t.Fatalf("Straggler item failed verification: %+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("The straggler's partial batch was never flushed while other batches were in flight")
	}

	wg.Wait()
	close(verdicts)
	for err := range verdicts {
		if err != nil {
			t.Errorf("Valid item failed verification: %+v", err)
		}
	}
}

func TestStopAnswersPendingItems(t *testing.T) {
	scheduler := New(1000, time.Hour)
	scheduler.Start()

	resultChan := scheduler.Submit(context.Background(), validItem(t, testTransactionID(1), 0))
	scheduler.Stop()

	err := <-resultChan
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Pending item after Stop: expected ErrStopped, got %v", err)
	}

	// Submitting to a stopped scheduler reports ErrStopped immediately.
	lateChan := scheduler.Submit(context.Background(), validItem(t, testTransactionID(2), 0))
	err = <-lateChan
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop: expected ErrStopped, got %v", err)
	}
}
