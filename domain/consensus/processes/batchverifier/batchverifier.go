// Package batchverifier implements the crypto scheduler: signature checks
// submitted by concurrent verification flows are accumulated and verified in
// batches, amortizing the per-verification overhead. A batch is flushed when
// it reaches the configured size or when its oldest item has waited the
// maximum latency. Flushed batches are verified on a bounded worker pool, so
// the accumulation loop keeps accepting items while earlier batches are
// still being checked.
package batchverifier

import (
	"context"
	"runtime"
	"time"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/util/panics"
)

// ErrStopped is returned for items submitted to (or pending in) a scheduler
// that has been stopped.
var ErrStopped = errors.New("the crypto scheduler has been stopped")

var spawn = panics.GoroutineWrapperFunc(log)

type pendingItem struct {
	ctx        context.Context
	item       *model.CryptoItem
	resultChan chan error
}

type scheduler struct {
	batchSize  int
	maxLatency time.Duration

	itemChan chan *pendingItem
	quit     chan struct{}
	done     chan struct{}

	// workers runs flushed batches so that verification never blocks the
	// accumulation loop.
	workers errgroup.Group
}

// New creates a new crypto scheduler that flushes batches at the given size
// or after the given latency, whichever comes first.
func New(batchSize int, maxLatency time.Duration) model.CryptoScheduler {
	s := &scheduler{
		batchSize:  batchSize,
		maxLatency: maxLatency,
		itemChan:   make(chan *pendingItem),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.workers.SetLimit(runtime.NumCPU())
	return s
}

// Start launches the scheduler's accumulation loop.
func (s *scheduler) Start() {
	spawn("batchverifier.mainLoop", s.mainLoop)
}

// Stop terminates the scheduler. Items still pending are answered with
// ErrStopped.
func (s *scheduler) Stop() {
	close(s.quit)
	<-s.done
}

// Submit hands a crypto item to the scheduler. The returned channel delivers
// exactly one verdict: nil if the item verified, a rule error if it did not,
// or a context/shutdown error if the item never got verified.
func (s *scheduler) Submit(ctx context.Context, item *model.CryptoItem) <-chan error {
	resultChan := make(chan error, 1)
	pending := &pendingItem{ctx: ctx, item: item, resultChan: resultChan}

	select {
	case s.itemChan <- pending:
	case <-ctx.Done():
		resultChan <- ctx.Err()
	case <-s.quit:
		resultChan <- ErrStopped
	}
	return resultChan
}

func (s *scheduler) mainLoop() {
	defer close(s.done)

	// The timer is created stopped; it's armed when the first item of a
	// fresh batch arrives.
	timer := time.NewTimer(s.maxLatency)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var batch []*pendingItem
	flush := func(toVerify []*pendingItem) {
		s.workers.Go(func() error {
			s.verifyBatch(toVerify)
			return nil
		})
	}
	for {
		select {
		case pending := <-s.itemChan:
			batch = append(batch, pending)
			if len(batch) == 1 {
				timer.Reset(s.maxLatency)
			}
			if len(batch) >= s.batchSize {
				if !timer.Stop() {
					<-timer.C
				}
				flush(batch)
				batch = nil
			}

		case <-timer.C:
			if len(batch) > 0 {
				flush(batch)
				batch = nil
			}

		case <-s.quit:
			for _, pending := range batch {
				pending.resultChan <- ErrStopped
			}
			// Batches already handed to the pool still deliver their
			// verdicts before the scheduler reports stopped.
			s.workers.Wait()
			return
		}
	}
}

// verifyBatch resolves every item in the batch. Items of the same kind share
// a verification pass; only if a kind's pass fails does the scheduler fall
// back to checking that kind's items one by one, so that a single forged
// signature condemns its own transaction and nothing else in the batch.
func (s *scheduler) verifyBatch(batch []*pendingItem) {
	active := make([]*pendingItem, 0, len(batch))
	for _, pending := range batch {
		// Items whose submitter gave up before the flush are dropped
		// unverified.
		select {
		case <-pending.ctx.Done():
			pending.resultChan <- pending.ctx.Err()
		default:
			active = append(active, pending)
		}
	}
	if len(active) == 0 {
		return
	}

	log.Tracef("Verifying a batch of %d crypto items", len(active))

	byKind := make(map[model.CryptoItemTag][]*pendingItem)
	for _, pending := range active {
		byKind[pending.item.Tag] = append(byKind[pending.item.Tag], pending)
	}
	for kind, group := range byKind {
		if allValid(group) {
			for _, pending := range group {
				pending.resultChan <- nil
			}
			continue
		}
		log.Debugf("A pass over %d items of kind %q failed, falling back to "+
			"individual verification", len(group), kind)
		for _, pending := range group {
			pending.resultChan <- verifyItem(pending.item)
		}
	}
}

// allValid is the batch fast path: it answers only whether every item in the
// group verifies, bailing out on the first failure.
func allValid(group []*pendingItem) bool {
	for _, pending := range group {
		if verifyItem(pending.item) != nil {
			return false
		}
	}
	return true
}

func verifyItem(item *model.CryptoItem) error {
	pubKey, err := secp256k1.DeserializeSchnorrPubKey(item.PublicKey[:])
	if err != nil {
		return itemFailure(item)
	}
	signature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(item.Signature[:])
	if err != nil {
		return itemFailure(item)
	}
	digest := secp256k1.Hash(*item.Digest.ByteArray())
	if !pubKey.SchnorrVerify(&digest, signature) {
		return itemFailure(item)
	}
	return nil
}

func itemFailure(item *model.CryptoItem) error {
	return ruleerrors.NewErrCryptoVerificationFailure(
		item.Tag.String(), item.TransactionID, item.ItemIndex)
}
