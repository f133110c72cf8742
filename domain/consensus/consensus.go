package consensus

import (
	"context"
	"sync"

	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// tipNotificationBufferSize is the per-subscriber buffer. A subscriber that
// falls this far behind starts losing notifications instead of stalling
// block processing.
const tipNotificationBufferSize = 64

type consensus struct {
	lock *sync.RWMutex

	blockProcessor         model.BlockProcessor
	contextualStateManager model.ContextualStateManager
	cryptoScheduler        model.CryptoScheduler

	subscriberLock   sync.Mutex
	subscribers      map[uint64]chan *externalapi.TipChangedNotification
	nextSubscriberID uint64
}

// ValidateAndInsertBlock validates the given block and, if valid, inserts it.
func (s *consensus) ValidateAndInsertBlock(block *externalapi.DomainBlock) (*externalapi.TipInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.blockProcessor.ValidateAndInsertBlock(context.Background(), block)
}

// GetTipInfo returns the current best tip and finality point.
func (s *consensus) GetTipInfo() (*externalapi.TipInfo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.TipInfo(), nil
}

// GetBlock returns the block with the given hash.
func (s *consensus) GetBlock(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.Block(blockHash)
}

// GetBlockByHeight returns the best-chain block at the given height.
func (s *consensus) GetBlockByHeight(height uint64) (*externalapi.DomainBlock, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.BlockByHeight(height)
}

// GetBlockInfo returns info about the block with the given hash.
func (s *consensus) GetBlockInfo(blockHash *externalapi.DomainHash) (*externalapi.BlockInfo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.BlockInfo(blockHash)
}

// GetTransaction returns the transaction with the given ID.
func (s *consensus) GetTransaction(
	transactionID *externalapi.DomainTransactionID) (*externalapi.DomainTransaction, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.TransactionByID(transactionID)
}

// GetUTXOEntry returns the UTXO entry of the given outpoint as seen from the
// best tip.
func (s *consensus) GetUTXOEntry(outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.UTXOEntry(outpoint)
}

// HasNullifier returns whether the given nullifier is spent in the given
// pool on the best chain.
func (s *consensus) HasNullifier(pool externalapi.ShieldedPool,
	nullifier *externalapi.DomainNullifier) (bool, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.HasNullifier(pool, nullifier)
}

// HasAnchor returns whether the given anchor is valid in the given pool on
// the best chain.
func (s *consensus) HasAnchor(pool externalapi.ShieldedPool,
	anchor *externalapi.DomainHash) (bool, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.contextualStateManager.HasAnchor(pool, anchor)
}

// SubscribeToTipChanges registers a new tip change subscriber.
func (s *consensus) SubscribeToTipChanges() (<-chan *externalapi.TipChangedNotification, func()) {
	s.subscriberLock.Lock()
	defer s.subscriberLock.Unlock()

	id := s.nextSubscriberID
	s.nextSubscriberID++
	notificationChan := make(chan *externalapi.TipChangedNotification, tipNotificationBufferSize)
	s.subscribers[id] = notificationChan

	unsubscribe := func() {
		s.subscriberLock.Lock()
		defer s.subscriberLock.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(notificationChan)
		}
	}
	return notificationChan, unsubscribe
}

// notifyTipChanged fans the notification out to all subscribers. Slow
// subscribers lose notifications rather than stalling the commit path.
func (s *consensus) notifyTipChanged(notification *externalapi.TipChangedNotification) {
	s.subscriberLock.Lock()
	defer s.subscriberLock.Unlock()

	for id, notificationChan := range s.subscribers {
		select {
		case notificationChan <- notification:
		default:
			log.Warnf("Tip change subscriber %d is too slow; dropping notification", id)
		}
	}
}

// Shutdown stops the consensus' background machinery. The consensus must not
// be used after Shutdown returns.
func (s *consensus) Shutdown() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.cryptoScheduler.Stop()
}
