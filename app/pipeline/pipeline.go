// Package pipeline is the request/response layer between the node's outer
// surfaces and the consensus. Commands travel on capacity-bounded routes so
// that a busy consensus pushes back on its callers instead of accumulating
// unbounded work.
package pipeline

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

const (
	// defaultSubmitCapacity bounds the number of blocks waiting for
	// validation.
	defaultSubmitCapacity = 256

	// defaultQueryCapacity bounds the number of pending read queries.
	defaultQueryCapacity = 1024
)

// Manager routes commands to the consensus. Block submissions and read
// queries travel on separate routes, so a burst of queries cannot starve
// block processing and vice versa.
type Manager struct {
	consensus externalapi.Consensus

	submitRoute *Route
	queryRoute  *Route

	started, shutdown int32
}

// NewManager creates a pipeline Manager over the given consensus.
func NewManager(consensus externalapi.Consensus) *Manager {
	return &Manager{
		consensus:   consensus,
		submitRoute: newRoute("submit", defaultSubmitCapacity),
		queryRoute:  newRoute("query", defaultQueryCapacity),
	}
}

// Start launches the pipeline's worker goroutines.
func (m *Manager) Start() {
	if atomic.AddInt32(&m.started, 1) != 1 {
		return
	}
	log.Infof("Pipeline started")
	spawn("pipeline-submitLoop", func() { m.routeLoop(m.submitRoute) })
	spawn("pipeline-queryLoop", func() { m.routeLoop(m.queryRoute) })
}

// Stop closes the pipeline's routes. Commands already enqueued are still
// served; commands enqueued after Stop are rejected with ErrRouteClosed.
func (m *Manager) Stop() {
	if atomic.AddInt32(&m.shutdown, 1) != 1 {
		log.Infof("Pipeline is already in the process of shutting down")
		return
	}
	log.Infof("Pipeline shutting down")
	m.submitRoute.Close()
	m.queryRoute.Close()
}

// Ready reports whether the pipeline currently accepts block submissions.
// Callers should check it before producing work they cannot roll back.
func (m *Manager) Ready() bool {
	return atomic.LoadInt32(&m.started) == 1 && m.submitRoute.Ready()
}

// SubmitBlock routes the given block to the consensus for validation and
// insertion. Validation rejections are returned as error values.
func (m *Manager) SubmitBlock(block *externalapi.DomainBlock) (*externalapi.TipInfo, error) {
	command := &submitBlockCommand{
		block:    block,
		response: make(chan *submitBlockResponse, 1),
	}
	err := m.submitRoute.Enqueue(command)
	if err != nil {
		return nil, err
	}
	response := <-command.response
	return response.tipInfo, response.err
}

// GetTipInfo returns the current best tip and finality point.
func (m *Manager) GetTipInfo() (*externalapi.TipInfo, error) {
	command := &getTipInfoCommand{response: make(chan *getTipInfoResponse, 1)}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return nil, err
	}
	response := <-command.response
	return response.tipInfo, response.err
}

// GetBlockByHash returns the block with the given hash.
func (m *Manager) GetBlockByHash(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	command := &getBlockByHashCommand{
		blockHash: blockHash,
		response:  make(chan *getBlockResponse, 1),
	}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return nil, err
	}
	response := <-command.response
	return response.block, response.err
}

// GetBlockByHeight returns the best-chain block at the given height.
func (m *Manager) GetBlockByHeight(height uint64) (*externalapi.DomainBlock, error) {
	command := &getBlockByHeightCommand{
		height:   height,
		response: make(chan *getBlockResponse, 1),
	}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return nil, err
	}
	response := <-command.response
	return response.block, response.err
}

// GetTransaction returns the transaction with the given ID.
func (m *Manager) GetTransaction(
	transactionID *externalapi.DomainTransactionID) (*externalapi.DomainTransaction, error) {

	command := &getTransactionCommand{
		transactionID: transactionID,
		response:      make(chan *getTransactionResponse, 1),
	}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return nil, err
	}
	response := <-command.response
	return response.transaction, response.err
}

// GetUTXOEntry returns the unspent entry of the given outpoint as seen from
// the best tip.
func (m *Manager) GetUTXOEntry(outpoint *externalapi.DomainOutpoint) (*externalapi.UTXOEntry, error) {
	command := &getUTXOEntryCommand{
		outpoint: outpoint,
		response: make(chan *getUTXOEntryResponse, 1),
	}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return nil, err
	}
	response := <-command.response
	return response.entry, response.err
}

// HasNullifier returns whether the given nullifier is spent in the given
// pool on the best chain.
func (m *Manager) HasNullifier(pool externalapi.ShieldedPool,
	nullifier *externalapi.DomainNullifier) (bool, error) {

	command := &hasNullifierCommand{
		pool:      pool,
		nullifier: nullifier,
		response:  make(chan *existsResponse, 1),
	}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return false, err
	}
	response := <-command.response
	return response.exists, response.err
}

// HasAnchor returns whether the given commitment root is a valid anchor of
// the given pool on the best chain.
func (m *Manager) HasAnchor(pool externalapi.ShieldedPool,
	anchor *externalapi.DomainHash) (bool, error) {

	command := &hasAnchorCommand{
		pool:     pool,
		anchor:   anchor,
		response: make(chan *existsResponse, 1),
	}
	err := m.queryRoute.Enqueue(command)
	if err != nil {
		return false, err
	}
	response := <-command.response
	return response.exists, response.err
}

// SubscribeToTipChanges registers a tip change subscriber on the underlying
// consensus.
func (m *Manager) SubscribeToTipChanges() (<-chan *externalapi.TipChangedNotification, func()) {
	return m.consensus.SubscribeToTipChanges()
}

// routeLoop serves commands from the given route until it is closed and
// drained.
func (m *Manager) routeLoop(route *Route) {
	for {
		command, err := route.Dequeue()
		if err != nil {
			if errors.Is(err, ErrRouteClosed) {
				return
			}
			log.Errorf("Failed to dequeue command: %+v", err)
			return
		}
		m.handleCommand(command)
	}
}

func (m *Manager) handleCommand(command Command) {
	switch command := command.(type) {
	case *submitBlockCommand:
		tipInfo, err := m.consensus.ValidateAndInsertBlock(command.block)
		command.response <- &submitBlockResponse{tipInfo: tipInfo, err: err}

	case *getTipInfoCommand:
		tipInfo, err := m.consensus.GetTipInfo()
		command.response <- &getTipInfoResponse{tipInfo: tipInfo, err: err}

	case *getBlockByHashCommand:
		block, err := m.consensus.GetBlock(command.blockHash)
		command.response <- &getBlockResponse{block: block, err: err}

	case *getBlockByHeightCommand:
		block, err := m.consensus.GetBlockByHeight(command.height)
		command.response <- &getBlockResponse{block: block, err: err}

	case *getTransactionCommand:
		transaction, err := m.consensus.GetTransaction(command.transactionID)
		command.response <- &getTransactionResponse{transaction: transaction, err: err}

	case *getUTXOEntryCommand:
		entry, err := m.consensus.GetUTXOEntry(command.outpoint)
		command.response <- &getUTXOEntryResponse{entry: entry, err: err}

	case *hasNullifierCommand:
		exists, err := m.consensus.HasNullifier(command.pool, command.nullifier)
		command.response <- &existsResponse{exists: exists, err: err}

	case *hasAnchorCommand:
		exists, err := m.consensus.HasAnchor(command.pool, command.anchor)
		command.response <- &existsResponse{exists: exists, err: err}

	default:
		log.Errorf("Unknown command kind %s", command.Kind())
	}
}
