// Package consensus assembles the validation and state machinery behind the
// externalapi.Consensus interface.
package consensus

import (
	"sync"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	consensusdatabase "github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/blockstatusstore"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/blockstore"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/chainstatestore"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/commitmenttreestore"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/nullifierstore"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/transactionstore"
	"github.com/umbraproject/umbrad/domain/consensus/datastructures/utxosetstore"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/processes/batchverifier"
	"github.com/umbraproject/umbrad/domain/consensus/processes/blockprocessor"
	"github.com/umbraproject/umbrad/domain/consensus/processes/contextualstatemanager"
	"github.com/umbraproject/umbrad/domain/consensus/processes/finalitymanager"
	"github.com/umbraproject/umbrad/domain/consensus/processes/semanticverifier"
	"github.com/umbraproject/umbrad/domain/consensus/utils/txscript"
	"github.com/umbraproject/umbrad/infrastructure/db/database"
)

const (
	defaultBlockCacheSize       = 2_000
	defaultBlockStatusCacheSize = 10_000
	defaultTransactionCacheSize = 10_000
)

// Factory instantiates new Consensuses.
type Factory interface {
	NewConsensus(params *chainconfig.Params, db database.Database) (
		consensusInstance externalapi.Consensus, shutdown func(), err error)

	SetScriptVerifier(scriptVerifier model.ScriptVerifier)
}

type factory struct {
	scriptVerifier model.ScriptVerifier
}

// NewFactory creates a new Consensus factory.
func NewFactory() Factory {
	return &factory{
		scriptVerifier: txscript.NewEngine(),
	}
}

// SetScriptVerifier replaces the script verifier used by consensuses this
// factory creates. Meant for tests.
func (f *factory) SetScriptVerifier(scriptVerifier model.ScriptVerifier) {
	f.scriptVerifier = scriptVerifier
}

// NewConsensus creates a Consensus over the given database, bootstrapping the
// genesis block if the database is fresh. The returned shutdown function
// stops the consensus' background machinery; it does not close the database.
func (f *factory) NewConsensus(params *chainconfig.Params, db database.Database) (
	externalapi.Consensus, func(), error) {

	databaseContext := consensusdatabase.New(db)

	// Data stores
	blockStore := blockstore.New(defaultBlockCacheSize)
	blockStatusStore := blockstatusstore.New(defaultBlockStatusCacheSize)
	chainStateStore := chainstatestore.New()
	utxoSetStore := utxosetstore.New()
	nullifierStore := nullifierstore.New()
	commitmentTreeStore := commitmenttreestore.New()
	transactionStore := transactionstore.New(defaultTransactionCacheSize)

	// Processes
	cryptoScheduler := batchverifier.New(params.CryptoBatchSize, params.CryptoBatchMaxLatency)
	semanticVerifier := semanticverifier.New(params, cryptoScheduler)
	finalityManager := finalitymanager.New(
		databaseContext,
		blockStore,
		blockStatusStore,
		chainStateStore,
		utxoSetStore,
		nullifierStore,
		commitmentTreeStore,
		transactionStore,
	)
	contextualStateManager, err := contextualstatemanager.New(
		params,
		databaseContext,
		blockStore,
		blockStatusStore,
		chainStateStore,
		utxoSetStore,
		nullifierStore,
		commitmentTreeStore,
		transactionStore,
		finalityManager,
		f.scriptVerifier,
	)
	if err != nil {
		return nil, nil, err
	}

	consensusInstance := &consensus{
		lock:                   &sync.RWMutex{},
		contextualStateManager: contextualStateManager,
		cryptoScheduler:        cryptoScheduler,
		subscribers:            make(map[uint64]chan *externalapi.TipChangedNotification),
	}
	consensusInstance.blockProcessor = blockprocessor.New(
		params, semanticVerifier, contextualStateManager, consensusInstance.notifyTipChanged)

	cryptoScheduler.Start()

	return consensusInstance, consensusInstance.Shutdown, nil
}
