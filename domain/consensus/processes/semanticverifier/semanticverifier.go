// Package semanticverifier validates the context-free properties of a
// block's transactions: version acceptability and every signature and
// authorization the transactions carry. It owns no chain state; anything that
// needs the UTXO set, nullifier sets or anchors belongs to the contextual
// state manager.
package semanticverifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
	"github.com/umbraproject/umbrad/infrastructure/logger"
)

type semanticVerifier struct {
	params    *chainconfig.Params
	scheduler model.CryptoScheduler
}

// New creates a new SemanticVerifier that submits its crypto items to the
// given scheduler.
func New(params *chainconfig.Params, scheduler model.CryptoScheduler) model.SemanticVerifier {
	return &semanticVerifier{
		params:    params,
		scheduler: scheduler,
	}
}

// VerifyBlockTransactions validates every transaction in the block. The
// cheap checks run first for the whole block; only then are signatures
// submitted, concurrently across transactions so that items from independent
// transactions share batches.
func (sv *semanticVerifier) VerifyBlockTransactions(ctx context.Context,
	block *externalapi.DomainBlock, skipCryptoVerification bool) error {

	onEnd := logger.LogAndMeasureExecutionTime(log, "VerifyBlockTransactions")
	defer onEnd()

	for _, tx := range block.Transactions {
		err := sv.checkTransactionVersion(tx)
		if err != nil {
			return err
		}
	}

	if skipCryptoVerification {
		log.Debugf("Skipping crypto verification for block with %d transactions",
			len(block.Transactions))
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, tx := range block.Transactions {
		tx := tx
		group.Go(func() error {
			return sv.verifyTransactionCrypto(groupCtx, tx)
		})
	}
	return group.Wait()
}

func (sv *semanticVerifier) checkTransactionVersion(tx *externalapi.DomainTransaction) error {
	if tx.Version > sv.params.MaxTransactionVersion {
		return ruleerrors.Errorf(ruleerrors.ErrUnsupportedTransactionVersion,
			"transaction %s has version %d, but the maximum accepted version is %d",
			consensushashing.TransactionID(tx), tx.Version, sv.params.MaxTransactionVersion)
	}
	return nil
}

// verifyTransactionCrypto submits all of the transaction's crypto items
// before waiting on any verdict, so a single transaction never stalls a
// batch on its own latency.
func (sv *semanticVerifier) verifyTransactionCrypto(ctx context.Context,
	tx *externalapi.DomainTransaction) error {

	items := extractCryptoItems(tx)
	resultChans := make([]<-chan error, len(items))
	for i, item := range items {
		resultChans[i] = sv.scheduler.Submit(ctx, item)
	}
	for _, resultChan := range resultChans {
		err := <-resultChan
		if err != nil {
			return err
		}
	}
	return nil
}

func extractCryptoItems(tx *externalapi.DomainTransaction) []*model.CryptoItem {
	transactionID := consensushashing.TransactionID(tx)
	numItems := len(tx.Inputs)
	if tx.Aurora != nil {
		numItems += len(tx.Aurora.Spends)
	}
	if tx.Borealis != nil {
		numItems += len(tx.Borealis.Actions)
	}
	items := make([]*model.CryptoItem, 0, numItems)

	for i, input := range tx.Inputs {
		items = append(items, &model.CryptoItem{
			Tag:           model.CryptoItemTransparentInput,
			PublicKey:     input.PublicKey,
			Signature:     input.Signature,
			Digest:        *consensushashing.TransactionSigningDigest(tx, i),
			TransactionID: *transactionID,
			ItemIndex:     i,
		})
	}
	if tx.Aurora != nil {
		for i, spend := range tx.Aurora.Spends {
			items = append(items, &model.CryptoItem{
				Tag:           model.CryptoItemAuroraSpend,
				PublicKey:     spend.RandomizedKey,
				Signature:     spend.AuthSignature,
				Digest:        *consensushashing.AuroraSpendDigest(tx, i),
				TransactionID: *transactionID,
				ItemIndex:     i,
			})
		}
	}
	if tx.Borealis != nil {
		for i, action := range tx.Borealis.Actions {
			items = append(items, &model.CryptoItem{
				Tag:           model.CryptoItemBorealisAction,
				PublicKey:     action.RandomizedKey,
				Signature:     action.AuthSignature,
				Digest:        *consensushashing.BorealisActionDigest(tx, i),
				TransactionID: *transactionID,
				ItemIndex:     i,
			})
		}
	}
	return items
}
