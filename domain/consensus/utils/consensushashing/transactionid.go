package consensushashing

import (
	"io"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

// TransactionID returns the ID of the given transaction, computing and
// caching it if it was not computed before.
func TransactionID(tx *externalapi.DomainTransaction) *externalapi.DomainTransactionID {
	if tx.ID != nil {
		return tx.ID
	}

	writer := newHashWriter(transactionIDKey)
	err := serializeTransaction(writer, tx)
	if err != nil {
		// That's impossible, this writer can never fail.
		panic(err)
	}
	transactionID := externalapi.DomainTransactionID(*writer.Finalize())

	tx.ID = &transactionID
	return tx.ID
}

// TransactionIDs converts the given slice of DomainTransactions to a
// corresponding slice of IDs.
func TransactionIDs(txs []*externalapi.DomainTransaction) []*externalapi.DomainTransactionID {
	txIDs := make([]*externalapi.DomainTransactionID, len(txs))
	for i, tx := range txs {
		txIDs[i] = TransactionID(tx)
	}
	return txIDs
}

func serializeTransaction(w io.Writer, tx *externalapi.DomainTransaction) error {
	err := serialization.WriteElements(w, tx.Version, uint64(len(tx.Inputs)))
	if err != nil {
		return err
	}
	for _, input := range tx.Inputs {
		err := serialization.WriteElements(w,
			&input.PreviousOutpoint.TransactionID,
			input.PreviousOutpoint.Index,
			input.Sequence,
		)
		if err != nil {
			return err
		}
		_, err = w.Write(input.PublicKey[:])
		if err != nil {
			return err
		}
		_, err = w.Write(input.Signature[:])
		if err != nil {
			return err
		}
	}

	err = serialization.WriteElement(w, uint64(len(tx.Outputs)))
	if err != nil {
		return err
	}
	for _, output := range tx.Outputs {
		err := serialization.WriteElements(w, output.Value, uint64(len(output.ScriptPublicKey)))
		if err != nil {
			return err
		}
		_, err = w.Write(output.ScriptPublicKey)
		if err != nil {
			return err
		}
	}

	err = serializeAuroraBundle(w, tx.Aurora)
	if err != nil {
		return err
	}
	err = serializeBorealisBundle(w, tx.Borealis)
	if err != nil {
		return err
	}

	return serialization.WriteElement(w, tx.LockTime)
}

func serializeAuroraBundle(w io.Writer, bundle *externalapi.AuroraBundle) error {
	if bundle == nil {
		return serialization.WriteElement(w, uint64(0))
	}
	err := serialization.WriteElement(w, uint64(len(bundle.Spends)))
	if err != nil {
		return err
	}
	for _, spend := range bundle.Spends {
		err := serialization.WriteElements(w, &spend.Nullifier, &spend.Anchor)
		if err != nil {
			return err
		}
		_, err = w.Write(spend.RandomizedKey[:])
		if err != nil {
			return err
		}
		_, err = w.Write(spend.AuthSignature[:])
		if err != nil {
			return err
		}
	}
	err = serialization.WriteElement(w, uint64(len(bundle.Outputs)))
	if err != nil {
		return err
	}
	for _, output := range bundle.Outputs {
		err := serialization.WriteElement(w, &output.Commitment)
		if err != nil {
			return err
		}
	}
	return nil
}

func serializeBorealisBundle(w io.Writer, bundle *externalapi.BorealisBundle) error {
	if bundle == nil {
		return serialization.WriteElement(w, uint64(0))
	}
	err := serialization.WriteElement(w, uint64(len(bundle.Actions)))
	if err != nil {
		return err
	}
	for _, action := range bundle.Actions {
		err := serialization.WriteElements(w, &action.Nullifier, &action.Anchor, &action.Commitment)
		if err != nil {
			return err
		}
		_, err = w.Write(action.RandomizedKey[:])
		if err != nil {
			return err
		}
		_, err = w.Write(action.AuthSignature[:])
		if err != nil {
			return err
		}
	}
	return nil
}
