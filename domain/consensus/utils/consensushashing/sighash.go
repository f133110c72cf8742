package consensushashing

import (
	"io"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/serialization"
)

// TransactionSigningDigest returns the digest a transparent input's signature
// commits to. The digest covers the whole transaction with all authorizing
// signatures blanked, plus the index of the input being signed, so that a
// signature cannot be transplanted onto a different input or transaction.
func TransactionSigningDigest(tx *externalapi.DomainTransaction, inputIndex int) *externalapi.DomainHash {
	writer := newHashWriter(signingDigestKey)
	serializeForSigning(writer, tx)
	err := serialization.WriteElement(writer, uint32(inputIndex))
	if err != nil {
		// That's impossible, this writer can never fail.
		panic(err)
	}
	return writer.Finalize()
}

// AuroraSpendDigest returns the digest an aurora spend's authorization
// signature commits to under the spend's randomized verification key.
func AuroraSpendDigest(tx *externalapi.DomainTransaction, spendIndex int) *externalapi.DomainHash {
	writer := newHashWriter(auroraSpendKey)
	serializeForSigning(writer, tx)
	err := serialization.WriteElement(writer, uint32(spendIndex))
	if err != nil {
		panic(err)
	}
	return writer.Finalize()
}

// BorealisActionDigest returns the digest a borealis action's authorization
// signature commits to under the action's randomized verification key.
func BorealisActionDigest(tx *externalapi.DomainTransaction, actionIndex int) *externalapi.DomainHash {
	writer := newHashWriter(borealisActionKey)
	serializeForSigning(writer, tx)
	err := serialization.WriteElement(writer, uint32(actionIndex))
	if err != nil {
		panic(err)
	}
	return writer.Finalize()
}

// serializeForSigning writes the transaction with every authorizing signature
// blanked. All signatures in a transaction therefore commit to the same
// transaction image and differ only in the trailing item index.
func serializeForSigning(w io.Writer, tx *externalapi.DomainTransaction) {
	err := writeForSigning(w, tx)
	if err != nil {
		panic(err)
	}
}

func writeForSigning(w io.Writer, tx *externalapi.DomainTransaction) error {
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

	if tx.Aurora == nil {
		err = serialization.WriteElement(w, uint64(0))
		if err != nil {
			return err
		}
	} else {
		err = serialization.WriteElement(w, uint64(len(tx.Aurora.Spends)))
		if err != nil {
			return err
		}
		for _, spend := range tx.Aurora.Spends {
			err := serialization.WriteElements(w, &spend.Nullifier, &spend.Anchor)
			if err != nil {
				return err
			}
			_, err = w.Write(spend.RandomizedKey[:])
			if err != nil {
				return err
			}
		}
		err = serialization.WriteElement(w, uint64(len(tx.Aurora.Outputs)))
		if err != nil {
			return err
		}
		for _, output := range tx.Aurora.Outputs {
			err := serialization.WriteElement(w, &output.Commitment)
			if err != nil {
				return err
			}
		}
	}

	if tx.Borealis == nil {
		err = serialization.WriteElement(w, uint64(0))
		if err != nil {
			return err
		}
	} else {
		err = serialization.WriteElement(w, uint64(len(tx.Borealis.Actions)))
		if err != nil {
			return err
		}
		for _, action := range tx.Borealis.Actions {
			err := serialization.WriteElements(w, &action.Nullifier, &action.Anchor, &action.Commitment)
			if err != nil {
				return err
			}
			_, err = w.Write(action.RandomizedKey[:])
			if err != nil {
				return err
			}
		}
	}

	return serialization.WriteElement(w, tx.LockTime)
}
