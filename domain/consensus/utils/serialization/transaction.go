package serialization

import (
	"io"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// maxSerializedItems bounds length prefixes read back from storage, so that a
// corrupted record cannot trigger a giant allocation.
const maxSerializedItems = 1 << 20

// SerializeTransaction writes tx to w in the storage encoding.
func SerializeTransaction(w io.Writer, tx *externalapi.DomainTransaction) error {
	err := WriteElements(w, tx.Version, uint64(len(tx.Inputs)))
	if err != nil {
		return err
	}
	for _, input := range tx.Inputs {
		err := WriteElements(w,
			&input.PreviousOutpoint.TransactionID,
			input.PreviousOutpoint.Index,
			input.Sequence,
		)
		if err != nil {
			return err
		}
		_, err = w.Write(input.PublicKey[:])
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = w.Write(input.Signature[:])
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err = WriteElement(w, uint64(len(tx.Outputs)))
	if err != nil {
		return err
	}
	for _, output := range tx.Outputs {
		err := WriteElement(w, output.Value)
		if err != nil {
			return err
		}
		err = writeByteSlice(w, output.ScriptPublicKey)
		if err != nil {
			return err
		}
	}

	err = WriteElement(w, tx.Aurora != nil)
	if err != nil {
		return err
	}
	if tx.Aurora != nil {
		err := WriteElement(w, uint64(len(tx.Aurora.Spends)))
		if err != nil {
			return err
		}
		for _, spend := range tx.Aurora.Spends {
			err := WriteElements(w, &spend.Nullifier, &spend.Anchor)
			if err != nil {
				return err
			}
			_, err = w.Write(spend.RandomizedKey[:])
			if err != nil {
				return errors.WithStack(err)
			}
			_, err = w.Write(spend.AuthSignature[:])
			if err != nil {
				return errors.WithStack(err)
			}
		}
		err = WriteElement(w, uint64(len(tx.Aurora.Outputs)))
		if err != nil {
			return err
		}
		for _, output := range tx.Aurora.Outputs {
			err := WriteElement(w, &output.Commitment)
			if err != nil {
				return err
			}
		}
	}

	err = WriteElement(w, tx.Borealis != nil)
	if err != nil {
		return err
	}
	if tx.Borealis != nil {
		err := WriteElement(w, uint64(len(tx.Borealis.Actions)))
		if err != nil {
			return err
		}
		for _, action := range tx.Borealis.Actions {
			err := WriteElements(w, &action.Nullifier, &action.Anchor, &action.Commitment)
			if err != nil {
				return err
			}
			_, err = w.Write(action.RandomizedKey[:])
			if err != nil {
				return errors.WithStack(err)
			}
			_, err = w.Write(action.AuthSignature[:])
			if err != nil {
				return errors.WithStack(err)
			}
		}
	}

	return WriteElement(w, tx.LockTime)
}

// DeserializeTransaction reads a transaction previously written with
// SerializeTransaction from r. The transaction's ID cache is left unset.
func DeserializeTransaction(r io.Reader) (*externalapi.DomainTransaction, error) {
	tx := &externalapi.DomainTransaction{}
	var numInputs uint64
	err := ReadElements(r, &tx.Version, &numInputs)
	if err != nil {
		return nil, err
	}
	if numInputs > maxSerializedItems {
		return nil, errors.Wrapf(errMalformed, "too many inputs: %d", numInputs)
	}
	tx.Inputs = make([]*externalapi.DomainTransactionInput, numInputs)
	for i := range tx.Inputs {
		input := &externalapi.DomainTransactionInput{}
		err := ReadElements(r,
			&input.PreviousOutpoint.TransactionID,
			&input.PreviousOutpoint.Index,
			&input.Sequence,
		)
		if err != nil {
			return nil, err
		}
		_, err = io.ReadFull(r, input.PublicKey[:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		_, err = io.ReadFull(r, input.Signature[:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		tx.Inputs[i] = input
	}

	var numOutputs uint64
	err = ReadElement(r, &numOutputs)
	if err != nil {
		return nil, err
	}
	if numOutputs > maxSerializedItems {
		return nil, errors.Wrapf(errMalformed, "too many outputs: %d", numOutputs)
	}
	tx.Outputs = make([]*externalapi.DomainTransactionOutput, numOutputs)
	for i := range tx.Outputs {
		output := &externalapi.DomainTransactionOutput{}
		err := ReadElement(r, &output.Value)
		if err != nil {
			return nil, err
		}
		output.ScriptPublicKey, err = readByteSlice(r)
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = output
	}

	var hasAurora bool
	err = ReadElement(r, &hasAurora)
	if err != nil {
		return nil, err
	}
	if hasAurora {
		bundle := &externalapi.AuroraBundle{}
		var numSpends uint64
		err := ReadElement(r, &numSpends)
		if err != nil {
			return nil, err
		}
		if numSpends > maxSerializedItems {
			return nil, errors.Wrapf(errMalformed, "too many aurora spends: %d", numSpends)
		}
		bundle.Spends = make([]*externalapi.AuroraSpend, numSpends)
		for i := range bundle.Spends {
			spend := &externalapi.AuroraSpend{}
			err := ReadElements(r, &spend.Nullifier, &spend.Anchor)
			if err != nil {
				return nil, err
			}
			_, err = io.ReadFull(r, spend.RandomizedKey[:])
			if err != nil {
				return nil, errors.WithStack(err)
			}
			_, err = io.ReadFull(r, spend.AuthSignature[:])
			if err != nil {
				return nil, errors.WithStack(err)
			}
			bundle.Spends[i] = spend
		}
		var numAuroraOutputs uint64
		err = ReadElement(r, &numAuroraOutputs)
		if err != nil {
			return nil, err
		}
		if numAuroraOutputs > maxSerializedItems {
			return nil, errors.Wrapf(errMalformed, "too many aurora outputs: %d", numAuroraOutputs)
		}
		bundle.Outputs = make([]*externalapi.AuroraOutput, numAuroraOutputs)
		for i := range bundle.Outputs {
			output := &externalapi.AuroraOutput{}
			err := ReadElement(r, &output.Commitment)
			if err != nil {
				return nil, err
			}
			bundle.Outputs[i] = output
		}
		tx.Aurora = bundle
	}

	var hasBorealis bool
	err = ReadElement(r, &hasBorealis)
	if err != nil {
		return nil, err
	}
	if hasBorealis {
		bundle := &externalapi.BorealisBundle{}
		var numActions uint64
		err := ReadElement(r, &numActions)
		if err != nil {
			return nil, err
		}
		if numActions > maxSerializedItems {
			return nil, errors.Wrapf(errMalformed, "too many borealis actions: %d", numActions)
		}
		bundle.Actions = make([]*externalapi.BorealisAction, numActions)
		for i := range bundle.Actions {
			action := &externalapi.BorealisAction{}
			err := ReadElements(r, &action.Nullifier, &action.Anchor, &action.Commitment)
			if err != nil {
				return nil, err
			}
			_, err = io.ReadFull(r, action.RandomizedKey[:])
			if err != nil {
				return nil, errors.WithStack(err)
			}
			_, err = io.ReadFull(r, action.AuthSignature[:])
			if err != nil {
				return nil, errors.WithStack(err)
			}
			bundle.Actions[i] = action
		}
		tx.Borealis = bundle
	}

	err = ReadElement(r, &tx.LockTime)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func writeByteSlice(w io.Writer, data []byte) error {
	err := WriteElement(w, uint64(len(data)))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.WithStack(err)
}

func readByteSlice(r io.Reader) ([]byte, error) {
	var length uint64
	err := ReadElement(r, &length)
	if err != nil {
		return nil, err
	}
	return readFixedByteSlice(r, length)
}

func readFixedByteSlice(r io.Reader, length uint64) ([]byte, error) {
	if length > maxSerializedItems {
		return nil, errors.Wrapf(errMalformed, "byte slice too long: %d", length)
	}
	data := make([]byte, length)
	_, err := io.ReadFull(r, data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}
