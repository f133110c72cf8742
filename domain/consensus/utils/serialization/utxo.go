package serialization

import (
	"bytes"
	"io"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// SerializeOutpoint writes outpoint to w.
func SerializeOutpoint(w io.Writer, outpoint *externalapi.DomainOutpoint) error {
	return WriteElements(w, &outpoint.TransactionID, outpoint.Index)
}

// DeserializeOutpoint reads an outpoint from r.
func DeserializeOutpoint(r io.Reader) (*externalapi.DomainOutpoint, error) {
	outpoint := &externalapi.DomainOutpoint{}
	err := ReadElements(r, &outpoint.TransactionID, &outpoint.Index)
	if err != nil {
		return nil, err
	}
	return outpoint, nil
}

// SerializeUTXOEntry writes entry to w.
func SerializeUTXOEntry(w io.Writer, entry *externalapi.UTXOEntry) error {
	err := WriteElements(w, entry.Amount, entry.BlockHeight, entry.IsCoinbase,
		uint64(len(entry.ScriptPublicKey)))
	if err != nil {
		return err
	}
	_, err = w.Write(entry.ScriptPublicKey)
	return err
}

// DeserializeUTXOEntry reads a UTXO entry from r.
func DeserializeUTXOEntry(r io.Reader) (*externalapi.UTXOEntry, error) {
	entry := &externalapi.UTXOEntry{}
	var scriptLength uint64
	err := ReadElements(r, &entry.Amount, &entry.BlockHeight, &entry.IsCoinbase, &scriptLength)
	if err != nil {
		return nil, err
	}
	entry.ScriptPublicKey, err = readFixedByteSlice(r, scriptLength)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SerializeUTXO returns the canonical serialization of an (outpoint, entry)
// pair. This is the representation the UTXO multiset commitment is built
// over.
func SerializeUTXO(outpoint *externalapi.DomainOutpoint, entry *externalapi.UTXOEntry) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := SerializeOutpoint(buffer, outpoint)
	if err != nil {
		return nil, err
	}
	err = SerializeUTXOEntry(buffer, entry)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
