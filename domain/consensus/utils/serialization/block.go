package serialization

import (
	"io"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// SerializeHeader writes header to w in the storage encoding.
func SerializeHeader(w io.Writer, header *externalapi.DomainBlockHeader) error {
	return WriteElements(w,
		header.Version,
		&header.ParentHash,
		&header.TransactionsRoot,
		&header.AuroraCommitmentRoot,
		&header.BorealisCommitmentRoot,
		header.TimeInMilliseconds,
		header.Bits,
		header.Nonce,
	)
}

// DeserializeHeader reads a header previously written with SerializeHeader
// from r.
func DeserializeHeader(r io.Reader) (*externalapi.DomainBlockHeader, error) {
	header := &externalapi.DomainBlockHeader{}
	err := ReadElements(r,
		&header.Version,
		&header.ParentHash,
		&header.TransactionsRoot,
		&header.AuroraCommitmentRoot,
		&header.BorealisCommitmentRoot,
		&header.TimeInMilliseconds,
		&header.Bits,
		&header.Nonce,
	)
	if err != nil {
		return nil, err
	}
	return header, nil
}

// SerializeBlock writes block to w in the storage encoding.
func SerializeBlock(w io.Writer, block *externalapi.DomainBlock) error {
	err := SerializeHeader(w, block.Header)
	if err != nil {
		return err
	}
	err = WriteElement(w, uint64(len(block.Transactions)))
	if err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		err := SerializeTransaction(w, tx)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeserializeBlock reads a block previously written with SerializeBlock from
// r.
func DeserializeBlock(r io.Reader) (*externalapi.DomainBlock, error) {
	header, err := DeserializeHeader(r)
	if err != nil {
		return nil, err
	}
	var numTransactions uint64
	err = ReadElement(r, &numTransactions)
	if err != nil {
		return nil, err
	}
	if numTransactions > maxSerializedItems {
		return nil, errors.Wrapf(errMalformed, "too many transactions: %d", numTransactions)
	}
	transactions := make([]*externalapi.DomainTransaction, numTransactions)
	for i := range transactions {
		transactions[i], err = DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
	}
	return &externalapi.DomainBlock{Header: header, Transactions: transactions}, nil
}
