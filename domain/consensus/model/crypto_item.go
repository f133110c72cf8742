package model

import "github.com/umbraproject/umbrad/domain/consensus/model/externalapi"

// CryptoItemTag says which kind of authorization a crypto item carries. It
// only matters for error reporting; all items verify the same way.
type CryptoItemTag byte

// The kinds of crypto items the semantic verifier produces.
const (
	CryptoItemTransparentInput CryptoItemTag = iota
	CryptoItemAuroraSpend
	CryptoItemBorealisAction
)

func (tag CryptoItemTag) String() string {
	switch tag {
	case CryptoItemTransparentInput:
		return "transparent input signature"
	case CryptoItemAuroraSpend:
		return "aurora spend authorization"
	case CryptoItemBorealisAction:
		return "borealis action authorization"
	default:
		return "unknown crypto item"
	}
}

// CryptoItem is a single schnorr verification: a signature over a digest
// under a public key. Items from independent transactions are batched
// together by the crypto scheduler.
type CryptoItem struct {
	Tag       CryptoItemTag
	PublicKey [externalapi.PublicKeySize]byte
	Signature [externalapi.SignatureSize]byte
	Digest    externalapi.DomainHash

	// TransactionID and ItemIndex identify the item for error reporting.
	TransactionID externalapi.DomainTransactionID
	ItemIndex     int
}
