package externalapi

import (
	"encoding/hex"
	"fmt"
)

// DomainTransactionID is the ID of a DomainTransaction.
type DomainTransactionID DomainHash

// NewDomainTransactionIDFromByteArray constructs a new TransactionID out of
// a byte array.
func NewDomainTransactionIDFromByteArray(transactionIDBytes *[DomainHashSize]byte) *DomainTransactionID {
	return &DomainTransactionID{
		hashArray: *transactionIDBytes,
	}
}

// NewDomainTransactionIDFromByteSlice constructs a new TransactionID out of
// a byte slice. Returns an error if the length of the byte slice is not
// exactly `DomainHashSize`.
func NewDomainTransactionIDFromByteSlice(transactionIDBytes []byte) (*DomainTransactionID, error) {
	hash, err := NewDomainHashFromByteSlice(transactionIDBytes)
	if err != nil {
		return nil, err
	}
	return (*DomainTransactionID)(hash), nil
}

// String stringifies a transaction ID.
func (id DomainTransactionID) String() string {
	return DomainHash(id).String()
}

// Clone returns a clone of DomainTransactionID.
func (id *DomainTransactionID) Clone() *DomainTransactionID {
	idClone := *id
	return &idClone
}

// Equal returns whether id equals to other.
func (id *DomainTransactionID) Equal(other *DomainTransactionID) bool {
	return (*DomainHash)(id).Equal((*DomainHash)(other))
}

// ByteArray returns the bytes in this transactionID represented as a bytes
// array. The transactionID bytes are cloned, therefore it is safe to modify
// the resulting array.
func (id *DomainTransactionID) ByteArray() *[DomainHashSize]byte {
	return (*DomainHash)(id).ByteArray()
}

// ByteSlice returns the bytes in this transactionID represented as a bytes
// slice. The transactionID bytes are cloned, therefore it is safe to modify
// the resulting slice.
func (id *DomainTransactionID) ByteSlice() []byte {
	return (*DomainHash)(id).ByteSlice()
}

// DomainNullifier is the one-time token that marks a shielded note as spent.
// It is unique per note; observing the same nullifier twice on one chain
// history is a double-spend.
type DomainNullifier [DomainHashSize]byte

// String stringifies a nullifier.
func (nf DomainNullifier) String() string {
	return hex.EncodeToString(nf[:])
}

// ShieldedPool identifies one of the network's shielded pools.
type ShieldedPool byte

// The shielded pools of the network. Aurora is the original shielded pool,
// borealis the one introduced by the borealis network upgrade.
const (
	PoolAurora ShieldedPool = iota
	PoolBorealis
)

// ShieldedPools lists all shielded pools in activation order.
var ShieldedPools = []ShieldedPool{PoolAurora, PoolBorealis}

func (pool ShieldedPool) String() string {
	switch pool {
	case PoolAurora:
		return "aurora"
	case PoolBorealis:
		return "borealis"
	default:
		return fmt.Sprintf("unknown pool (%d)", byte(pool))
	}
}

// SignatureSize is the size of a serialized Schnorr signature.
const SignatureSize = 64

// PublicKeySize is the size of a serialized Schnorr public key.
const PublicKeySize = 32

// DomainOutpoint represents a reference to a transparent transaction output.
type DomainOutpoint struct {
	TransactionID DomainTransactionID
	Index         uint32
}

// If this doesn't compile, it means the type definition has been changed, so
// it's an indication to update Equal and Clone accordingly.
var _ = DomainOutpoint{DomainTransactionID{}, 0}

// Equal returns whether op equals to other.
func (op *DomainOutpoint) Equal(other *DomainOutpoint) bool {
	if op == nil || other == nil {
		return op == other
	}
	return *op == *other
}

// Clone returns a clone of DomainOutpoint.
func (op *DomainOutpoint) Clone() *DomainOutpoint {
	opClone := *op
	return &opClone
}

// String stringifies an outpoint.
func (op DomainOutpoint) String() string {
	return fmt.Sprintf("(%s: %d)", op.TransactionID, op.Index)
}

// NewDomainOutpoint instantiates a new DomainOutpoint with the given id and
// index.
func NewDomainOutpoint(id *DomainTransactionID, index uint32) *DomainOutpoint {
	return &DomainOutpoint{
		TransactionID: *id,
		Index:         index,
	}
}

// DomainTransactionInput represents a transparent input of a transaction.
// The signature commits to the transaction's signing digest under PublicKey;
// whether PublicKey satisfies the previous output's spending condition is the
// script verifier collaborator's business.
type DomainTransactionInput struct {
	PreviousOutpoint DomainOutpoint
	PublicKey        [PublicKeySize]byte
	Signature        [SignatureSize]byte
	Sequence         uint64
}

// Clone returns a clone of DomainTransactionInput.
func (input *DomainTransactionInput) Clone() *DomainTransactionInput {
	inputClone := *input
	return &inputClone
}

// DomainTransactionOutput represents a transparent output of a transaction.
type DomainTransactionOutput struct {
	Value           uint64
	ScriptPublicKey []byte
}

// Clone returns a clone of DomainTransactionOutput.
func (output *DomainTransactionOutput) Clone() *DomainTransactionOutput {
	scriptPublicKeyClone := make([]byte, len(output.ScriptPublicKey))
	copy(scriptPublicKeyClone, output.ScriptPublicKey)
	return &DomainTransactionOutput{
		Value:           output.Value,
		ScriptPublicKey: scriptPublicKeyClone,
	}
}

// AuroraSpend reveals that some note in the aurora pool has been spent. The
// authorization signature commits to the spend's digest under the spend's
// randomized verification key.
type AuroraSpend struct {
	Nullifier     DomainNullifier
	Anchor        DomainHash
	RandomizedKey [PublicKeySize]byte
	AuthSignature [SignatureSize]byte
}

// Clone returns a clone of AuroraSpend.
func (spend *AuroraSpend) Clone() *AuroraSpend {
	spendClone := *spend
	return &spendClone
}

// AuroraOutput adds a new note commitment to the aurora pool's commitment
// tree.
type AuroraOutput struct {
	Commitment DomainHash
}

// Clone returns a clone of AuroraOutput.
func (output *AuroraOutput) Clone() *AuroraOutput {
	outputClone := *output
	return &outputClone
}

// AuroraBundle is the aurora-pool part of a transaction.
type AuroraBundle struct {
	Spends  []*AuroraSpend
	Outputs []*AuroraOutput
}

// Clone returns a clone of AuroraBundle.
func (bundle *AuroraBundle) Clone() *AuroraBundle {
	spendsClone := make([]*AuroraSpend, len(bundle.Spends))
	for i, spend := range bundle.Spends {
		spendsClone[i] = spend.Clone()
	}
	outputsClone := make([]*AuroraOutput, len(bundle.Outputs))
	for i, output := range bundle.Outputs {
		outputsClone[i] = output.Clone()
	}
	return &AuroraBundle{Spends: spendsClone, Outputs: outputsClone}
}

// BorealisAction both spends a note from and adds a note to the borealis
// pool.
type BorealisAction struct {
	Nullifier     DomainNullifier
	Anchor        DomainHash
	Commitment    DomainHash
	RandomizedKey [PublicKeySize]byte
	AuthSignature [SignatureSize]byte
}

// Clone returns a clone of BorealisAction.
func (action *BorealisAction) Clone() *BorealisAction {
	actionClone := *action
	return &actionClone
}

// BorealisBundle is the borealis-pool part of a transaction.
type BorealisBundle struct {
	Actions []*BorealisAction
}

// Clone returns a clone of BorealisBundle.
func (bundle *BorealisBundle) Clone() *BorealisBundle {
	actionsClone := make([]*BorealisAction, len(bundle.Actions))
	for i, action := range bundle.Actions {
		actionsClone[i] = action.Clone()
	}
	return &BorealisBundle{Actions: actionsClone}
}

// DomainTransaction represents a transaction over one or more of the
// network's pools. A transaction is immutable once constructed; the
// structural layer guarantees that at least one of the pool parts is
// present and well-formed.
type DomainTransaction struct {
	Version  uint16
	Inputs   []*DomainTransactionInput
	Outputs  []*DomainTransactionOutput
	Aurora   *AuroraBundle
	Borealis *BorealisBundle
	LockTime uint64

	// ID is the cached transaction ID. Populated lazily by
	// consensushashing.TransactionID; nil means not yet computed.
	ID *DomainTransactionID
}

// Clone returns a clone of DomainTransaction.
func (tx *DomainTransaction) Clone() *DomainTransaction {
	inputsClone := make([]*DomainTransactionInput, len(tx.Inputs))
	for i, input := range tx.Inputs {
		inputsClone[i] = input.Clone()
	}
	outputsClone := make([]*DomainTransactionOutput, len(tx.Outputs))
	for i, output := range tx.Outputs {
		outputsClone[i] = output.Clone()
	}
	var auroraClone *AuroraBundle
	if tx.Aurora != nil {
		auroraClone = tx.Aurora.Clone()
	}
	var borealisClone *BorealisBundle
	if tx.Borealis != nil {
		borealisClone = tx.Borealis.Clone()
	}
	var idClone *DomainTransactionID
	if tx.ID != nil {
		idClone = tx.ID.Clone()
	}
	return &DomainTransaction{
		Version:  tx.Version,
		Inputs:   inputsClone,
		Outputs:  outputsClone,
		Aurora:   auroraClone,
		Borealis: borealisClone,
		LockTime: tx.LockTime,
		ID:       idClone,
	}
}

// HasShieldedData returns whether the transaction touches any shielded pool.
func (tx *DomainTransaction) HasShieldedData() bool {
	return tx.Aurora != nil || tx.Borealis != nil
}
