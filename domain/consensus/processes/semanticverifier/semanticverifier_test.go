package semanticverifier

import (
	"context"
	"testing"
	"time"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/chainconfig"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/processes/batchverifier"
	"github.com/umbraproject/umbrad/domain/consensus/ruleerrors"
	"github.com/umbraproject/umbrad/domain/consensus/utils/consensushashing"
)

func setupVerifier(t *testing.T) (verifier *semanticVerifier, teardown func()) {
	params := chainconfig.SimnetParams
	scheduler := batchverifier.New(params.CryptoBatchSize, params.CryptoBatchMaxLatency)
	scheduler.Start()
	return New(&params, scheduler).(*semanticVerifier), scheduler.Stop
}

func generateKeyPair(t *testing.T) (*secp256k1.SchnorrKeyPair, [externalapi.PublicKeySize]byte) {
	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate a private key: %v", err)
	}
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("Failed to derive the public key: %v", err)
	}
	serialized, err := publicKey.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize the public key: %v", err)
	}
	var publicKeyBytes [externalapi.PublicKeySize]byte
	copy(publicKeyBytes[:], serialized[:])
	return keyPair, publicKeyBytes
}

func sign(t *testing.T, keyPair *secp256k1.SchnorrKeyPair,
	digest *externalapi.DomainHash) [externalapi.SignatureSize]byte {

	secpDigest := secp256k1.Hash(*digest.ByteArray())
	signature, err := keyPair.SchnorrSign(&secpDigest)
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	var signatureBytes [externalapi.SignatureSize]byte
	copy(signatureBytes[:], signature.Serialize()[:])
	return signatureBytes
}

// signedTransparentTransaction builds a one-input transaction spending the
// given outpoint, with a valid signature over the signing digest.
func signedTransparentTransaction(t *testing.T, outpointFill byte) *externalapi.DomainTransaction {
	keyPair, publicKeyBytes := generateKeyPair(t)

	var outpointIDBytes [externalapi.DomainHashSize]byte
	outpointIDBytes[0] = outpointFill
	tx := &externalapi.DomainTransaction{
		Version: 1,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: externalapi.DomainOutpoint{
				TransactionID: *externalapi.NewDomainTransactionIDFromByteArray(&outpointIDBytes),
				Index:         0,
			},
			PublicKey: publicKeyBytes,
		}},
		Outputs: []*externalapi.DomainTransactionOutput{{
			Value:           1000,
			ScriptPublicKey: publicKeyBytes[:],
		}},
	}
	tx.Inputs[0].Signature = sign(t, keyPair, consensushashing.TransactionSigningDigest(tx, 0))
	return tx
}

func TestVerifyBlockTransactions(t *testing.T) {
	verifier, teardown := setupVerifier(t)
	defer teardown()

	transactions := make([]*externalapi.DomainTransaction, 10)
	for i := range transactions {
		transactions[i] = signedTransparentTransaction(t, byte(i+1))
	}
	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: transactions,
	}

	err := verifier.VerifyBlockTransactions(context.Background(), block, false)
	if err != nil {
		t.Fatalf("A block of validly signed transactions failed verification: %+v", err)
	}
}

func TestForgedSignatureCondemnsOnlyItsTransaction(t *testing.T) {
	verifier, teardown := setupVerifier(t)
	defer teardown()

	const forgedIndex = 4
	transactions := make([]*externalapi.DomainTransaction, 10)
	for i := range transactions {
		transactions[i] = signedTransparentTransaction(t, byte(i+1))
	}
	// Flip one bit of one signature.
	transactions[forgedIndex].Inputs[0].Signature[17] ^= 0x01
	forgedID := *consensushashing.TransactionID(transactions[forgedIndex])

	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: transactions,
	}

	err := verifier.VerifyBlockTransactions(context.Background(), block, false)
	if err == nil {
		t.Fatal("A block with a forged signature unexpectedly verified")
	}
	var failure ruleerrors.ErrCryptoVerificationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected ErrCryptoVerificationFailure, got %+v", err)
	}
	if !failure.TransactionID.Equal(&forgedID) {
		t.Errorf("Failure blames transaction %s, expected %s", failure.TransactionID, forgedID)
	}
	if failure.ItemIndex != 0 {
		t.Errorf("Failure blames item %d, expected 0", failure.ItemIndex)
	}
}

func TestSkipCryptoVerificationAcceptsForgedSignatures(t *testing.T) {
	verifier, teardown := setupVerifier(t)
	defer teardown()

	tx := signedTransparentTransaction(t, 1)
	tx.Inputs[0].Signature[0] ^= 0xff
	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: []*externalapi.DomainTransaction{tx},
	}

	err := verifier.VerifyBlockTransactions(context.Background(), block, true)
	if err != nil {
		t.Fatalf("Crypto verification was not skipped: %+v", err)
	}
}

func TestUnsupportedTransactionVersion(t *testing.T) {
	verifier, teardown := setupVerifier(t)
	defer teardown()

	tx := signedTransparentTransaction(t, 1)
	tx.Version = verifier.params.MaxTransactionVersion + 1
	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: []*externalapi.DomainTransaction{tx},
	}

	err := verifier.VerifyBlockTransactions(context.Background(), block, false)
	if !errors.Is(err, ruleerrors.ErrUnsupportedTransactionVersion) {
		t.Fatalf("Expected ErrUnsupportedTransactionVersion, got %+v", err)
	}
}

func TestShieldedAuthorizationSignatures(t *testing.T) {
	verifier, teardown := setupVerifier(t)
	defer teardown()

	keyPair, publicKeyBytes := generateKeyPair(t)
	tx := &externalapi.DomainTransaction{
		Version: 2,
		Aurora: &externalapi.AuroraBundle{
			Spends: []*externalapi.AuroraSpend{{
				Nullifier:     externalapi.DomainNullifier{0x01},
				RandomizedKey: publicKeyBytes,
			}},
		},
		Borealis: &externalapi.BorealisBundle{
			Actions: []*externalapi.BorealisAction{{
				Nullifier:     externalapi.DomainNullifier{0x02},
				RandomizedKey: publicKeyBytes,
			}},
		},
	}
	tx.Aurora.Spends[0].AuthSignature = sign(t, keyPair, consensushashing.AuroraSpendDigest(tx, 0))
	tx.Borealis.Actions[0].AuthSignature = sign(t, keyPair, consensushashing.BorealisActionDigest(tx, 0))

	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: []*externalapi.DomainTransaction{tx},
	}
	err := verifier.VerifyBlockTransactions(context.Background(), block, false)
	if err != nil {
		t.Fatalf("Validly authorized shielded transaction failed verification: %+v", err)
	}

	// Corrupting the borealis authorization must fail exactly that item.
	corrupted := tx.Clone()
	corrupted.Borealis.Actions[0].AuthSignature[3] ^= 0x20
	block = &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: []*externalapi.DomainTransaction{corrupted},
	}
	err = verifier.VerifyBlockTransactions(context.Background(), block, false)
	var failure ruleerrors.ErrCryptoVerificationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected ErrCryptoVerificationFailure, got %+v", err)
	}
	if failure.Tag != "borealis action authorization" {
		t.Errorf("Failure blames %q, expected the borealis action", failure.Tag)
	}
}

func TestCanceledContextStopsVerification(t *testing.T) {
	verifier, teardown := setupVerifier(t)
	defer teardown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1},
		Transactions: []*externalapi.DomainTransaction{signedTransparentTransaction(t, 1)},
	}
	err := verifier.VerifyBlockTransactions(ctx, block, false)
	if err == nil {
		t.Fatal("Verification with a canceled context unexpectedly succeeded")
	}
}
