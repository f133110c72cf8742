package consensushashing

import (
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// Domain separation keys for the different consensus hashes. Changing any of
// these is a hard fork.
const (
	blockHashKey       = "UmbraBlockHash00"
	transactionIDKey   = "UmbraTxID0000000"
	transactionsRoot   = "UmbraTxsRoot0000"
	signingDigestKey   = "UmbraTxSigning00"
	auroraSpendKey     = "UmbraAuroraSpend"
	borealisActionKey  = "UmbraBorealisAct"
	commitmentMergeKey = "UmbraCommitMerge"
	uncommittedKey     = "UmbraUncommitted"
)

// hashWriter is a blake2b-256 writer with a consensus domain separation key.
type hashWriter struct {
	hash.Hash
}

func newHashWriter(key string) *hashWriter {
	blake, err := blake2b.New256([]byte(key))
	if err != nil {
		panic(errorFromBlake(err))
	}
	return &hashWriter{blake}
}

func errorFromBlake(err error) string {
	// blake2b.New256 only fails on invalid key sizes, and all keys here
	// are compile-time constants of a legal size.
	return "invalid blake2b key: " + err.Error()
}

// Finalize returns the resulting hash of everything written so far.
func (hw *hashWriter) Finalize() *externalapi.DomainHash {
	var sum [externalapi.DomainHashSize]byte
	copy(sum[:], hw.Sum(nil))
	return externalapi.NewDomainHashFromByteArray(&sum)
}

// HashMerkleBranches hashes the concatenation of the two given child hashes
// under the transactions-root domain separation key.
func HashMerkleBranches(left, right *externalapi.DomainHash) *externalapi.DomainHash {
	writer := newHashWriter(transactionsRoot)
	writer.Write(left.ByteSlice())
	writer.Write(right.ByteSlice())
	return writer.Finalize()
}

// MergeCommitmentBranches hashes the concatenation of the two given note
// commitment tree nodes under the commitment-tree domain separation key.
func MergeCommitmentBranches(left, right *externalapi.DomainHash) *externalapi.DomainHash {
	writer := newHashWriter(commitmentMergeKey)
	writer.Write(left.ByteSlice())
	writer.Write(right.ByteSlice())
	return writer.Finalize()
}

// UncommittedLeaf returns the node that pads absent leaf positions of the
// note commitment trees. It lives under its own domain separation key so no
// real note commitment, including the all-zero one, can collide with it.
func UncommittedLeaf() *externalapi.DomainHash {
	writer := newHashWriter(uncommittedKey)
	return writer.Finalize()
}
