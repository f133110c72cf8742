package txscript

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

func transactionSpendingWithKey(publicKey [externalapi.PublicKeySize]byte) *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Version: 1,
		Inputs: []*externalapi.DomainTransactionInput{{
			PublicKey: publicKey,
		}},
	}
}

func TestPayToPublicKeyScript(t *testing.T) {
	var publicKey [externalapi.PublicKeySize]byte
	publicKey[0] = 0xaa
	publicKey[31] = 0xbb

	script, err := PayToPublicKeyScript(publicKey[:])
	require.NoError(t, err)
	require.Equal(t, publicKey[:], script)

	// The script is a copy, not an alias.
	script[0] ^= 0xff
	require.Equal(t, byte(0xaa), publicKey[0])

	_, err = PayToPublicKeyScript(publicKey[:16])
	require.Error(t, err)
}

func TestVerifyScript(t *testing.T) {
	engine := NewEngine()

	var lockingKey, otherKey [externalapi.PublicKeySize]byte
	lockingKey[5] = 0x01
	otherKey[5] = 0x02
	lockingScript, err := PayToPublicKeyScript(lockingKey[:])
	require.NoError(t, err)

	tests := []struct {
		name            string
		scriptPublicKey []byte
		inputKey        [externalapi.PublicKeySize]byte
		expectedError   bool
	}{
		{"matching key", lockingScript, lockingKey, false},
		{"mismatched key", lockingScript, otherKey, true},
		{"anyone can spend", AnyoneCanSpendScript(), otherKey, false},
		{"unspendable", UnspendableScript(), lockingKey, true},
		{"unrecognized form", []byte{0x01, 0x02, 0x03}, lockingKey, true},
		{"empty script", nil, lockingKey, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tx := transactionSpendingWithKey(test.inputKey)
			err := engine.VerifyScript(tx, 0, test.scriptPublicKey, 1000)
			if test.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
