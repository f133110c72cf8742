// Package txscript implements umbra's minimal transparent locking script
// language. A script is one of three forms: OpTrue (anyone can spend),
// OpFalse (provably unspendable, used for burns and the genesis subsidy), or
// a 32-byte Schnorr public key that the spending input's public key must
// match. Signature validity over that key is enforced separately by the
// semantic verifier.
package txscript

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

const (
	// OpFalse makes an output provably unspendable.
	OpFalse = 0x00

	// OpTrue makes an output spendable by anyone.
	OpTrue = 0x51
)

// PublicKeyScriptLength is the length of a pay-to-public-key script.
const PublicKeyScriptLength = 32

type engine struct{}

// NewEngine returns the standard script verifier.
func NewEngine() model.ScriptVerifier {
	return &engine{}
}

// PayToPublicKeyScript returns a script that locks an output to the given
// 32-byte Schnorr public key.
func PayToPublicKeyScript(publicKey []byte) ([]byte, error) {
	if len(publicKey) != PublicKeyScriptLength {
		return nil, errors.Errorf("public key is %d bytes, expected %d",
			len(publicKey), PublicKeyScriptLength)
	}
	script := make([]byte, PublicKeyScriptLength)
	copy(script, publicKey)
	return script, nil
}

// UnspendableScript returns a script no input can satisfy.
func UnspendableScript() []byte {
	return []byte{OpFalse}
}

// AnyoneCanSpendScript returns a script any input satisfies.
func AnyoneCanSpendScript() []byte {
	return []byte{OpTrue}
}

// VerifyScript checks that the given input satisfies the spending conditions
// of the given script.
func (e *engine) VerifyScript(tx *externalapi.DomainTransaction, inputIndex int,
	scriptPublicKey []byte, value uint64) error {

	input := tx.Inputs[inputIndex]
	switch {
	case len(scriptPublicKey) == PublicKeyScriptLength:
		if !bytes.Equal(scriptPublicKey, input.PublicKey[:]) {
			return errors.Errorf("input %d's public key does not match "+
				"the output's locking key", inputIndex)
		}
		return nil

	case bytes.Equal(scriptPublicKey, []byte{OpTrue}):
		return nil

	case bytes.Equal(scriptPublicKey, []byte{OpFalse}):
		return errors.Errorf("input %d spends an unspendable output", inputIndex)

	default:
		return errors.Errorf("input %d spends an output with an "+
			"unrecognized script form (%d bytes)", inputIndex, len(scriptPublicKey))
	}
}
