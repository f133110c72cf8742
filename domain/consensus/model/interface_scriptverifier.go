package model

import "github.com/umbraproject/umbrad/domain/consensus/model/externalapi"

// ScriptVerifier decides whether a transparent input satisfies the spending
// condition of the output it consumes. The check is stateless: everything it
// needs is in its arguments. Implementations are provided by the script
// engine, which is outside the validation core.
type ScriptVerifier interface {
	VerifyScript(tx *externalapi.DomainTransaction, inputIndex int,
		scriptPublicKey []byte, value uint64) error
}
