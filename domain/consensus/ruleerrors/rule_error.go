// Package ruleerrors defines the errors a block or transaction can be
// rejected with. A RuleError means the data itself is at fault; anything else
// is an infrastructure failure and must never mark a block invalid.
package ruleerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules. It has full support for errors.Is and errors.As, so the
// specific violation can be detected with errors.Is(err, ruleerrors.ErrXxx).
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface.
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface.
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// Errorf formats according to a format specifier and returns the string as a
// rule error wrapping the given base sentinel.
func Errorf(baseError error, format string, args ...interface{}) error {
	return errors.WithStack(RuleError{
		message: fmt.Sprintf(format, args...),
		inner:   baseError,
	})
}

// Wrap wraps the given error into a RuleError with the given sentinel as the
// message.
func Wrap(baseError error, wrappedError error) error {
	return errors.WithStack(RuleError{
		message: baseError.Error(),
		inner:   wrappedError,
	})
}

// Is lets errors.Is treat a bare sentinel as matching any RuleError built
// from it with Errorf.
func (e RuleError) Is(target error) bool {
	if t, ok := target.(RuleError); ok {
		return e.message == t.message || (e.inner != nil && errors.Is(e.inner, target))
	}
	return false
}

// IsRuleError returns whether the given error (or anything in its chain) is a
// rule violation, as opposed to an infrastructure failure.
func IsRuleError(err error) bool {
	var ruleError RuleError
	if errors.As(err, &ruleError) {
		return true
	}
	var missingTxOut ErrMissingTxOut
	if errors.As(err, &missingTxOut) {
		return true
	}
	var duplicateNullifier ErrDuplicateNullifier
	if errors.As(err, &duplicateNullifier) {
		return true
	}
	var cryptoFailure ErrCryptoVerificationFailure
	return errors.As(err, &cryptoFailure)
}

// Semantic rule errors.
var (
	// ErrUnsupportedTransactionVersion indicates a transaction carries a
	// version beyond the accepted range.
	ErrUnsupportedTransactionVersion = newRuleError("ErrUnsupportedTransactionVersion")

	// ErrScriptValidation indicates a transparent input failed its previous
	// output's spending condition.
	ErrScriptValidation = newRuleError("ErrScriptValidation")

	// ErrInvalidPoW indicates a block whose hash does not satisfy its own
	// claimed difficulty target, or whose target exceeds the network limit.
	ErrInvalidPoW = newRuleError("ErrInvalidPoW")
)

// Contextual rule errors.
var (
	// ErrDuplicateBlock indicates a block that is already known.
	ErrDuplicateBlock = newRuleError("ErrDuplicateBlock")

	// ErrKnownInvalid indicates a block that previously failed validation.
	ErrKnownInvalid = newRuleError("ErrKnownInvalid")

	// ErrMissingParent indicates a block whose parent is not known.
	ErrMissingParent = newRuleError("ErrMissingParent")

	// ErrCheckpointMismatch indicates a block at a checkpoint height whose
	// hash differs from the checkpoint.
	ErrCheckpointMismatch = newRuleError("ErrCheckpointMismatch")

	// ErrPrunedAncestry indicates a block that forks below the finalized
	// tip. Such a fork can never win and is rejected outright.
	ErrPrunedAncestry = newRuleError("ErrPrunedAncestry")

	// ErrDoubleSpendInBlock indicates a block where two transactions spend
	// the same transparent output.
	ErrDoubleSpendInBlock = newRuleError("ErrDoubleSpendInBlock")

	// ErrDuplicateNullifierInBlock indicates a block where the same
	// nullifier of one pool is revealed twice.
	ErrDuplicateNullifierInBlock = newRuleError("ErrDuplicateNullifierInBlock")

	// ErrUnknownAnchor indicates a shielded spend referencing a commitment
	// root that was never an anchor on this fork.
	ErrUnknownAnchor = newRuleError("ErrUnknownAnchor")

	// ErrBadCommitmentRoot indicates a header whose declared post-block
	// commitment root does not match the recomputed tree.
	ErrBadCommitmentRoot = newRuleError("ErrBadCommitmentRoot")

	// ErrSpendTooHigh indicates a transaction whose transparent outputs
	// exceed its transparent inputs.
	ErrSpendTooHigh = newRuleError("ErrSpendTooHigh")

	// ErrTimeTooOld indicates a block whose timestamp is not after the
	// median time of its ancestors.
	ErrTimeTooOld = newRuleError("ErrTimeTooOld")
)

// ErrMissingTxOut indicates a transaction tried to spend transparent outputs
// that are not present in its fork's UTXO set.
type ErrMissingTxOut struct {
	MissingOutpoints []*externalapi.DomainOutpoint
}

// NewErrMissingTxOut creates a new ErrMissingTxOut error.
func NewErrMissingTxOut(missingOutpoints []*externalapi.DomainOutpoint) error {
	return errors.WithStack(ErrMissingTxOut{missingOutpoints})
}

func (e ErrMissingTxOut) Error() string {
	outpointStrings := make([]string, 0, len(e.MissingOutpoints))
	for _, outpoint := range e.MissingOutpoints {
		outpointStrings = append(outpointStrings, outpoint.String())
	}
	return fmt.Sprintf("missing the following outpoints: %s", strings.Join(outpointStrings, ", "))
}

// ErrDuplicateNullifier indicates a shielded spend revealing a nullifier that
// is already spent on its fork.
type ErrDuplicateNullifier struct {
	Pool      externalapi.ShieldedPool
	Nullifier externalapi.DomainNullifier
}

// NewErrDuplicateNullifier creates a new ErrDuplicateNullifier error.
func NewErrDuplicateNullifier(pool externalapi.ShieldedPool, nullifier externalapi.DomainNullifier) error {
	return errors.WithStack(ErrDuplicateNullifier{Pool: pool, Nullifier: nullifier})
}

func (e ErrDuplicateNullifier) Error() string {
	return fmt.Sprintf("nullifier %s is already spent in the %s pool", e.Nullifier, e.Pool)
}

// ErrCryptoVerificationFailure indicates a specific signature or
// authorization that failed verification. It pinpoints the failing item, not
// just the failing transaction.
type ErrCryptoVerificationFailure struct {
	Tag           string
	TransactionID externalapi.DomainTransactionID
	ItemIndex     int
}

// NewErrCryptoVerificationFailure creates a new ErrCryptoVerificationFailure
// error.
func NewErrCryptoVerificationFailure(tag string, transactionID externalapi.DomainTransactionID,
	itemIndex int) error {

	return errors.WithStack(ErrCryptoVerificationFailure{
		Tag:           tag,
		TransactionID: transactionID,
		ItemIndex:     itemIndex,
	})
}

func (e ErrCryptoVerificationFailure) Error() string {
	return fmt.Sprintf("%s %d of transaction %s failed verification",
		e.Tag, e.ItemIndex, e.TransactionID)
}
