package model

import (
	"context"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// SemanticVerifier validates everything about a block's transactions that
// does not require chain state: signatures, authorizations and version
// acceptability. When skipCryptoVerification is set (blocks under a known
// checkpoint), signature checks are skipped and only the cheap semantic
// checks run.
type SemanticVerifier interface {
	VerifyBlockTransactions(ctx context.Context, block *externalapi.DomainBlock,
		skipCryptoVerification bool) error
}
