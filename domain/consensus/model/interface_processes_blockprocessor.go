package model

import (
	"context"

	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// BlockProcessor is responsible for processing incoming blocks: running them
// through semantic verification and handing them to the state manager.
type BlockProcessor interface {
	ValidateAndInsertBlock(ctx context.Context, block *externalapi.DomainBlock) (*externalapi.TipInfo, error)
}
