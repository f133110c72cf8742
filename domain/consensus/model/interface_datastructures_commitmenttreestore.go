package model

import (
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/commitmenttree"
)

// CommitmentTreeStore represents the finalized note commitment trees of the
// shielded pools, along with the set of historical roots ("anchors") that
// spends are allowed to reference.
type CommitmentTreeStore interface {
	Store
	StageTree(pool externalapi.ShieldedPool, tree *commitmenttree.Tree)
	StageAnchors(pool externalapi.ShieldedPool, anchors []*externalapi.DomainHash)
	IsStaged() bool
	Tree(dbContext DBReader, pool externalapi.ShieldedPool) (*commitmenttree.Tree, error)
	HasAnchor(dbContext DBReader, pool externalapi.ShieldedPool, anchor *externalapi.DomainHash) (bool, error)
}
