package commitmenttreestore

import (
	"bytes"

	"github.com/umbraproject/umbrad/domain/consensus/database"
	"github.com/umbraproject/umbrad/domain/consensus/model"
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
	"github.com/umbraproject/umbrad/domain/consensus/utils/commitmenttree"
)

var (
	treeBucket   = database.MakeBucket([]byte("commitment-trees"))
	anchorBucket = database.MakeBucket([]byte("anchors"))
)

type poolAnchors map[externalapi.DomainHash]struct{}

// commitmentTreeStore represents the finalized note commitment trees and the
// anchor sets of the shielded pools.
type commitmentTreeStore struct {
	stagedTrees   map[externalapi.ShieldedPool]*commitmenttree.Tree
	stagedAnchors map[externalapi.ShieldedPool]poolAnchors

	treeCache map[externalapi.ShieldedPool]*commitmenttree.Tree
}

// New instantiates a new CommitmentTreeStore.
func New() model.CommitmentTreeStore {
	return &commitmentTreeStore{
		stagedTrees:   make(map[externalapi.ShieldedPool]*commitmenttree.Tree),
		stagedAnchors: make(map[externalapi.ShieldedPool]poolAnchors),
		treeCache:     make(map[externalapi.ShieldedPool]*commitmenttree.Tree),
	}
}

// StageTree stages the given tree as the new finalized frontier of the given
// pool.
func (cts *commitmentTreeStore) StageTree(pool externalapi.ShieldedPool, tree *commitmenttree.Tree) {
	cts.stagedTrees[pool] = tree.Clone()
}

// StageAnchors stages the given roots as valid anchors of the given pool.
func (cts *commitmentTreeStore) StageAnchors(pool externalapi.ShieldedPool, anchors []*externalapi.DomainHash) {
	staged, ok := cts.stagedAnchors[pool]
	if !ok {
		staged = make(poolAnchors)
		cts.stagedAnchors[pool] = staged
	}
	for _, anchor := range anchors {
		staged[*anchor] = struct{}{}
	}
}

func (cts *commitmentTreeStore) IsStaged() bool {
	return len(cts.stagedTrees) != 0 || len(cts.stagedAnchors) != 0
}

func (cts *commitmentTreeStore) Discard() {
	cts.stagedTrees = make(map[externalapi.ShieldedPool]*commitmenttree.Tree)
	cts.stagedAnchors = make(map[externalapi.ShieldedPool]poolAnchors)
}

func (cts *commitmentTreeStore) Commit(dbTx model.DBTransaction) error {
	for pool, tree := range cts.stagedTrees {
		treeBytes, err := cts.serializeTree(tree)
		if err != nil {
			return err
		}
		err = dbTx.Put(cts.treeKey(pool), treeBytes)
		if err != nil {
			return err
		}
		cts.treeCache[pool] = tree
	}
	for pool, staged := range cts.stagedAnchors {
		for anchor := range staged {
			anchor := anchor
			err := dbTx.Put(cts.anchorAsKey(pool, &anchor), []byte{})
			if err != nil {
				return err
			}
		}
	}
	cts.Discard()
	return nil
}

// Tree gets the finalized frontier of the given pool. A pool with no
// finalized state yet yields an empty tree.
func (cts *commitmentTreeStore) Tree(dbContext model.DBReader, pool externalapi.ShieldedPool) (*commitmenttree.Tree, error) {
	if tree, ok := cts.stagedTrees[pool]; ok {
		return tree.Clone(), nil
	}
	if tree, ok := cts.treeCache[pool]; ok {
		return tree.Clone(), nil
	}

	treeBytes, err := dbContext.Get(cts.treeKey(pool))
	if database.IsNotFoundError(err) {
		return commitmenttree.New(), nil
	}
	if err != nil {
		return nil, err
	}
	tree, err := cts.deserializeTree(treeBytes)
	if err != nil {
		return nil, err
	}
	cts.treeCache[pool] = tree
	return tree.Clone(), nil
}

// HasAnchor returns whether the given root has ever been a finalized anchor
// of the given pool.
func (cts *commitmentTreeStore) HasAnchor(dbContext model.DBReader, pool externalapi.ShieldedPool,
	anchor *externalapi.DomainHash) (bool, error) {

	if staged, ok := cts.stagedAnchors[pool]; ok {
		if _, ok := staged[*anchor]; ok {
			return true, nil
		}
	}
	return dbContext.Has(cts.anchorAsKey(pool, anchor))
}

func (cts *commitmentTreeStore) treeKey(pool externalapi.ShieldedPool) model.DBKey {
	return treeBucket.Key([]byte{byte(pool)})
}

func (cts *commitmentTreeStore) anchorAsKey(pool externalapi.ShieldedPool, anchor *externalapi.DomainHash) model.DBKey {
	return anchorBucket.Bucket([]byte{byte(pool)}).Key(anchor.ByteSlice())
}

func (cts *commitmentTreeStore) serializeTree(tree *commitmenttree.Tree) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := tree.Serialize(buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (cts *commitmentTreeStore) deserializeTree(treeBytes []byte) (*commitmenttree.Tree, error) {
	return commitmenttree.Deserialize(bytes.NewReader(treeBytes))
}
