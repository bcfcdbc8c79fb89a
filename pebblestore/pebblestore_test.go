package pebblestore

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-smt/smt"
	"github.com/forestrie/go-smt/smttesting"
)

func openTestStore(t *testing.T, path string) *Store[smt.Bytes32] {
	t.Helper()
	codec, err := NewCBORCodec[smt.Bytes32]()
	require.NoError(t, err)
	store, err := Open[smt.Bytes32](path, codec)
	require.NoError(t, err)
	return store
}

func TestBranchRoundTrip(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	key := smt.BranchKey{Height: 42}
	key.NodeKey[0] = 0x5a

	_, ok, err := store.GetBranch(key)
	require.NoError(t, err)
	require.False(t, ok)

	var branch smt.BranchNode
	branch.Left[0] = 1
	branch.Right[31] = 2
	require.NoError(t, store.InsertBranch(key, branch))

	got, ok, err := store.GetBranch(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, branch, got)

	require.NoError(t, store.RemoveBranch(key))
	_, ok, err = store.GetBranch(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLeafCountTracksInsertsAndRemoves(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	g := smttesting.NewG(t, 1)
	keys, values := g.KeyValues(5)

	n, err := store.LeafCount()
	require.NoError(t, err)
	require.Zero(t, n)

	for i := range keys {
		leaf := smt.LeafNode[smt.Bytes32]{Key: keys[i], Value: values[i]}
		require.NoError(t, store.InsertLeaf(keys[i], leaf))
	}
	n, err = store.LeafCount()
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	// Overwriting an existing leaf must not bump the counter.
	leaf := smt.LeafNode[smt.Bytes32]{Key: keys[0], Value: g.Value()}
	require.NoError(t, store.InsertLeaf(keys[0], leaf))
	n, err = store.LeafCount()
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	got, ok, err := store.GetLeaf(keys[0])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, leaf.Value, got.Value)

	// Removing an absent leaf is a no-op.
	require.NoError(t, store.RemoveLeaf(g.Key()))
	n, err = store.LeafCount()
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	for _, key := range keys {
		require.NoError(t, store.RemoveLeaf(key))
	}
	n, err = store.LeafCount()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTreeOverPebblePersistsAcrossReopen(t *testing.T) {
	path := t.TempDir()
	store := openTestStore(t, path)

	g := smttesting.NewG(t, 99)
	keys, values := g.KeyValues(32)

	tree, err := smt.NewSparseMerkleTree[smt.Bytes32](sha256.New(), store)
	require.NoError(t, err)
	for i := range keys {
		_, err := tree.Update(keys[i], values[i])
		require.NoError(t, err)
	}
	root := tree.Root()
	require.True(t, tree.Validate())
	require.NoError(t, store.Close())

	store = openTestStore(t, path)
	defer store.Close()

	reopened, err := smt.NewSparseMerkleTreeWithRoot[smt.Bytes32](sha256.New(), store, root)
	require.NoError(t, err)
	require.Equal(t, root, reopened.Root())
	require.True(t, reopened.Validate())

	for i := range keys {
		got, err := reopened.Get(keys[i])
		require.NoError(t, err)
		require.Equal(t, values[i], got)
	}

	n, err := store.LeafCount()
	require.NoError(t, err)
	require.Equal(t, uint64(len(keys)), n)
}

func TestIterationCoversAllRecords(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	g := smttesting.NewG(t, 3)
	keys, values := g.KeyValues(8)

	tree, err := smt.NewSparseMerkleTree[smt.Bytes32](sha256.New(), store)
	require.NoError(t, err)
	for i := range keys {
		_, err := tree.Update(keys[i], values[i])
		require.NoError(t, err)
	}

	leaves := map[smt.InternalKey]smt.Bytes32{}
	require.NoError(t, store.ForEachLeaf(func(key smt.InternalKey, leaf smt.LeafNode[smt.Bytes32]) error {
		leaves[key] = leaf.Value
		return nil
	}))
	require.Len(t, leaves, len(keys))
	for i := range keys {
		require.Equal(t, values[i], leaves[keys[i]])
	}

	branches := 0
	require.NoError(t, store.ForEachBranch(func(key smt.BranchKey, branch smt.BranchNode) error {
		require.False(t, branch.Left.IsZero() && branch.Right.IsZero())
		branches++
		return nil
	}))
	require.NotZero(t, branches)
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	require.NoError(t, store.Close())
	require.ErrorIs(t, store.Close(), ErrClosed)
}
