package smt

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *SparseMerkleTree[Bytes32] {
	tree, err := NewSparseMerkleTree[Bytes32](sha256.New(), NewDefaultStore[Bytes32]())
	require.NoError(t, err)
	return tree
}

func testKey(t *testing.T, label string) InternalKey {
	key, err := KeyFromBytes(sha256.New(), []byte(label))
	require.NoError(t, err)
	return key
}

func testValue(label byte) Bytes32 {
	var v Bytes32
	v[0] = label
	return v
}

func TestTreeScenario(t *testing.T) {
	tree := newTestTree(t)
	require.True(t, tree.IsEmpty())
	require.True(t, tree.Root().IsZero())

	k1 := testKey(t, "k1")
	k2 := testKey(t, "k2")
	v1 := testValue(1)

	r1, err := tree.Update(k1, v1)
	require.NoError(t, err)
	require.False(t, r1.IsZero())
	require.Equal(t, r1, tree.Root())

	got, err := tree.Get(k1)
	require.NoError(t, err)
	require.Equal(t, v1, got)

	got, err = tree.Get(k2)
	require.NoError(t, err)
	require.Equal(t, Bytes32{}, got)

	proof, err := tree.MerkleProof([]InternalKey{k1})
	require.NoError(t, err)
	ok, err := proof.Verify(sha256.New(), r1, []Leaf{NewLeaf(k1, v1)})
	require.NoError(t, err)
	require.True(t, ok)

	root, err := tree.Update(k1, Bytes32{})
	require.NoError(t, err)
	require.True(t, root.IsZero())
	require.True(t, tree.IsEmpty())

	got, err = tree.Get(k1)
	require.NoError(t, err)
	require.Equal(t, Bytes32{}, got)
}

func TestUpdateIdempotence(t *testing.T) {
	treeA := newTestTree(t)
	treeB := newTestTree(t)

	key := testKey(t, "idempotent")
	value := testValue(9)

	rootA, err := treeA.Update(key, value)
	require.NoError(t, err)

	_, err = treeB.Update(key, value)
	require.NoError(t, err)
	rootB, err := treeB.Update(key, value)
	require.NoError(t, err)

	require.Equal(t, rootA, rootB)
}

func TestUpdateOrderIndependence(t *testing.T) {
	treeA := newTestTree(t)
	treeB := newTestTree(t)

	keys := make([]InternalKey, 8)
	for i := range keys {
		keys[i] = testKey(t, fmt.Sprintf("key-%d", i))
	}

	for i, key := range keys {
		_, err := treeA.Update(key, testValue(byte(i+1)))
		require.NoError(t, err)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		_, err := treeB.Update(keys[i], testValue(byte(i+1)))
		require.NoError(t, err)
	}

	require.Equal(t, treeA.Root(), treeB.Root())
}

func TestDeletionSymmetry(t *testing.T) {
	tree := newTestTree(t)

	// Deleting an absent key leaves the root unchanged.
	k1 := testKey(t, "present")
	r1, err := tree.Update(k1, testValue(1))
	require.NoError(t, err)

	root, err := tree.Update(testKey(t, "never written"), Bytes32{})
	require.NoError(t, err)
	require.Equal(t, r1, root)

	// Deleting every written key returns the tree, and the store, to empty.
	keys := make([]InternalKey, 16)
	for i := range keys {
		keys[i] = testKey(t, fmt.Sprintf("del-%d", i))
		_, err := tree.Update(keys[i], testValue(byte(i+1)))
		require.NoError(t, err)
	}

	for _, key := range keys {
		_, err := tree.Update(key, Bytes32{})
		require.NoError(t, err)
	}
	root, err = tree.Update(k1, Bytes32{})
	require.NoError(t, err)
	require.True(t, root.IsZero())

	n, err := tree.Store().LeafCount()
	require.NoError(t, err)
	require.Zero(t, n)

	branches := 0
	store := tree.Store().(*DefaultStore[Bytes32])
	require.NoError(t, store.ForEachBranch(func(BranchKey, BranchNode) error {
		branches++
		return nil
	}))
	require.Zero(t, branches)
}

func TestNewTreeRejectsBadInputs(t *testing.T) {
	_, err := NewSparseMerkleTree[Bytes32](sha512.New(), NewDefaultStore[Bytes32]())
	require.ErrorIs(t, err, ErrBadHashSize)

	_, err = NewSparseMerkleTree[Bytes32](nil, NewDefaultStore[Bytes32]())
	require.ErrorIs(t, err, ErrBadHashSize)

	_, err = NewSparseMerkleTree[Bytes32](sha256.New(), nil)
	require.ErrorIs(t, err, ErrNilStore)
}

// ceilingStore reports an arbitrary leaf count so the KeyLimit check can
// be exercised without four billion inserts.
type ceilingStore struct {
	*DefaultStore[Bytes32]
	count uint64
}

func (s *ceilingStore) LeafCount() (uint64, error) {
	return s.count, nil
}

func TestUpdateEnforcesKeyLimit(t *testing.T) {
	store := &ceilingStore{DefaultStore: NewDefaultStore[Bytes32]()}
	tree, err := NewSparseMerkleTree[Bytes32](sha256.New(), store)
	require.NoError(t, err)

	existing := testKey(t, "existing")
	_, err = tree.Update(existing, testValue(1))
	require.NoError(t, err)

	store.count = KeyLimit

	// A brand new leaf is refused.
	_, err = tree.Update(testKey(t, "one too many"), testValue(2))
	require.ErrorIs(t, err, ErrKeyOutOfRange)

	// Rewriting or deleting an existing leaf is not an insertion.
	_, err = tree.Update(existing, testValue(3))
	require.NoError(t, err)
	_, err = tree.Update(existing, Bytes32{})
	require.NoError(t, err)
}

// faultStore fails every branch read with a storage error.
type faultStore struct {
	*DefaultStore[Bytes32]
}

func (s *faultStore) GetBranch(BranchKey) (BranchNode, bool, error) {
	return BranchNode{}, false, fmt.Errorf("%w: disk on fire", ErrStorage)
}

func TestStorageFailuresPropagateUnchanged(t *testing.T) {
	inner := NewDefaultStore[Bytes32]()
	healthy, err := NewSparseMerkleTree[Bytes32](sha256.New(), inner)
	require.NoError(t, err)
	key := testKey(t, "k")
	root, err := healthy.Update(key, testValue(1))
	require.NoError(t, err)

	tree, err := NewSparseMerkleTreeWithRoot[Bytes32](sha256.New(), &faultStore{DefaultStore: inner}, root)
	require.NoError(t, err)

	_, err = tree.Get(key)
	require.ErrorIs(t, err, ErrStorage)

	_, err = tree.Update(key, testValue(2))
	require.ErrorIs(t, err, ErrStorage)

	_, err = tree.MerkleProof([]InternalKey{key})
	require.ErrorIs(t, err, ErrStorage)
}

func TestSharedStoreResumesTree(t *testing.T) {
	tree := newTestTree(t)
	key := testKey(t, "shared")
	value := testValue(5)
	root, err := tree.Update(key, value)
	require.NoError(t, err)

	resumed, err := NewSparseMerkleTreeWithRoot[Bytes32](sha256.New(), tree.Store(), root)
	require.NoError(t, err)

	got, err := resumed.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
	require.Equal(t, root, resumed.Root())
}
