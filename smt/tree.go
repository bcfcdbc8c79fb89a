package smt

import "hash"

// SparseMerkleTree owns the current root digest and a handle to a store.
// All operations run to completion on the caller's goroutine. Update
// requires exclusive access to the root and the store for its duration;
// callers sharing a store between writers, or reading concurrently with a
// writer, must serialize externally. Proof verification never touches the
// tree and is freely concurrent.
//
// The tree resets and reuses the hasher it was constructed with, which is
// safe under that same single-writer discipline.
type SparseMerkleTree[V Value[V]] struct {
	hasher hash.Hash
	store  Store[V]
	root   H256
}

// NewSparseMerkleTree returns an empty tree using hasher for all digests.
// The hasher must produce 32 byte sums.
func NewSparseMerkleTree[V Value[V]](hasher hash.Hash, store Store[V]) (*SparseMerkleTree[V], error) {
	return NewSparseMerkleTreeWithRoot(hasher, store, zeroH256)
}

// NewSparseMerkleTreeWithRoot resumes a tree over a previously populated
// store, for example a snapshot shared between readers.
func NewSparseMerkleTreeWithRoot[V Value[V]](hasher hash.Hash, store Store[V], root H256) (*SparseMerkleTree[V], error) {
	if hasher == nil || hasher.Size() != HashBytes {
		return nil, ErrBadHashSize
	}
	if store == nil {
		return nil, ErrNilStore
	}
	return &SparseMerkleTree[V]{hasher: hasher, store: store, root: root}, nil
}

// Root returns the current root digest. The root is zero exactly when the
// tree is empty.
func (t *SparseMerkleTree[V]) Root() H256 {
	return t.root
}

func (t *SparseMerkleTree[V]) IsEmpty() bool {
	return t.root.IsZero()
}

// Store exposes the backing store, for callers that share it across trees.
func (t *SparseMerkleTree[V]) Store() Store[V] {
	return t.store
}

// Get returns the value at key, or the zero value if the key is empty. It
// walks the branch path from the root and short-circuits at the first
// absent branch or zero child, so a missing key costs as little as the
// depth of the populated region above it.
func (t *SparseMerkleTree[V]) Get(key InternalKey) (V, error) {
	if t.root.IsZero() {
		return zeroValue[V](), nil
	}
	for h := TreeHeight - 1; h >= 0; h-- {
		branch, ok, err := t.store.GetBranch(branchKeyAt(h, key))
		if err != nil {
			return zeroValue[V](), err
		}
		if !ok {
			return zeroValue[V](), nil
		}
		child := branch.Left
		if key.IsRight(h) {
			child = branch.Right
		}
		if child.IsZero() {
			return zeroValue[V](), nil
		}
	}
	leaf, ok, err := t.store.GetLeaf(key)
	if err != nil {
		return zeroValue[V](), err
	}
	if !ok {
		return zeroValue[V](), nil
	}
	return leaf.Value, nil
}

// Update writes value at key and returns the new root. A zero value is a
// deletion: the leaf and every ancestor that collapses to zero are removed
// from the store rather than stored as zero nodes.
func (t *SparseMerkleTree[V]) Update(key InternalKey, value V) (H256, error) {
	// Collect the sibling digest at every height, walking root to leaf.
	// Once a branch is absent the whole subtree below it is empty and the
	// remaining siblings stay zero.
	var siblings [TreeHeight]H256
	for h := TreeHeight - 1; h >= 0; h-- {
		branch, ok, err := t.store.GetBranch(branchKeyAt(h, key))
		if err != nil {
			return zeroH256, err
		}
		if !ok {
			break
		}
		if key.IsRight(h) {
			siblings[h] = branch.Left
		} else {
			siblings[h] = branch.Right
		}
	}

	var current H256
	if isZeroValue[V](value) {
		if err := t.store.RemoveLeaf(key); err != nil {
			return zeroH256, err
		}
	} else {
		_, exists, err := t.store.GetLeaf(key)
		if err != nil {
			return zeroH256, err
		}
		if !exists {
			n, err := t.store.LeafCount()
			if err != nil {
				return zeroH256, err
			}
			if n >= KeyLimit {
				return zeroH256, ErrKeyOutOfRange
			}
		}
		if err := t.store.InsertLeaf(key, LeafNode[V]{Key: key, Value: value}); err != nil {
			return zeroH256, err
		}
		current = HashLeaf(t.hasher, key, value.AsSlice())
	}

	// Recompute every ancestor leaf to root, persisting non-zero branches
	// and removing collapsed ones.
	for h := 0; h < TreeHeight; h++ {
		bk := branchKeyAt(h, key)
		left, right := current, siblings[h]
		if key.IsRight(h) {
			left, right = siblings[h], current
		}
		if left.IsZero() && right.IsZero() {
			if err := t.store.RemoveBranch(bk); err != nil {
				return zeroH256, err
			}
			current = zeroH256
			continue
		}
		if err := t.store.InsertBranch(bk, BranchNode{Left: left, Right: right}); err != nil {
			return zeroH256, err
		}
		current = Merge(t.hasher, h, bk.NodeKey, left, right)
	}

	t.root = current
	return t.root, nil
}
