package smt

import (
	"github.com/forestrie/go-smt/logger"
)

// Validate audits every persisted node against an independent re-walk from
// the root: each leaf digest is recomputed from its stored content, each
// branch digest from its children, and the results are compared with what
// the parent (or the root) commits to. It reports false for any mismatch,
// for a stored zero node, and for branches no leaf path reaches.
//
// This is a diagnostic for testing and auditing, not a hot path: its cost
// is proportional to the store size. It never returns an error; storage
// failures and a store without enumeration support are logged and reported
// as false.
func (t *SparseMerkleTree[V]) Validate() bool {
	log := logger.Logger()

	iterable, ok := t.store.(IterableStore[V])
	if !ok {
		log.Warn().Msg("validate: store does not support enumeration")
		return false
	}

	// Climb every leaf's path, checking each branch commits the digest
	// recomputed below it, and that the path terminates at the root.
	reached := make(map[BranchKey]struct{})
	verdict := true
	err := iterable.ForEachLeaf(func(key InternalKey, leaf LeafNode[V]) error {
		if isZeroValue[V](leaf.Value) {
			log.Warn().Str("key", key.String()).Msg("validate: stored zero leaf")
			verdict = false
			return nil
		}
		current := HashLeaf(t.hasher, key, leaf.Value.AsSlice())
		for h := 0; h < TreeHeight; h++ {
			bk := branchKeyAt(h, key)
			branch, ok, err := t.store.GetBranch(bk)
			if err != nil {
				return err
			}
			if !ok {
				log.Warn().Str("key", key.String()).Int("height", h).Msg("validate: missing ancestor branch")
				verdict = false
				return nil
			}
			reached[bk] = struct{}{}
			child := branch.Left
			if key.IsRight(h) {
				child = branch.Right
			}
			if child != current {
				log.Warn().Str("key", key.String()).Int("height", h).Msg("validate: ancestor commits a different digest")
				verdict = false
				return nil
			}
			current = Merge(t.hasher, h, bk.NodeKey, branch.Left, branch.Right)
		}
		if current != t.root {
			log.Warn().Str("key", key.String()).Msg("validate: leaf path does not reproduce the root")
			verdict = false
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("validate: store enumeration failed")
		return false
	}
	if !verdict {
		return false
	}

	// Every persisted branch must have been reached from some leaf, and no
	// persisted branch may be the collapsed zero node.
	branches := 0
	err = iterable.ForEachBranch(func(key BranchKey, branch BranchNode) error {
		branches++
		if branch.Left.IsZero() && branch.Right.IsZero() {
			log.Warn().Str("nodeKey", key.NodeKey.String()).Uint8("height", key.Height).Msg("validate: stored zero branch")
			verdict = false
			return nil
		}
		if _, ok := reached[key]; !ok {
			log.Warn().Str("nodeKey", key.NodeKey.String()).Uint8("height", key.Height).Msg("validate: orphaned branch")
			verdict = false
			return nil
		}
		h := int(key.Height)
		leftKey := key.NodeKey
		rightKey := key.NodeKey
		rightKey[h/8] |= 1 << (uint(h) % 8)
		if ok, err := t.childBacked(h, leftKey, branch.Left); err != nil {
			return err
		} else if !ok {
			log.Warn().Str("nodeKey", key.NodeKey.String()).Uint8("height", key.Height).Msg("validate: left child digest is not backed")
			verdict = false
			return nil
		}
		if ok, err := t.childBacked(h, rightKey, branch.Right); err != nil {
			return err
		} else if !ok {
			log.Warn().Str("nodeKey", key.NodeKey.String()).Uint8("height", key.Height).Msg("validate: right child digest is not backed")
			verdict = false
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("validate: store enumeration failed")
		return false
	}
	if !verdict {
		return false
	}

	// An empty store must commit to the empty root.
	if branches == 0 && !t.root.IsZero() {
		log.Warn().Msg("validate: non-zero root over an empty store")
		return false
	}
	return true
}

// childBacked checks that a non-zero child digest of a branch at height h
// is reproduced by a persisted node one level down: a leaf for h == 0, the
// merge of the child branch otherwise. Zero children are vacuously backed.
func (t *SparseMerkleTree[V]) childBacked(h int, childKey InternalKey, digest H256) (bool, error) {
	if digest.IsZero() {
		return true, nil
	}
	if h == 0 {
		leaf, ok, err := t.store.GetLeaf(childKey)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		return HashLeaf(t.hasher, childKey, leaf.Value.AsSlice()) == digest, nil
	}
	bk := BranchKey{Height: uint8(h - 1), NodeKey: childKey}
	branch, ok, err := t.store.GetBranch(bk)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return Merge(t.hasher, h-1, childKey, branch.Left, branch.Right) == digest, nil
}
