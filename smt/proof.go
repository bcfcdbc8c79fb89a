package smt

import (
	"fmt"
	"hash"
	"sort"
)

// Leaf is one (key, value bytes) claim to verify a proof against. An empty
// Value claims the key is absent (an exclusion).
type Leaf struct {
	Key   InternalKey
	Value []byte
}

// NewLeaf builds the claim for a stored value. The type's canonical zero
// maps to the empty exclusion claim, matching what Update(key, zero)
// leaves in the tree.
func NewLeaf[V Value[V]](key InternalKey, value V) Leaf {
	if isZeroValue[V](value) {
		return Leaf{Key: key}
	}
	return Leaf{Key: key, Value: value.AsSlice()}
}

// MerkleProof is the sparse proof material for a set of keys: one hint
// bitmap per key, in ascending path order of the proven keys, plus the
// single shared sibling sequence in consumption order.
//
// Bit h of a key's bitmap is set when the sibling at height h was the zero
// digest and was omitted; a clear bit consumes one entry of Siblings.
// Heights at which a key's path has already merged into a neighbouring
// proven path are never consulted and are left set.
//
// A proof owns its digests outright. It can outlive the tree that produced
// it and verifies with no store access.
type MerkleProof struct {
	LeavesBitmap []H256
	Siblings     []H256
}

// MerkleProof builds a compact proof for the given keys against the
// current tree content. Duplicate keys are collapsed. The keys need not be
// present in the tree, which is how exclusion proofs are produced.
func (t *SparseMerkleTree[V]) MerkleProof(keys []InternalKey) (*MerkleProof, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyKeys
	}
	sorted := sortedUniqueKeys(keys)

	bitmaps := make([]H256, len(sorted))
	for i := range bitmaps {
		for j := range bitmaps[i] {
			bitmaps[i][j] = 0xff
		}
	}
	siblings := make([]H256, 0, ExpectedPathSize)

	type genState struct {
		rep    InternalKey // smallest key of the merged group
		bitmap int         // index of rep's bitmap
		height int
	}
	var stack []genState

	for i := 0; i < len(sorted); i++ {
		cur := genState{rep: sorted[i], bitmap: i}
		for {
			fLeft, fRight := -1, -1
			if len(stack) > 0 {
				fLeft = stack[len(stack)-1].rep.ForkHeight(cur.rep)
			}
			if i+1 < len(sorted) {
				fRight = cur.rep.ForkHeight(sorted[i+1])
			}
			target := climbTarget(fLeft, fRight)

			for h := cur.height; h < target; h++ {
				sibling, err := t.siblingAt(h, cur.rep)
				if err != nil {
					return nil, err
				}
				if !sibling.IsZero() {
					bitmaps[cur.bitmap].ClearBit(h)
					siblings = append(siblings, sibling)
				}
			}
			cur.height = target

			if target == TreeHeight {
				break
			}
			if target == fLeft {
				// The stack top is the left child of the branch at the fork
				// height; the merged group keeps its representative.
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				cur = genState{rep: top.rep, bitmap: top.bitmap, height: target + 1}
				continue
			}
			// target == fRight: parked until the group to the right climbs
			// back up to the fork.
			stack = append(stack, cur)
			break
		}
	}

	return &MerkleProof{LeavesBitmap: bitmaps, Siblings: siblings}, nil
}

// siblingAt reads the digest of the sibling of key's path at height h, or
// zero when the branch there is absent.
func (t *SparseMerkleTree[V]) siblingAt(h int, key InternalKey) (H256, error) {
	branch, ok, err := t.store.GetBranch(branchKeyAt(h, key))
	if err != nil {
		return zeroH256, err
	}
	if !ok {
		return zeroH256, nil
	}
	if key.IsRight(h) {
		return branch.Left, nil
	}
	return branch.Right, nil
}

// ComputeRoot reconstructs the root committed by this proof for the given
// leaf claims. The claims must cover exactly the keys the proof was
// generated for.
func (p *MerkleProof) ComputeRoot(hasher hash.Hash, leaves []Leaf) (H256, error) {
	if hasher == nil || hasher.Size() != HashBytes {
		return zeroH256, ErrBadHashSize
	}
	if len(leaves) == 0 {
		return zeroH256, ErrEmptyKeys
	}
	sorted := make([]Leaf, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.Cmp(sorted[j].Key) < 0 })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Key == sorted[i].Key {
			return zeroH256, fmt.Errorf("%w: duplicate leaf key %s", ErrMalformedProof, sorted[i].Key)
		}
	}
	if len(p.LeavesBitmap) != len(sorted) {
		return zeroH256, fmt.Errorf(
			"%w: %d hint bitmaps for %d leaves", ErrMalformedProof, len(p.LeavesBitmap), len(sorted))
	}

	type verifyState struct {
		rep    InternalKey
		bitmap int
		height int
		digest H256
	}
	var stack []verifyState
	cursor := 0
	var root H256

	for i := 0; i < len(sorted); i++ {
		cur := verifyState{
			rep:    sorted[i].Key,
			bitmap: i,
			digest: HashLeaf(hasher, sorted[i].Key, sorted[i].Value),
		}
		for {
			fLeft, fRight := -1, -1
			if len(stack) > 0 {
				fLeft = stack[len(stack)-1].rep.ForkHeight(cur.rep)
			}
			if i+1 < len(sorted) {
				fRight = cur.rep.ForkHeight(sorted[i+1].Key)
			}
			target := climbTarget(fLeft, fRight)

			for h := cur.height; h < target; h++ {
				var sibling H256
				if !p.LeavesBitmap[cur.bitmap].GetBit(h) {
					if cursor >= len(p.Siblings) {
						return zeroH256, fmt.Errorf(
							"%w: sibling sequence exhausted at height %d", ErrMalformedProof, h)
					}
					sibling = p.Siblings[cursor]
					cursor++
				}
				nodeKey := cur.rep.ParentPath(h)
				left, right := cur.digest, sibling
				if cur.rep.IsRight(h) {
					left, right = sibling, cur.digest
				}
				cur.digest = Merge(hasher, h, nodeKey, left, right)
			}
			cur.height = target

			if target == TreeHeight {
				root = cur.digest
				break
			}
			if target == fLeft {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				merged := Merge(
					hasher, target, cur.rep.ParentPath(target), top.digest, cur.digest)
				cur = verifyState{rep: top.rep, bitmap: top.bitmap, height: target + 1, digest: merged}
				continue
			}
			stack = append(stack, cur)
			break
		}
	}

	if cursor != len(p.Siblings) {
		return zeroH256, fmt.Errorf(
			"%w: %d unconsumed siblings", ErrMalformedProof, len(p.Siblings)-cursor)
	}
	return root, nil
}

// Verify reports whether the proof binds the given leaf claims to root.
// Reconstruction impossibilities are returned as errors wrapping
// ErrMalformedProof; a clean reconstruction of a different root is
// (false, nil).
func (p *MerkleProof) Verify(hasher hash.Hash, root H256, leaves []Leaf) (bool, error) {
	computed, err := p.ComputeRoot(hasher, leaves)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}

// climbTarget returns the height at which the current climb must stop:
// the nearer of the forks with the stack top and with the next unprocessed
// leaf, or the full tree height when neither bounds it.
func climbTarget(fLeft, fRight int) int {
	target := TreeHeight
	if fLeft >= 0 && fLeft < target {
		target = fLeft
	}
	if fRight >= 0 && fRight < target {
		target = fRight
	}
	return target
}

func sortedUniqueKeys(keys []InternalKey) []InternalKey {
	sorted := make([]InternalKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	out := sorted[:1]
	for _, k := range sorted[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
