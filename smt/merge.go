package smt

import "hash"

// Domain tags keep leaf and branch digests in disjoint hash domains.
const (
	leafHashTag   = 0x00
	branchHashTag = 0x01
)

// HashLeaf computes:
//
//	H( 0x00 || key[32] || valueBytes )
//
// An empty valueBytes is the canonical zero value and yields the zero
// digest without hashing.
func HashLeaf(hasher hash.Hash, key InternalKey, valueBytes []byte) H256 {
	if len(valueBytes) == 0 {
		return zeroH256
	}
	hasher.Reset()
	_, _ = hasher.Write([]byte{leafHashTag})
	_, _ = hasher.Write(key[:])
	_, _ = hasher.Write(valueBytes)

	var out H256
	copy(out[:], hasher.Sum(nil))
	return out
}

// Merge combines two child digests into the digest of the branch at height
// h whose store position is nodeKey. Two zero children collapse to the
// zero digest, which is what keeps empty subtrees free. Otherwise the
// height and the path prefix are bound into the input:
//
//	H( 0x01 || height_u8 || nodeKey[32] || left[32] || right[32] )
//
// so a branch digest cannot be replayed at another height or path.
func Merge(hasher hash.Hash, h int, nodeKey InternalKey, left, right H256) H256 {
	if left.IsZero() && right.IsZero() {
		return zeroH256
	}
	hasher.Reset()
	_, _ = hasher.Write([]byte{branchHashTag, byte(h)})
	_, _ = hasher.Write(nodeKey[:])
	_, _ = hasher.Write(left[:])
	_, _ = hasher.Write(right[:])

	var out H256
	copy(out[:], hasher.Sum(nil))
	return out
}
