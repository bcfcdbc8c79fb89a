package smt

import (
	"hash"
	"math/bits"
)

// InternalKey is the 256-bit traversal address of a leaf. Bit i selects the
// left (clear) or right (set) child at height i; bit 255 is the decision
// immediately under the root. Bit i lives in byte i/8 at position i%8, so
// the path read top-down orders keys by comparing byte 31 first.
//
// Distinct domain keys should map to distinct internal keys, which is what
// KeyFromBytes provides. The tree treats colliding internal keys as the
// same leaf.
type InternalKey [HashBytes]byte

// KeyFromBytes derives the internal key for a domain key by hashing it.
// Trees built with different hashers address disjoint path spaces, which
// is what makes their proofs mutually incompatible.
func KeyFromBytes(hasher hash.Hash, domainKey []byte) (InternalKey, error) {
	if hasher == nil || hasher.Size() != HashBytes {
		return InternalKey{}, ErrBadHashSize
	}
	hasher.Reset()
	_, _ = hasher.Write(domainKey)

	var k InternalKey
	copy(k[:], hasher.Sum(nil))
	return k, nil
}

// IsRight reports whether the path goes to the right child at height h.
func (k InternalKey) IsRight(h int) bool {
	return H256(k).GetBit(h)
}

// ParentPath returns the store position of the branch at height h on k's
// path: k with bits 0..h cleared. All keys below that branch share it.
func (k InternalKey) ParentPath(h int) InternalKey {
	return k.CopyBits(h + 1)
}

// CopyBits returns k with every bit below start cleared.
func (k InternalKey) CopyBits(start int) InternalKey {
	var out InternalKey
	if start >= TreeHeight {
		return out
	}
	i := start / 8
	copy(out[i:], k[i:])
	if rem := start % 8; rem > 0 {
		out[i] = k[i] & (0xff << uint(rem))
	}
	return out
}

// Cmp orders keys by their path read top-down: the key whose first
// divergent decision goes left sorts lower. Returns -1, 0 or 1.
func (k InternalKey) Cmp(other InternalKey) int {
	for i := HashBytes - 1; i >= 0; i-- {
		if k[i] != other[i] {
			if k[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ForkHeight returns the height of the lowest common branch of two
// distinct keys: the highest bit index at which they differ. Equal keys
// return -1.
func (k InternalKey) ForkHeight(other InternalKey) int {
	for i := HashBytes - 1; i >= 0; i-- {
		if x := k[i] ^ other[i]; x != 0 {
			return i*8 + bits.Len8(x) - 1
		}
	}
	return -1
}

func (k InternalKey) String() string {
	return H256(k).String()
}
