// Package hashers provides the hash.Hash backends bound into sparse merkle
// trees. All of them produce 32 byte digests and absorb input
// incrementally; any other hash.Hash with a 32 byte sum (crypto/sha256
// included) works just as well.
//
// Two trees built over different backends commit to unrelated roots, and
// their proofs only verify against their own backend.
package hashers

import (
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Blake2bPersonalization is absorbed ahead of all input by NewBlake2b,
// keeping its digests disjoint from generic BLAKE2b-256 use.
const Blake2bPersonalization = "sparsemerkletree"

// turboShakeSeparation is the TurboSHAKE domain separation byte.
const turboShakeSeparation = 0x1f

// NewTurboShake128 returns a TurboSHAKE128 backend with a 32 byte output.
func NewTurboShake128() hash.Hash {
	return sha3.NewTurboShake128(turboShakeSeparation)
}

// NewBlake2b returns a BLAKE2b-256 backend personalized for sparse merkle
// tree use.
func NewBlake2b() hash.Hash {
	inner, err := blake2b.New256(nil)
	if err != nil {
		// New256 with a nil key cannot fail.
		panic(err)
	}
	p := &personalized{inner: inner, person: []byte(Blake2bPersonalization)}
	p.Reset()
	return p
}

// NewBlake3 returns a BLAKE3 backend with a 32 byte output.
func NewBlake3() hash.Hash {
	return blake3.New(32, nil)
}

// personalized prefixes every hashing run with a fixed personalization
// string, surviving Reset.
type personalized struct {
	inner  hash.Hash
	person []byte
}

func (p *personalized) Write(b []byte) (int, error) {
	return p.inner.Write(b)
}

func (p *personalized) Sum(b []byte) []byte {
	return p.inner.Sum(b)
}

func (p *personalized) Reset() {
	p.inner.Reset()
	_, _ = p.inner.Write(p.person)
}

func (p *personalized) Size() int {
	return p.inner.Size()
}

func (p *personalized) BlockSize() int {
	return p.inner.BlockSize()
}
