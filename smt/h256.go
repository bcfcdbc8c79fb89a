package smt

import "encoding/hex"

// H256 is the uniform 32 byte digest value. It serves as node hash, value
// hash and hint bitmap. The zero value is the empty sentinel.
type H256 [HashBytes]byte

var zeroH256 H256

// ZeroH256 returns the empty sentinel digest.
func ZeroH256() H256 {
	return zeroH256
}

func (h H256) IsZero() bool {
	return h == zeroH256
}

// GetBit returns bit i, where bit 0 is the least significant bit of byte 0.
func (h H256) GetBit(i int) bool {
	return h[i/8]>>(uint(i)%8)&1 == 1
}

func (h *H256) SetBit(i int) {
	h[i/8] |= 1 << (uint(i) % 8)
}

func (h *H256) ClearBit(i int) {
	h[i/8] &^= 1 << (uint(i) % 8)
}

func (h H256) String() string {
	return hex.EncodeToString(h[:])
}
