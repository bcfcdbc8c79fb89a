package smt

import (
	"encoding/binary"
	"fmt"
	"hash"
)

// CompiledMerkleProof is the packed byte form of a MerkleProof:
//
//	[0:4]   uint32 big-endian  proof entry (leaf) count N
//	[4:8]   uint32 big-endian  hint bitmap width in bytes, always 32
//	[8:...] N hint bitmaps of 32 bytes each
//	[...:]  the shared sibling sequence, 32 bytes each, generation order
//
// Packing is purely a representation change; Decompile recovers a proof
// that verifies identically.
type CompiledMerkleProof []byte

const compiledHeaderBytes = 8

// Compile packs the proof into its flat byte form.
func (p *MerkleProof) Compile() (CompiledMerkleProof, error) {
	if len(p.LeavesBitmap) == 0 {
		return nil, ErrEmptyKeys
	}
	if uint64(len(p.LeavesBitmap)) > uint64(KeyLimit) {
		return nil, ErrKeyOutOfRange
	}

	buf := make([]byte, compiledHeaderBytes, compiledHeaderBytes+HashBytes*(len(p.LeavesBitmap)+len(p.Siblings)))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(p.LeavesBitmap)))
	binary.BigEndian.PutUint32(buf[4:8], HashBytes)
	for _, bitmap := range p.LeavesBitmap {
		buf = append(buf, bitmap[:]...)
	}
	for _, sibling := range p.Siblings {
		buf = append(buf, sibling[:]...)
	}
	return CompiledMerkleProof(buf), nil
}

// Decompile unpacks the byte form back into a MerkleProof, copying out of
// the buffer so the result is self-contained.
func (c CompiledMerkleProof) Decompile() (*MerkleProof, error) {
	if len(c) < compiledHeaderBytes {
		return nil, fmt.Errorf("%w: %d bytes is too short for the header", ErrMalformedProof, len(c))
	}
	entries64 := uint64(binary.BigEndian.Uint32(c[0:4]))
	width := binary.BigEndian.Uint32(c[4:8])
	if width != HashBytes {
		return nil, fmt.Errorf("%w: unsupported hint bitmap width %d", ErrMalformedProof, width)
	}
	if entries64 == 0 {
		return nil, fmt.Errorf("%w: zero proof entries", ErrMalformedProof)
	}
	body := c[compiledHeaderBytes:]
	if uint64(len(body)) < entries64*HashBytes {
		return nil, fmt.Errorf("%w: truncated hint bitmaps", ErrMalformedProof)
	}
	entries := int(entries64)
	rest := body[entries*HashBytes:]
	if len(rest)%HashBytes != 0 {
		return nil, fmt.Errorf("%w: sibling sequence is not a whole number of digests", ErrMalformedProof)
	}

	p := &MerkleProof{
		LeavesBitmap: make([]H256, entries),
		Siblings:     make([]H256, len(rest)/HashBytes),
	}
	for i := range p.LeavesBitmap {
		copy(p.LeavesBitmap[i][:], body[i*HashBytes:])
	}
	for i := range p.Siblings {
		copy(p.Siblings[i][:], rest[i*HashBytes:])
	}
	return p, nil
}

// ComputeRoot reconstructs the committed root directly from the byte form.
func (c CompiledMerkleProof) ComputeRoot(hasher hash.Hash, leaves []Leaf) (H256, error) {
	p, err := c.Decompile()
	if err != nil {
		return zeroH256, err
	}
	return p.ComputeRoot(hasher, leaves)
}

// Verify reports whether the packed proof binds the leaf claims to root.
func (c CompiledMerkleProof) Verify(hasher hash.Hash, root H256, leaves []Leaf) (bool, error) {
	p, err := c.Decompile()
	if err != nil {
		return false, err
	}
	return p.Verify(hasher, root, leaves)
}
