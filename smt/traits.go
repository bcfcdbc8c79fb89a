package smt

import "bytes"

// Value is the capability a leaf payload must provide: a byte view for
// hashing into the leaf digest, and the canonical zero instance. A value
// whose byte view equals its zero's byte view is the zero value; storing
// it is indistinguishable from deleting the key.
type Value[V any] interface {
	AsSlice() []byte
	Zero() V
}

func isZeroValue[V Value[V]](v V) bool {
	return bytes.Equal(v.AsSlice(), v.Zero().AsSlice())
}

func zeroValue[V Value[V]]() V {
	var v V
	return v.Zero()
}

// Bytes32 is a fixed width value, typically the hash of some larger
// payload. The all-zero array is its zero instance.
type Bytes32 [HashBytes]byte

func (b Bytes32) AsSlice() []byte {
	return b[:]
}

func (b Bytes32) Zero() Bytes32 {
	return Bytes32{}
}

// RawBytes stores an arbitrary byte payload directly. The empty slice is
// its zero instance.
type RawBytes []byte

func (r RawBytes) AsSlice() []byte {
	return r
}

func (r RawBytes) Zero() RawBytes {
	return nil
}
