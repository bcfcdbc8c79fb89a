package smt

import "errors"

var (
	ErrBadHashSize    = errors.New("smt: hasher output must be 32 bytes")
	ErrKeyOutOfRange  = errors.New("smt: leaf count exceeds the supported key limit")
	ErrMalformedProof = errors.New("smt: malformed proof")
	ErrStorage        = errors.New("smt: storage failure")
	ErrEmptyKeys      = errors.New("smt: at least one key is required")
	ErrNilStore       = errors.New("smt: a store is required")
)
