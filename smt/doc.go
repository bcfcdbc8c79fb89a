package smt

/*

# Sparse merkle tree primitives

This package implements a fixed-depth (256 level) binary sparse merkle tree:
an authenticated key-value store over the full 2^256 key space in which only
the non-empty entries are ever materialized, together with compact multi-key
proofs of inclusion and exclusion against a single root commitment.

It follows the same "functional primitives" style as the forestrie merkle
packages:

- small, composable functions
- explicit byte layouts
- a caller supplied stdlib `hash.Hash` for all digests

## Core invariants

1. The all-zero digest is the canonical empty sentinel. A branch whose
   children are both zero IS the zero digest and is never hashed or stored.
   The root is zero exactly when the tree is empty.
2. Branch hashing binds the height and the path prefix of the node, and
   leaves and branches carry distinct domain tags, so no digest can be
   reinterpreted at a different tree position.
3. Writing a value equal to its type's canonical zero is a deletion.
   Absence from the store is the zero node, never an error.

## Proof shape

A proof for N keys carries one 256-bit hint bitmap per key plus a single
shared sibling sequence. A set hint bit at height h records that the
sibling there was the zero digest and was omitted; a clear bit corresponds
to exactly one entry of the shared sequence. Generation and verification
run the identical climb schedule (see proof.go), so the sequence is
consumed byte-for-byte in the order it was produced. Proof values are
self-contained copies: verification needs no access to the tree or store.

## Storage

Nodes are keyed by path position (height plus truncated key), not by
digest, so rewriting a subtree is an in-place replace. The default store
is an in-memory map; pebblestore provides a durable implementation and
storecache an LRU layer. Mutation assumes a single writer per store, see
the SparseMerkleTree docs.

*/

import "math"

// TreeHeight is the number of levels in the tree, one per bit of an
// InternalKey.
const TreeHeight = 256

// KeyLimit bounds the number of distinct non-zero leaves so that leaf
// ordinals always fit a 32-bit index.
const KeyLimit = math.MaxUint32

// ExpectedPathSize is the capacity hint used for sibling collections. Most
// paths through a sparsely populated tree touch far fewer non-zero
// siblings than the full height.
const ExpectedPathSize = 16

// HashBytes is the fixed width of digests, path keys and hint bitmaps.
const HashBytes = 32
