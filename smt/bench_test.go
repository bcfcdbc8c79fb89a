package smt_test

import (
	"crypto/sha256"
	"hash"
	"testing"

	"github.com/forestrie/go-smt/hashers"
	"github.com/forestrie/go-smt/smt"
	"github.com/forestrie/go-smt/smttesting"
)

func benchBackends() map[string]func() hash.Hash {
	return map[string]func() hash.Hash{
		"sha256":        sha256.New,
		"turboshake128": hashers.NewTurboShake128,
		"blake2b":       hashers.NewBlake2b,
		"blake3":        hashers.NewBlake3,
	}
}

func benchTree(b *testing.B, mk func() hash.Hash, n int) (*smt.SparseMerkleTree[smt.Bytes32], []smt.InternalKey, []smt.Bytes32) {
	b.Helper()
	g := smttesting.NewG(b, 61)
	keys, values := g.KeyValues(n)
	tree, err := smt.NewSparseMerkleTree[smt.Bytes32](mk(), smt.NewDefaultStore[smt.Bytes32]())
	if err != nil {
		b.Fatal(err)
	}
	for i := range keys {
		if _, err := tree.Update(keys[i], values[i]); err != nil {
			b.Fatal(err)
		}
	}
	return tree, keys, values
}

func BenchmarkUpdate(b *testing.B) {
	for name, mk := range benchBackends() {
		b.Run(name, func(b *testing.B) {
			tree, keys, values := benchTree(b, mk, 1024)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				k := keys[i%len(keys)]
				v := values[(i+1)%len(values)]
				if _, err := tree.Update(k, v); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkMerkleProof(b *testing.B) {
	const proven = 8
	for name, mk := range benchBackends() {
		b.Run(name, func(b *testing.B) {
			tree, keys, _ := benchTree(b, mk, 1024)
			subset := keys[:proven]
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := tree.MerkleProof(subset); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkVerify(b *testing.B) {
	const proven = 8
	for name, mk := range benchBackends() {
		b.Run(name, func(b *testing.B) {
			tree, keys, values := benchTree(b, mk, 1024)
			root := tree.Root()
			subset := keys[:proven]
			leaves := make([]smt.Leaf, proven)
			for i := range subset {
				leaves[i] = smt.NewLeaf(subset[i], values[i])
			}
			proof, err := tree.MerkleProof(subset)
			if err != nil {
				b.Fatal(err)
			}
			hasher := mk()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ok, err := proof.Verify(hasher, root, leaves)
				if err != nil {
					b.Fatal(err)
				}
				if !ok {
					b.Fatal("verification failed")
				}
			}
		})
	}
}
