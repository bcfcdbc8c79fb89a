// Package smttesting generates reproducible sparse merkle tree test data.
// Generators are seeded explicitly so that the data, and therefore any
// failure, is the same from run to run.
package smttesting

import (
	"math/rand"
	"testing"

	"github.com/forestrie/go-smt/smt"
)

// G works for tests and benchmarks alike.
type G struct {
	T   testing.TB
	Rnd *rand.Rand
}

func NewG(t testing.TB, seed int64) *G {
	return &G{T: t, Rnd: rand.New(rand.NewSource(seed))}
}

// Key returns a uniformly random path key.
func (g *G) Key() smt.InternalKey {
	g.T.Helper()
	var k smt.InternalKey
	g.fill(k[:])
	return k
}

// Value returns a random non-zero value.
func (g *G) Value() smt.Bytes32 {
	g.T.Helper()
	var v smt.Bytes32
	for v == (smt.Bytes32{}) {
		g.fill(v[:])
	}
	return v
}

// KeyValues returns n random pairs with distinct keys.
func (g *G) KeyValues(n int) ([]smt.InternalKey, []smt.Bytes32) {
	g.T.Helper()
	keys := make([]smt.InternalKey, 0, n)
	values := make([]smt.Bytes32, 0, n)
	seen := make(map[smt.InternalKey]struct{}, n)
	for len(keys) < n {
		k := g.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
		values = append(values, g.Value())
	}
	return keys, values
}

func (g *G) fill(b []byte) {
	// Read on math/rand never fails.
	_, _ = g.Rnd.Read(b)
}
