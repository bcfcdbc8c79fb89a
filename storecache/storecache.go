// Package storecache wraps any sparse merkle tree store with LRU caches
// for branch and leaf reads. Writes go through to the backing store and
// update the cached entry in place, so a subsequent read never observes a
// stale node. It obeys the same single-writer discipline as the engine.
package storecache

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/forestrie/go-smt/smt"
)

var ErrNotIterable = errors.New("storecache: backing store does not support enumeration")

// Cache is a read-through, write-through smt.Store.
type Cache[V any] struct {
	inner    smt.Store[V]
	branches *lru.Cache[smt.BranchKey, smt.BranchNode]
	leaves   *lru.Cache[smt.InternalKey, smt.LeafNode[V]]
}

// New wraps inner with caches holding up to size branches and size leaves.
func New[V any](inner smt.Store[V], size int) (*Cache[V], error) {
	branches, err := lru.New[smt.BranchKey, smt.BranchNode](size)
	if err != nil {
		return nil, err
	}
	leaves, err := lru.New[smt.InternalKey, smt.LeafNode[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{inner: inner, branches: branches, leaves: leaves}, nil
}

func (c *Cache[V]) GetBranch(key smt.BranchKey) (smt.BranchNode, bool, error) {
	if branch, ok := c.branches.Get(key); ok {
		return branch, true, nil
	}
	branch, ok, err := c.inner.GetBranch(key)
	if err != nil || !ok {
		return smt.BranchNode{}, false, err
	}
	c.branches.Add(key, branch)
	return branch, true, nil
}

func (c *Cache[V]) InsertBranch(key smt.BranchKey, branch smt.BranchNode) error {
	if err := c.inner.InsertBranch(key, branch); err != nil {
		return err
	}
	c.branches.Add(key, branch)
	return nil
}

func (c *Cache[V]) RemoveBranch(key smt.BranchKey) error {
	if err := c.inner.RemoveBranch(key); err != nil {
		return err
	}
	c.branches.Remove(key)
	return nil
}

func (c *Cache[V]) GetLeaf(key smt.InternalKey) (smt.LeafNode[V], bool, error) {
	if leaf, ok := c.leaves.Get(key); ok {
		return leaf, true, nil
	}
	leaf, ok, err := c.inner.GetLeaf(key)
	if err != nil || !ok {
		return smt.LeafNode[V]{}, false, err
	}
	c.leaves.Add(key, leaf)
	return leaf, true, nil
}

func (c *Cache[V]) InsertLeaf(key smt.InternalKey, leaf smt.LeafNode[V]) error {
	if err := c.inner.InsertLeaf(key, leaf); err != nil {
		return err
	}
	c.leaves.Add(key, leaf)
	return nil
}

func (c *Cache[V]) RemoveLeaf(key smt.InternalKey) error {
	if err := c.inner.RemoveLeaf(key); err != nil {
		return err
	}
	c.leaves.Remove(key)
	return nil
}

func (c *Cache[V]) LeafCount() (uint64, error) {
	return c.inner.LeafCount()
}

// ForEachBranch enumerates from the backing store, which holds the
// authoritative content.
func (c *Cache[V]) ForEachBranch(fn func(smt.BranchKey, smt.BranchNode) error) error {
	iterable, ok := c.inner.(smt.IterableStore[V])
	if !ok {
		return ErrNotIterable
	}
	return iterable.ForEachBranch(fn)
}

func (c *Cache[V]) ForEachLeaf(fn func(smt.InternalKey, smt.LeafNode[V]) error) error {
	iterable, ok := c.inner.(smt.IterableStore[V])
	if !ok {
		return ErrNotIterable
	}
	return iterable.ForEachLeaf(fn)
}
