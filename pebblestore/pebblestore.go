// Package pebblestore persists sparse merkle tree nodes in a
// cockroachdb/pebble database.
//
// The key space uses a one byte tag followed by the fixed width node
// position: 'b' + height + nodeKey for branches, 'l' + pathKey for leaves,
// and 'n' for the leaf counter. Branch values are the raw 64 child digest
// bytes; leaf values go through a pluggable codec, CBOR by default.
//
// Writes follow the engine's single-writer discipline, so the leaf counter
// is maintained with plain read-modify-write batches. Durability beyond
// the process is the caller's concern: writes are unsynced and Close
// flushes.
package pebblestore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/forestrie/go-smt/logger"
	"github.com/forestrie/go-smt/smt"
)

const (
	branchTag = 'b'
	leafTag   = 'l'
	countTag  = 'n'

	branchValueBytes = 2 * smt.HashBytes
)

var ErrClosed = errors.New("pebblestore: store is closed")

// Store implements smt.Store and smt.IterableStore over a pebble database.
type Store[V any] struct {
	db    *pebble.DB
	codec Codec[V]
}

// Open opens (creating if needed) the database at path.
func Open[V any](path string, codec Codec[V]) (*Store[V], error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", smt.ErrStorage, path, err)
	}
	log := logger.Logger()
	log.Debug().Str("path", path).Msg("pebblestore: opened")
	return &Store[V]{db: db, codec: codec}, nil
}

// Close flushes outstanding writes and releases the database.
func (s *Store[V]) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	if err := s.db.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", smt.ErrStorage, err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", smt.ErrStorage, err)
	}
	s.db = nil
	log := logger.Logger()
	log.Debug().Msg("pebblestore: closed")
	return nil
}

func branchKeyBytes(key smt.BranchKey) []byte {
	buf := make([]byte, 2+smt.HashBytes)
	buf[0] = branchTag
	buf[1] = key.Height
	copy(buf[2:], key.NodeKey[:])
	return buf
}

func leafKeyBytes(key smt.InternalKey) []byte {
	buf := make([]byte, 1+smt.HashBytes)
	buf[0] = leafTag
	copy(buf[1:], key[:])
	return buf
}

func (s *Store[V]) GetBranch(key smt.BranchKey) (smt.BranchNode, bool, error) {
	value, closer, err := s.db.Get(branchKeyBytes(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return smt.BranchNode{}, false, nil
	}
	if err != nil {
		return smt.BranchNode{}, false, fmt.Errorf("%w: get branch: %v", smt.ErrStorage, err)
	}
	defer closer.Close()

	if len(value) != branchValueBytes {
		return smt.BranchNode{}, false, fmt.Errorf(
			"%w: branch record is %d bytes, want %d", smt.ErrStorage, len(value), branchValueBytes)
	}
	var branch smt.BranchNode
	copy(branch.Left[:], value[:smt.HashBytes])
	copy(branch.Right[:], value[smt.HashBytes:])
	return branch, true, nil
}

func (s *Store[V]) InsertBranch(key smt.BranchKey, branch smt.BranchNode) error {
	value := make([]byte, branchValueBytes)
	copy(value[:smt.HashBytes], branch.Left[:])
	copy(value[smt.HashBytes:], branch.Right[:])
	if err := s.db.Set(branchKeyBytes(key), value, pebble.NoSync); err != nil {
		return fmt.Errorf("%w: insert branch: %v", smt.ErrStorage, err)
	}
	return nil
}

func (s *Store[V]) RemoveBranch(key smt.BranchKey) error {
	if err := s.db.Delete(branchKeyBytes(key), pebble.NoSync); err != nil {
		return fmt.Errorf("%w: remove branch: %v", smt.ErrStorage, err)
	}
	return nil
}

func (s *Store[V]) GetLeaf(key smt.InternalKey) (smt.LeafNode[V], bool, error) {
	value, closer, err := s.db.Get(leafKeyBytes(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return smt.LeafNode[V]{}, false, nil
	}
	if err != nil {
		return smt.LeafNode[V]{}, false, fmt.Errorf("%w: get leaf: %v", smt.ErrStorage, err)
	}
	defer closer.Close()

	v, err := s.codec.Unmarshal(value)
	if err != nil {
		return smt.LeafNode[V]{}, false, fmt.Errorf("%w: decode leaf: %v", smt.ErrStorage, err)
	}
	return smt.LeafNode[V]{Key: key, Value: v}, true, nil
}

func (s *Store[V]) InsertLeaf(key smt.InternalKey, leaf smt.LeafNode[V]) error {
	value, err := s.codec.Marshal(leaf.Value)
	if err != nil {
		return fmt.Errorf("%w: encode leaf: %v", smt.ErrStorage, err)
	}

	_, existed, err := s.GetLeaf(key)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(leafKeyBytes(key), value, nil); err != nil {
		return fmt.Errorf("%w: insert leaf: %v", smt.ErrStorage, err)
	}
	if !existed {
		n, err := s.LeafCount()
		if err != nil {
			return err
		}
		if err := setCount(batch, n+1); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("%w: insert leaf: %v", smt.ErrStorage, err)
	}
	return nil
}

func (s *Store[V]) RemoveLeaf(key smt.InternalKey) error {
	_, existed, err := s.GetLeaf(key)
	if err != nil {
		return err
	}
	if !existed {
		return nil
	}
	n, err := s.LeafCount()
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(leafKeyBytes(key), nil); err != nil {
		return fmt.Errorf("%w: remove leaf: %v", smt.ErrStorage, err)
	}
	if err := setCount(batch, n-1); err != nil {
		return err
	}
	if err := batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("%w: remove leaf: %v", smt.ErrStorage, err)
	}
	return nil
}

func (s *Store[V]) LeafCount() (uint64, error) {
	value, closer, err := s.db.Get([]byte{countTag})
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: leaf count: %v", smt.ErrStorage, err)
	}
	defer closer.Close()

	if len(value) != 8 {
		return 0, fmt.Errorf("%w: leaf count record is %d bytes, want 8", smt.ErrStorage, len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

func setCount(batch *pebble.Batch, n uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	if err := batch.Set([]byte{countTag}, buf[:], nil); err != nil {
		return fmt.Errorf("%w: leaf count: %v", smt.ErrStorage, err)
	}
	return nil
}

func (s *Store[V]) ForEachBranch(fn func(smt.BranchKey, smt.BranchNode) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{branchTag},
		UpperBound: []byte{branchTag + 1},
	})
	if err != nil {
		return fmt.Errorf("%w: branch iterator: %v", smt.ErrStorage, err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		raw := iter.Key()
		value := iter.Value()
		if len(raw) != 2+smt.HashBytes || len(value) != branchValueBytes {
			return fmt.Errorf("%w: malformed branch record", smt.ErrStorage)
		}
		var key smt.BranchKey
		key.Height = raw[1]
		copy(key.NodeKey[:], raw[2:])
		var branch smt.BranchNode
		copy(branch.Left[:], value[:smt.HashBytes])
		copy(branch.Right[:], value[smt.HashBytes:])
		if err := fn(key, branch); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: branch iterator: %v", smt.ErrStorage, err)
	}
	return nil
}

func (s *Store[V]) ForEachLeaf(fn func(smt.InternalKey, smt.LeafNode[V]) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{leafTag},
		UpperBound: []byte{leafTag + 1},
	})
	if err != nil {
		return fmt.Errorf("%w: leaf iterator: %v", smt.ErrStorage, err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		raw := iter.Key()
		if len(raw) != 1+smt.HashBytes {
			return fmt.Errorf("%w: malformed leaf record", smt.ErrStorage)
		}
		var key smt.InternalKey
		copy(key[:], raw[1:])
		v, err := s.codec.Unmarshal(iter.Value())
		if err != nil {
			return fmt.Errorf("%w: decode leaf: %v", smt.ErrStorage, err)
		}
		if err := fn(key, smt.LeafNode[V]{Key: key, Value: v}); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: leaf iterator: %v", smt.ErrStorage, err)
	}
	return nil
}
