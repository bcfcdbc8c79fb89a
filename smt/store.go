package smt

// BranchKey addresses a branch node by position: the height of the branch
// and its path prefix (the keys below it with bits 0..Height cleared).
type BranchKey struct {
	Height  uint8
	NodeKey InternalKey
}

func branchKeyAt(h int, key InternalKey) BranchKey {
	return BranchKey{Height: uint8(h), NodeKey: key.ParentPath(h)}
}

// BranchNode holds the child digests of a branch. At least one child of
// every persisted branch is non-zero.
type BranchNode struct {
	Left  H256
	Right H256
}

// LeafNode holds one key/value pair. Only non-zero values are persisted.
type LeafNode[V any] struct {
	Key   InternalKey
	Value V
}

// Store persists the non-zero nodes of a tree, keyed by path position.
// Absence of an entry is the zero node: lookups report it as a clean
// (zero, false, nil) miss, never as an error. Genuine I/O failures are
// returned as errors wrapping ErrStorage and are surfaced unchanged by
// the engine.
type Store[V any] interface {
	GetBranch(key BranchKey) (BranchNode, bool, error)
	InsertBranch(key BranchKey, branch BranchNode) error
	RemoveBranch(key BranchKey) error

	GetLeaf(key InternalKey) (LeafNode[V], bool, error)
	InsertLeaf(key InternalKey, leaf LeafNode[V]) error
	RemoveLeaf(key InternalKey) error

	// LeafCount reports the number of distinct persisted leaves. Update
	// uses it to enforce KeyLimit.
	LeafCount() (uint64, error)
}

// IterableStore is the optional enumeration capability Validate needs to
// audit every persisted node.
type IterableStore[V any] interface {
	ForEachBranch(fn func(BranchKey, BranchNode) error) error
	ForEachLeaf(fn func(InternalKey, LeafNode[V]) error) error
}

// DefaultStore is the in-memory map backed store.
type DefaultStore[V any] struct {
	branches map[BranchKey]BranchNode
	leaves   map[InternalKey]LeafNode[V]
}

func NewDefaultStore[V any]() *DefaultStore[V] {
	return &DefaultStore[V]{
		branches: make(map[BranchKey]BranchNode),
		leaves:   make(map[InternalKey]LeafNode[V]),
	}
}

func (s *DefaultStore[V]) GetBranch(key BranchKey) (BranchNode, bool, error) {
	branch, ok := s.branches[key]
	return branch, ok, nil
}

func (s *DefaultStore[V]) InsertBranch(key BranchKey, branch BranchNode) error {
	s.branches[key] = branch
	return nil
}

func (s *DefaultStore[V]) RemoveBranch(key BranchKey) error {
	delete(s.branches, key)
	return nil
}

func (s *DefaultStore[V]) GetLeaf(key InternalKey) (LeafNode[V], bool, error) {
	leaf, ok := s.leaves[key]
	return leaf, ok, nil
}

func (s *DefaultStore[V]) InsertLeaf(key InternalKey, leaf LeafNode[V]) error {
	s.leaves[key] = leaf
	return nil
}

func (s *DefaultStore[V]) RemoveLeaf(key InternalKey) error {
	delete(s.leaves, key)
	return nil
}

func (s *DefaultStore[V]) LeafCount() (uint64, error) {
	return uint64(len(s.leaves)), nil
}

func (s *DefaultStore[V]) ForEachBranch(fn func(BranchKey, BranchNode) error) error {
	for key, branch := range s.branches {
		if err := fn(key, branch); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefaultStore[V]) ForEachLeaf(fn func(InternalKey, LeafNode[V]) error) error {
	for key, leaf := range s.leaves {
		if err := fn(key, leaf); err != nil {
			return err
		}
	}
	return nil
}
