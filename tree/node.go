package tree

import (
	"cmp"
	"fmt"

	"github.com/a-poor/cowdb/storage"
)

// Node is an immutable binary search tree node. Every change to a tree
// produces new nodes; existing ones are shared between snapshots.
type Node[K cmp.Ordered] struct {
	Left  *storage.Ref[*Node[K]]
	Key   K
	Value *storage.Ref[[]byte]
	Right *storage.Ref[*Node[K]]
	Size  uint64 // nodes in the subtree rooted here
}

// sizeOf returns the subtree size behind a node reference. The
// reference must be loaded or empty.
func sizeOf[K cmp.Ordered](r *storage.Ref[*Node[K]]) (uint64, error) {
	if n, ok := r.Peek(); ok {
		if n == nil {
			return 0, nil
		}
		return n.Size, nil
	}
	if r.IsEmpty() {
		return 0, nil
	}
	return 0, fmt.Errorf("%w: subtree size of node at %s", storage.ErrUnmaterialized, r.Address())
}

// withLeft clones n with a new left subtree. The size is adjusted by
// the difference between the old and new left subtrees, so the right
// subtree is never dereferenced.
func (n *Node[K]) withLeft(left *storage.Ref[*Node[K]]) (*Node[K], error) {
	size, err := resize(n.Size, n.Left, left)
	if err != nil {
		return nil, err
	}
	return &Node[K]{
		Left:  left,
		Key:   n.Key,
		Value: n.Value,
		Right: n.Right,
		Size:  size,
	}, nil
}

// withRight mirrors withLeft.
func (n *Node[K]) withRight(right *storage.Ref[*Node[K]]) (*Node[K], error) {
	size, err := resize(n.Size, n.Right, right)
	if err != nil {
		return nil, err
	}
	return &Node[K]{
		Left:  n.Left,
		Key:   n.Key,
		Value: n.Value,
		Right: right,
		Size:  size,
	}, nil
}

// withValue clones n with a new value. The size is unchanged.
func (n *Node[K]) withValue(value *storage.Ref[[]byte]) *Node[K] {
	return &Node[K]{
		Left:  n.Left,
		Key:   n.Key,
		Value: value,
		Right: n.Right,
		Size:  n.Size,
	}
}

func resize[K cmp.Ordered](size uint64, prev, next *storage.Ref[*Node[K]]) (uint64, error) {
	before, err := sizeOf(prev)
	if err != nil {
		return 0, err
	}
	after, err := sizeOf(next)
	if err != nil {
		return 0, err
	}
	return size - before + after, nil
}
