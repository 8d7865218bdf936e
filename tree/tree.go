package tree

import (
	"cmp"
	"fmt"

	"github.com/a-poor/cowdb/storage"
)

// Tree holds the copy-on-write binary search tree algorithms.
//
// A Tree has no root of its own: every operation takes a root reference
// and mutations return a new one, leaving the input untouched. The only
// I/O a Tree does is dereferencing through its BlockReader.
type Tree[K cmp.Ordered] struct {
	r      storage.BlockReader
	nodes  *NodeCodec[K]
	values storage.Codec[[]byte]
}

// New returns a Tree reading records from r.
func New[K cmp.Ordered](r storage.BlockReader, values storage.Codec[[]byte]) (*Tree[K], error) {
	nodes, err := NewNodeCodec[K](values)
	if err != nil {
		return nil, err
	}
	return &Tree[K]{
		r:      r,
		nodes:  nodes,
		values: values,
	}, nil
}

// RootAt returns an unloaded root reference for a committed address.
func (t *Tree[K]) RootAt(addr storage.Address) *storage.Ref[*Node[K]] {
	return storage.RefAt[*Node[K]](t.nodes, addr)
}

// NewValue wraps a value in a pending value reference.
func (t *Tree[K]) NewValue(v []byte) *storage.Ref[[]byte] {
	return storage.NewRef(t.values, v)
}

// Follow dereferences a node reference. The empty reference yields nil.
func (t *Tree[K]) Follow(r *storage.Ref[*Node[K]]) (*Node[K], error) {
	return r.Get(t.r)
}

// Value dereferences a node's value.
func (t *Tree[K]) Value(n *Node[K]) ([]byte, error) {
	return n.Value.Get(t.r)
}

// Len returns the number of keys under root.
func (t *Tree[K]) Len(root *storage.Ref[*Node[K]]) (uint64, error) {
	n, err := t.Follow(root)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, nil
	}
	return n.Size, nil
}

func (t *Tree[K]) ref(n *Node[K]) *storage.Ref[*Node[K]] {
	return storage.NewRef[*Node[K]](t.nodes, n)
}

// Get returns the value stored under key.
func (t *Tree[K]) Get(root *storage.Ref[*Node[K]], key K) ([]byte, error) {
	n, err := t.Follow(root)
	for err == nil && n != nil {
		switch c := cmp.Compare(key, n.Key); {
		case c < 0:
			n, err = t.Follow(n.Left)
		case c > 0:
			n, err = t.Follow(n.Right)
		default:
			return t.Value(n)
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
}

// step is one node on the path from the root to a changed key.
type step[K cmp.Ordered] struct {
	node *Node[K]
	left bool
}

// Insert returns a new root with key bound to value. Only the nodes on
// the path from the root to key are rebuilt; every other subtree is
// shared with the input root. An existing key keeps its position and
// only its value changes.
func (t *Tree[K]) Insert(root *storage.Ref[*Node[K]], key K, value *storage.Ref[[]byte]) (*storage.Ref[*Node[K]], error) {
	var path []step[K]
	cur := root

	var fresh *Node[K]
descend:
	for {
		n, err := t.Follow(cur)
		if err != nil {
			return nil, err
		}
		if n == nil {
			fresh = &Node[K]{
				Left:  storage.EmptyRef[*Node[K]](t.nodes),
				Key:   key,
				Value: value,
				Right: storage.EmptyRef[*Node[K]](t.nodes),
				Size:  1,
			}
			break
		}
		switch c := cmp.Compare(key, n.Key); {
		case c < 0:
			path = append(path, step[K]{node: n, left: true})
			cur = n.Left
		case c > 0:
			path = append(path, step[K]{node: n, left: false})
			cur = n.Right
		default:
			fresh = n.withValue(value)
			break descend
		}
	}
	return t.rebuild(path, t.ref(fresh))
}

// Delete returns a new root without key.
//
// A leaf disappears, a node with one child is replaced by that child,
// and a node with two children is replaced by a copy of its in-order
// predecessor sitting on the left subtree minus the predecessor.
func (t *Tree[K]) Delete(root *storage.Ref[*Node[K]], key K) (*storage.Ref[*Node[K]], error) {
	var path []step[K]
	cur := root
	for {
		n, err := t.Follow(cur)
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
		}
		switch c := cmp.Compare(key, n.Key); {
		case c < 0:
			path = append(path, step[K]{node: n, left: true})
			cur = n.Left
		case c > 0:
			path = append(path, step[K]{node: n, left: false})
			cur = n.Right
		default:
			repl, err := t.remove(n)
			if err != nil {
				return nil, err
			}
			return t.rebuild(path, repl)
		}
	}
}

// remove returns the subtree that takes the place of n.
func (t *Tree[K]) remove(n *Node[K]) (*storage.Ref[*Node[K]], error) {
	left, err := t.Follow(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.Follow(n.Right)
	if err != nil {
		return nil, err
	}

	switch {
	case left != nil && right != nil:
		pred, err := t.FindMax(left)
		if err != nil {
			return nil, err
		}

		// The predecessor has no right child, so this never comes back
		// through the two-children case.
		newLeft, err := t.Delete(n.Left, pred.Key)
		if err != nil {
			return nil, err
		}
		leftSize, err := sizeOf(newLeft)
		if err != nil {
			return nil, err
		}
		return t.ref(&Node[K]{
			Left:  newLeft,
			Key:   pred.Key,
			Value: pred.Value,
			Right: n.Right,
			Size:  leftSize + right.Size + 1,
		}), nil
	case left != nil:
		return n.Left, nil
	default:
		return n.Right, nil
	}
}

// rebuild copies every node on path bottom-up, grafting child in place
// of the subtree the path descended into.
func (t *Tree[K]) rebuild(path []step[K], child *storage.Ref[*Node[K]]) (*storage.Ref[*Node[K]], error) {
	for i := len(path) - 1; i >= 0; i-- {
		var (
			n   *Node[K]
			err error
		)
		if path[i].left {
			n, err = path[i].node.withLeft(child)
		} else {
			n, err = path[i].node.withRight(child)
		}
		if err != nil {
			return nil, err
		}
		child = t.ref(n)
	}
	return child, nil
}

// FindMax returns the right-most node of the subtree rooted at n.
func (t *Tree[K]) FindMax(n *Node[K]) (*Node[K], error) {
	if n == nil {
		return nil, ErrKeyNotFound
	}
	for {
		next, err := t.Follow(n.Right)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return n, nil
		}
		n = next
	}
}
