package tree

import (
	"cmp"
	"fmt"

	"github.com/a-poor/cowdb/storage"
)

// Walk visits the nodes under root in key order. The callback accepts
// the next node and returns a boolean to signify that the walk is done.
func (t *Tree[K]) Walk(root *storage.Ref[*Node[K]], fn func(n *Node[K]) (done bool, err error)) error {
	var stack []*Node[K]
	n, err := t.Follow(root)
	if err != nil {
		return err
	}
	for n != nil || len(stack) > 0 {
		// Go as far left as possible
		for n != nil {
			stack = append(stack, n)
			if n, err = t.Follow(n.Left); err != nil {
				return err
			}
		}

		// Visit the next node
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		done, err := fn(n)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if n, err = t.Follow(n.Right); err != nil {
			return err
		}
	}
	return nil
}

// bounds is a subtree still to be checked, with the open key interval
// its keys must fall in.
type bounds[K cmp.Ordered] struct {
	ref    *storage.Ref[*Node[K]]
	lo, hi *K
	depth  int
}

// Verify checks the search-order and size invariants of every node
// under root.
func (t *Tree[K]) Verify(root *storage.Ref[*Node[K]]) error {
	_, err := t.inspect(root, true)
	return err
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[K]) Depth(root *storage.Ref[*Node[K]]) (int, error) {
	return t.inspect(root, false)
}

func (t *Tree[K]) inspect(root *storage.Ref[*Node[K]], check bool) (int, error) {
	deepest := 0
	stack := []bounds[K]{{ref: root, depth: 1}}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := t.Follow(b.ref)
		if err != nil {
			return 0, err
		}
		if n == nil {
			continue
		}
		deepest = max(deepest, b.depth)

		left, err := t.Follow(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := t.Follow(n.Right)
		if err != nil {
			return 0, err
		}

		if check {
			if (b.lo != nil && n.Key <= *b.lo) || (b.hi != nil && n.Key >= *b.hi) {
				return 0, fmt.Errorf("%w: key %v out of order", ErrInvariant, n.Key)
			}
			var want uint64 = 1
			if left != nil {
				want += left.Size
			}
			if right != nil {
				want += right.Size
			}
			if n.Size != want {
				return 0, fmt.Errorf("%w: node %v has size %d, want %d", ErrInvariant, n.Key, n.Size, want)
			}
		}

		key := n.Key
		stack = append(stack,
			bounds[K]{ref: n.Left, lo: b.lo, hi: &key, depth: b.depth + 1},
			bounds[K]{ref: n.Right, lo: &key, hi: b.hi, depth: b.depth + 1},
		)
	}
	return deepest, nil
}
