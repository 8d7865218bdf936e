package tree

import (
	"cmp"
	"fmt"

	"github.com/a-poor/cowdb/storage"
)

// Store writes every pending node and value reachable from root, in
// post-order, so that each node is encoded only after the addresses it
// embeds exist. Already stored and unloaded subtrees are skipped
// without being read.
func (t *Tree[K]) Store(w storage.BlockWriter, root *storage.Ref[*Node[K]]) error {
	return storeSubtree(w, root)
}

func storeSubtree[K cmp.Ordered](w storage.BlockWriter, root *storage.Ref[*Node[K]]) error {
	stack := []*storage.Ref[*Node[K]]{root}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		if !r.Pending() {
			stack = stack[:len(stack)-1]
			continue
		}
		n, _ := r.Peek()
		if err := n.Value.Store(w); err != nil {
			return fmt.Errorf("failed to store value of %v: %w", n.Key, err)
		}

		// Children go first; left is on top so it is written first
		pushed := false
		if n.Right.Pending() {
			stack = append(stack, n.Right)
			pushed = true
		}
		if n.Left.Pending() {
			stack = append(stack, n.Left)
			pushed = true
		}
		if pushed {
			continue
		}

		if err := r.Store(w); err != nil {
			return fmt.Errorf("failed to store node %v: %w", n.Key, err)
		}
		stack = stack[:len(stack)-1]
	}
	return nil
}
