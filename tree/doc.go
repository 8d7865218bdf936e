// Package tree implements an immutable, copy-on-write binary search tree
// whose nodes live behind lazy storage references.
//
// Nodes are never modified. Insert and Delete rebuild the path from the
// root to the changed key as fresh, unaddressed nodes and reuse every
// other subtree by reference, so any root reference taken earlier keeps
// describing the tree as it was. Store writes the new nodes in
// post-order, after which the returned root can be committed.
//
// # Node Record Layout
//
// A node is stored as a deterministic CBOR map with integer keys:
//
//	1: left child address  (0 if none)
//	2: key (string keys as a byte string)
//	3: value record address
//	4: right child address (0 if none)
//	5: subtree size
//
// The tree is not balanced. All traversals use explicit stacks, so a
// degenerate tree costs time but not call-stack depth.
package tree
