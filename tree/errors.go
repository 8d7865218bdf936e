package tree

import "errors"

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrUnstoredChild = errors.New("node references a child that has not been stored")
	ErrInvariant     = errors.New("tree invariant violated")
)
