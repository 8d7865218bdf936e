package db

import (
	"github.com/a-poor/cowdb/storage"
	"github.com/a-poor/cowdb/tree"
)

var (
	ErrClosed      = storage.ErrClosed
	ErrKeyNotFound = tree.ErrKeyNotFound
)
