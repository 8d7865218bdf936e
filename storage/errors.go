package storage

import "errors"

var (
	ErrClosed         = errors.New("storage is closed")
	ErrCorruptRecord  = errors.New("corrupt or truncated record")
	ErrInvalidAddress = errors.New("address does not point at a record")
	ErrUnmaterialized = errors.New("reference is neither loaded nor empty")
)
