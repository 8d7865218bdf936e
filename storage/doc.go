// Package storage provides the append-only record file that a store
// lives in, and the lazy references used to point into it.
//
// # File Layout
//
// A store is a single file with the following structure:
//
//	offset 0     ┌──────────────────────────────┐
//	             │ root address (8 bytes, BE)   │
//	             │ zero padding                 │
//	offset 4096  ├──────────────────────────────┤
//	             │ length (8 bytes, BE)         │
//	             │ payload (length bytes)       │
//	             ├──────────────────────────────┤
//	             │ length │ payload             │
//	             ├──────────────────────────────┤
//	             │ ...                          │
//	             └──────────────────────────────┘
//
// The first 4096 bytes are the superblock. Only its first eight bytes
// are used: they hold the address of the committed root record, or zero
// for an empty store. Every address is the file offset of a record's
// length prefix, so no record ever sits at an address below 4096.
//
// Records are only ever appended. Overwriting the root address is the
// single in-place write, and it happens after the records it points to
// have been synced to disk.
//
// # Locking
//
// Appending requires an exclusive advisory lock on the file. A Storage
// takes the lock on its first write and holds it until the root address
// is committed or the Storage is closed. Readers take no lock.
package storage
