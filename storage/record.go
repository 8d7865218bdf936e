package storage

import (
	"encoding/binary"
	"fmt"
)

const (
	// SuperblockSize is the size of the fixed file header. Its first
	// IntegerLength bytes hold the current root address.
	SuperblockSize = 4096

	// IntegerLength is the width of every integer in the file format.
	IntegerLength = 8
)

// Address is a byte offset into the storage file, pointing at the
// start of a length-prefixed record. NullAddress means "no record".
type Address uint64

const NullAddress Address = 0

// IsNull reports whether the address refers to nothing.
func (a Address) IsNull() bool {
	return a == NullAddress
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// frameRecord prepends the big-endian length prefix to a payload.
func frameRecord(payload []byte) []byte {
	b := make([]byte, IntegerLength+len(payload))
	binary.BigEndian.PutUint64(b, uint64(len(payload)))
	copy(b[IntegerLength:], payload)
	return b
}

func encodeInteger(v uint64) []byte {
	b := make([]byte, IntegerLength)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeInteger(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[:IntegerLength])
}
