package storage

import (
	"fmt"
	"sync"
)

// BlockReader dereferences record addresses.
type BlockReader interface {
	Read(addr Address) ([]byte, error)
}

// BlockWriter appends records and returns their addresses.
type BlockWriter interface {
	Write(payload []byte) (Address, error)
}

// BlockReadWriter is the full record log: reads, appends and the root
// address slot.
type BlockReadWriter interface {
	BlockReader
	BlockWriter
	RootAddress() (Address, error)
	CommitRootAddress(addr Address) error
}

var (
	_ BlockReadWriter = (*Storage)(nil)
	_ BlockReadWriter = (*MemBlockRW)(nil)
)

// MemBlockRW is an in-memory BlockReadWriter using the same address
// layout as a Storage file. Records are never freed.
type MemBlockRW struct {
	sync.RWMutex
	buf    []byte
	root   Address
	writes int
}

// NewMemBlockRW returns an empty in-memory log.
func NewMemBlockRW() *MemBlockRW {
	return &MemBlockRW{
		buf: make([]byte, SuperblockSize),
	}
}

func (m *MemBlockRW) Read(addr Address) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if addr < SuperblockSize || uint64(addr)+IntegerLength > uint64(len(m.buf)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	length := decodeInteger(m.buf[addr:])
	start := uint64(addr) + IntegerLength
	if length > uint64(len(m.buf))-start {
		return nil, fmt.Errorf("%w: record at %s claims %d bytes", ErrCorruptRecord, addr, length)
	}
	out := make([]byte, length)
	copy(out, m.buf[start:start+length])
	return out, nil
}

func (m *MemBlockRW) Write(payload []byte) (Address, error) {
	m.Lock()
	defer m.Unlock()

	addr := Address(len(m.buf))
	m.buf = append(m.buf, frameRecord(payload)...)
	m.writes++
	return addr, nil
}

func (m *MemBlockRW) RootAddress() (Address, error) {
	m.RLock()
	defer m.RUnlock()
	return m.root, nil
}

func (m *MemBlockRW) CommitRootAddress(addr Address) error {
	m.Lock()
	defer m.Unlock()
	m.root = addr
	return nil
}

// Writes returns the number of records appended so far.
func (m *MemBlockRW) Writes() int {
	m.RLock()
	defer m.RUnlock()
	return m.writes
}
