package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Storage is an append-only record log with a single mutable root
// address slot at the start of the file.
//
// Writes are gated by an exclusive advisory lock on the file. The lock
// is taken implicitly by Write and released by CommitRootAddress, Unlock
// or Close.
type Storage struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	end    int64 // logical end of the log, including buffered appends
	locked bool
	closed bool
}

// Open opens (or creates) the storage file at the given path.
//
// A file shorter than the superblock is zero-padded under the lock so
// the root address reads as NullAddress. A file that is already padded
// is opened without touching the lock.
func Open(path string) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage file %q: %w", path, err)
	}
	s := &Storage{
		path: path,
		f:    f,
		w:    bufio.NewWriter(f),
	}
	if err := s.ensureSuperblock(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) ensureSuperblock() error {
	// Readers never lock, so only take the lock when there is padding to do
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", s.path, err)
	}
	if info.Size() >= SuperblockSize {
		return nil
	}

	// Another handle may have padded it while we waited
	if _, err := s.Lock(); err != nil {
		return err
	}
	if s.end < SuperblockSize {
		pad := make([]byte, SuperblockSize-s.end)
		if _, err := s.f.WriteAt(pad, s.end); err != nil {
			s.Unlock()
			return fmt.Errorf("failed to initialize superblock: %w", err)
		}
		if _, err := s.f.Seek(0, io.SeekEnd); err != nil {
			s.Unlock()
			return err
		}
		s.end = SuperblockSize
	}
	return s.Unlock()
}

// Path returns the path of the underlying file.
func (s *Storage) Path() string {
	return s.path
}

// Lock takes the exclusive write lock, blocking until it is available.
// It reports true only if this call acquired the lock; a second call
// while the lock is held is a no-op that reports false.
func (s *Storage) Lock() (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if s.locked {
		return false, nil
	}
	if err := flock(s.f); err != nil {
		return false, fmt.Errorf("failed to lock %q: %w", s.path, err)
	}
	s.locked = true

	// Another process may have appended while we were unlocked
	end, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		s.Unlock()
		return false, err
	}
	s.end = end
	s.w.Reset(s.f)
	return true, nil
}

// Unlock flushes buffered appends and releases the write lock.
// Unlocking a storage that is not locked does nothing.
func (s *Storage) Unlock() error {
	if !s.locked {
		return nil
	}
	flushErr := s.w.Flush()
	if err := funlock(s.f); err != nil {
		return fmt.Errorf("failed to unlock %q: %w", s.path, err)
	}
	s.locked = false
	return flushErr
}

// Locked reports whether this handle holds the write lock.
func (s *Storage) Locked() bool {
	return s.locked
}

// Write appends a length-prefixed record and returns its address.
func (s *Storage) Write(payload []byte) (Address, error) {
	if s.closed {
		return NullAddress, ErrClosed
	}
	if _, err := s.Lock(); err != nil {
		return NullAddress, err
	}
	addr := Address(s.end)
	n, err := s.w.Write(frameRecord(payload))
	s.end += int64(n)
	if err != nil {
		return NullAddress, fmt.Errorf("failed to append record: %w", err)
	}
	return addr, nil
}

// Read returns the payload of the record at the given address.
func (s *Storage) Read(addr Address) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if addr < SuperblockSize {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if s.w.Buffered() > 0 {
		if err := s.w.Flush(); err != nil {
			return nil, fmt.Errorf("failed to flush appends: %w", err)
		}
	}

	// Read the length prefix
	head := make([]byte, IntegerLength)
	if _, err := s.f.ReadAt(head, int64(addr)); err != nil {
		return nil, corrupt(addr, err)
	}
	length := decodeInteger(head)

	// Make sure the record fits in the file before allocating it
	info, err := s.f.Stat()
	if err != nil {
		return nil, err
	}
	if length > uint64(info.Size())-uint64(addr)-IntegerLength {
		return nil, fmt.Errorf("%w: record at %s claims %d bytes", ErrCorruptRecord, addr, length)
	}

	// Read the payload
	payload := make([]byte, length)
	if _, err := s.f.ReadAt(payload, int64(addr)+IntegerLength); err != nil {
		return nil, corrupt(addr, err)
	}
	return payload, nil
}

func corrupt(addr Address, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: read at %s: %w", ErrCorruptRecord, addr, err)
}

// RootAddress reads the root address from the superblock.
func (s *Storage) RootAddress() (Address, error) {
	if s.closed {
		return NullAddress, ErrClosed
	}
	b := make([]byte, IntegerLength)
	if _, err := s.f.ReadAt(b, 0); err != nil {
		return NullAddress, fmt.Errorf("failed to read root address: %w", err)
	}
	return Address(decodeInteger(b)), nil
}

// CommitRootAddress makes addr the new root.
//
// Every appended record is flushed and synced before the root slot is
// overwritten, so the slot never points at bytes that are not on disk.
// The write lock is released afterwards.
func (s *Storage) CommitRootAddress(addr Address) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.Lock(); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush appends: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync appends: %w", err)
	}
	if _, err := s.f.WriteAt(encodeInteger(uint64(addr)), 0); err != nil {
		return fmt.Errorf("failed to write root address: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync root address: %w", err)
	}
	return s.Unlock()
}

// Size returns the size of the log, including any buffered appends.
func (s *Storage) Size() (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.locked {
		return s.end, nil
	}
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close releases the lock, if held, and closes the file.
func (s *Storage) Close() error {
	if s.closed {
		return nil
	}
	unlockErr := s.Unlock()
	s.closed = true
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", s.path, err)
	}
	return unlockErr
}

// Closed reports whether Close has been called.
func (s *Storage) Closed() bool {
	return s.closed
}
