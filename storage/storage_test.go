package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	t.Run("should zero-pad a new file to the superblock size", func(t *testing.T) {
		s := openTemp(t)

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.EqualValues(t, SuperblockSize, info.Size())

		root, err := s.RootAddress()
		require.NoError(t, err)
		assert.True(t, root.IsNull())
		assert.False(t, s.Locked(), "open should release the lock")
	})

	t.Run("should pad a short existing file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "short.db")
		require.NoError(t, os.WriteFile(p, []byte{0, 0, 0}, 0644))

		s, err := Open(p)
		require.NoError(t, err)
		defer s.Close()

		size, err := s.Size()
		require.NoError(t, err)
		assert.EqualValues(t, SuperblockSize, size)
	})
}

func TestStorage_WriteRead(t *testing.T) {
	t.Run("should append records after the superblock", func(t *testing.T) {
		s := openTemp(t)

		a1, err := s.Write([]byte("hello"))
		require.NoError(t, err)
		a2, err := s.Write([]byte("world!"))
		require.NoError(t, err)

		assert.EqualValues(t, SuperblockSize, a1)
		assert.EqualValues(t, SuperblockSize+IntegerLength+5, a2)
		assert.True(t, s.Locked(), "write should take the lock")

		b, err := s.Read(a1)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), b)

		b, err = s.Read(a2)
		require.NoError(t, err)
		assert.Equal(t, []byte("world!"), b)
	})

	t.Run("should read empty records", func(t *testing.T) {
		s := openTemp(t)

		addr, err := s.Write(nil)
		require.NoError(t, err)

		b, err := s.Read(addr)
		require.NoError(t, err)
		assert.Empty(t, b)
	})

	t.Run("should reject addresses inside the superblock", func(t *testing.T) {
		s := openTemp(t)

		_, err := s.Read(8)
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("should detect truncated records", func(t *testing.T) {
		s := openTemp(t)

		addr, err := s.Write([]byte("some payload"))
		require.NoError(t, err)
		require.NoError(t, s.CommitRootAddress(addr))
		require.NoError(t, s.f.Truncate(int64(addr)+IntegerLength+4))

		_, err = s.Read(addr)
		assert.ErrorIs(t, err, ErrCorruptRecord)

		_, err = s.Read(addr + 100)
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})
}

func TestStorage_CommitRootAddress(t *testing.T) {
	t.Run("should persist the root and release the lock", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "root.db")
		s, err := Open(p)
		require.NoError(t, err)

		addr, err := s.Write([]byte("root record"))
		require.NoError(t, err)
		require.NoError(t, s.CommitRootAddress(addr))
		assert.False(t, s.Locked())
		require.NoError(t, s.Close())

		// Reopen and check the root survived
		s, err = Open(p)
		require.NoError(t, err)
		defer s.Close()

		root, err := s.RootAddress()
		require.NoError(t, err)
		assert.Equal(t, addr, root)

		b, err := s.Read(root)
		require.NoError(t, err)
		assert.Equal(t, []byte("root record"), b)
	})

	t.Run("should keep the old root when appends are never committed", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "crash.db")
		s, err := Open(p)
		require.NoError(t, err)

		addr, err := s.Write([]byte("v1"))
		require.NoError(t, err)
		require.NoError(t, s.CommitRootAddress(addr))

		_, err = s.Write([]byte("v2"))
		require.NoError(t, err)
		require.NoError(t, s.Close())

		s, err = Open(p)
		require.NoError(t, err)
		defer s.Close()

		root, err := s.RootAddress()
		require.NoError(t, err)
		assert.Equal(t, addr, root)
	})
}

func TestStorage_Lock(t *testing.T) {
	t.Run("should report only the acquiring call", func(t *testing.T) {
		s := openTemp(t)

		got, err := s.Lock()
		require.NoError(t, err)
		assert.True(t, got)

		got, err = s.Lock()
		require.NoError(t, err)
		assert.False(t, got)

		require.NoError(t, s.Unlock())
		assert.False(t, s.Locked())

		got, err = s.Lock()
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("should pick up appends from another handle", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "shared.db")
		a, err := Open(p)
		require.NoError(t, err)
		defer a.Close()
		b, err := Open(p)
		require.NoError(t, err)
		defer b.Close()

		addrA, err := a.Write([]byte("from a"))
		require.NoError(t, err)
		require.NoError(t, a.CommitRootAddress(addrA))

		addrB, err := b.Write([]byte("from b"))
		require.NoError(t, err)
		assert.Greater(t, addrB, addrA)

		got, err := b.Read(addrA)
		require.NoError(t, err)
		assert.Equal(t, []byte("from a"), got)
	})
}

func TestOpen_WhileLocked(t *testing.T) {
	t.Run("should open a padded file without waiting for the writer", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "busy.db")
		a, err := Open(p)
		require.NoError(t, err)
		defer a.Close()

		addr, err := a.Write([]byte("uncommitted"))
		require.NoError(t, err)
		require.True(t, a.Locked())

		type opened struct {
			s   *Storage
			err error
		}
		done := make(chan opened, 1)
		go func() {
			s, err := Open(p)
			done <- opened{s, err}
		}()

		var b *Storage
		select {
		case o := <-done:
			require.NoError(t, o.err)
			b = o.s
		case <-time.After(5 * time.Second):
			t.Fatal("open blocked behind the write lock")
		}
		defer b.Close()

		assert.False(t, b.Locked())
		root, err := b.RootAddress()
		require.NoError(t, err)
		assert.True(t, root.IsNull())

		require.NoError(t, a.CommitRootAddress(addr))
		root, err = b.RootAddress()
		require.NoError(t, err)
		assert.Equal(t, addr, root)
	})
}

func TestStorage_Close(t *testing.T) {
	t.Run("should fail every operation after close", func(t *testing.T) {
		s := openTemp(t)
		require.NoError(t, s.Close())
		assert.True(t, s.Closed())

		_, err := s.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.Read(SuperblockSize)
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.RootAddress()
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, s.CommitRootAddress(0), ErrClosed)
		_, err = s.Lock()
		assert.ErrorIs(t, err, ErrClosed)

		// Closing twice is harmless
		assert.NoError(t, s.Close())
	})
}
