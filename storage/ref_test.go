package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader counts reads hitting the underlying log.
type countingReader struct {
	BlockReader
	reads int
}

func (c *countingReader) Read(addr Address) ([]byte, error) {
	c.reads++
	return c.BlockReader.Read(addr)
}

type failingCodec struct{}

func (failingCodec) Encode([]byte) ([]byte, error) { return nil, errors.New("boom") }
func (failingCodec) Decode([]byte) ([]byte, error) { return nil, errors.New("boom") }

// prefixCodec writes a companion record before each value and fails
// preparation for the value "bad".
type prefixCodec struct {
	prepared []Address
}

func (p *prefixCodec) Prepare(v []byte, w BlockWriter) error {
	if string(v) == "bad" {
		return errors.New("cannot prepare")
	}
	addr, err := w.Write([]byte("companion"))
	if err != nil {
		return err
	}
	p.prepared = append(p.prepared, addr)
	return nil
}

func (p *prefixCodec) Encode(v []byte) ([]byte, error) { return Bytes.Encode(v) }
func (p *prefixCodec) Decode(b []byte) ([]byte, error) { return Bytes.Decode(b) }

func TestRef_Prepare(t *testing.T) {
	t.Run("should prepare before writing the referent", func(t *testing.T) {
		log := NewMemBlockRW()
		codec := &prefixCodec{}
		r := NewRef[[]byte](codec, []byte("value"))

		require.NoError(t, r.Store(log))
		require.Len(t, codec.prepared, 1)
		assert.Less(t, codec.prepared[0], r.Address())

		// A stored reference is not prepared again
		require.NoError(t, r.Store(log))
		assert.Len(t, codec.prepared, 1)
		assert.Equal(t, 2, log.Writes())
	})

	t.Run("should stay pending when preparation fails", func(t *testing.T) {
		log := NewMemBlockRW()
		r := NewRef[[]byte](&prefixCodec{}, []byte("bad"))

		assert.Error(t, r.Store(log))
		assert.True(t, r.Pending())
		assert.Zero(t, log.Writes())
	})
}

func TestRef(t *testing.T) {
	t.Run("should store a pending referent exactly once", func(t *testing.T) {
		log := NewMemBlockRW()
		r := NewRef(Bytes, []byte("value"))
		assert.True(t, r.Pending())

		require.NoError(t, r.Store(log))
		addr := r.Address()
		assert.False(t, addr.IsNull())
		assert.False(t, r.Pending())

		require.NoError(t, r.Store(log))
		assert.Equal(t, addr, r.Address())
		assert.Equal(t, 1, log.Writes())
	})

	t.Run("should load an unloaded reference on first get only", func(t *testing.T) {
		log := NewMemBlockRW()
		addr, err := log.Write([]byte("stored"))
		require.NoError(t, err)

		rd := &countingReader{BlockReader: log}
		r := RefAt(Bytes, addr)
		assert.False(t, r.Present())
		assert.False(t, r.IsEmpty())

		for i := 0; i < 3; i++ {
			v, err := r.Get(rd)
			require.NoError(t, err)
			assert.Equal(t, []byte("stored"), v)
		}
		assert.Equal(t, 1, rd.reads)
		assert.True(t, r.Present())
		assert.Equal(t, addr, r.Address())
	})

	t.Run("should treat the null address as empty", func(t *testing.T) {
		r := RefAt(Bytes, NullAddress)
		assert.True(t, r.IsEmpty())

		v, err := r.Get(NewMemBlockRW())
		require.NoError(t, err)
		assert.Nil(t, v)

		log := NewMemBlockRW()
		require.NoError(t, EmptyRef(Bytes).Store(log))
		assert.Zero(t, log.Writes())
	})

	t.Run("should surface codec errors", func(t *testing.T) {
		log := NewMemBlockRW()
		err := NewRef[[]byte](failingCodec{}, []byte("x")).Store(log)
		assert.Error(t, err)
		assert.Zero(t, log.Writes())

		addr, err := log.Write([]byte("x"))
		require.NoError(t, err)
		r := RefAt[[]byte](failingCodec{}, addr)
		_, err = r.Get(log)
		assert.Error(t, err)
		assert.False(t, r.Present())
	})
}

func TestCodecs(t *testing.T) {
	t.Run("should round trip through snappy", func(t *testing.T) {
		in := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		b, err := Snappy.Encode(in)
		require.NoError(t, err)
		assert.Less(t, len(b), len(in))

		out, err := Snappy.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("should reject garbage snappy blocks", func(t *testing.T) {
		_, err := Snappy.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff})
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})

	t.Run("should copy raw bytes on encode", func(t *testing.T) {
		in := []byte("abc")
		b, err := Bytes.Encode(in)
		require.NoError(t, err)
		in[0] = 'z'
		assert.Equal(t, []byte("abc"), b)
	})

	t.Run("should pick the codec from the compression flag", func(t *testing.T) {
		assert.Equal(t, Snappy, ValueCodec(true))
		assert.Equal(t, Bytes, ValueCodec(false))
	})
}
