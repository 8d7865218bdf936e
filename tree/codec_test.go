package tree

import (
	"testing"

	"github.com/a-poor/cowdb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeCodec(t *testing.T) {
	t.Run("should round trip addresses, key and size", func(t *testing.T) {
		c, err := NewNodeCodec[string](storage.Bytes)
		require.NoError(t, err)

		in := &Node[string]{
			Left:  storage.RefAt[*Node[string]](c, 4096),
			Key:   "hello",
			Value: storage.RefAt(storage.Bytes, 5000),
			Right: storage.RefAt[*Node[string]](c, storage.NullAddress),
			Size:  7,
		}
		b, err := c.Encode(in)
		require.NoError(t, err)

		out, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, "hello", out.Key)
		assert.EqualValues(t, 7, out.Size)
		assert.EqualValues(t, 4096, out.Left.Address())
		assert.EqualValues(t, 5000, out.Value.Address())
		assert.True(t, out.Right.IsEmpty())
		assert.False(t, out.Left.Present(), "children decode unloaded")

		// Deterministic encoding
		again, err := c.Encode(out)
		require.NoError(t, err)
		assert.Equal(t, b, again)
	})

	t.Run("should round trip keys that are not valid utf-8", func(t *testing.T) {
		c, err := NewNodeCodec[string](storage.Bytes)
		require.NoError(t, err)

		for _, key := range []string{"\xff", "a\x00b", "\xc3\x28", ""} {
			b, err := c.Encode(&Node[string]{
				Left:  storage.EmptyRef[*Node[string]](c),
				Key:   key,
				Value: storage.RefAt(storage.Bytes, 4096),
				Right: storage.EmptyRef[*Node[string]](c),
				Size:  1,
			})
			require.NoError(t, err)

			out, err := c.Decode(b)
			require.NoError(t, err, "key %q", key)
			assert.Equal(t, key, out.Key)
		}
	})

	t.Run("should round trip integer keys", func(t *testing.T) {
		c, err := NewNodeCodec[int](storage.Bytes)
		require.NoError(t, err)

		b, err := c.Encode(&Node[int]{
			Left:  storage.EmptyRef[*Node[int]](c),
			Key:   -42,
			Value: storage.RefAt(storage.Bytes, 4096),
			Right: storage.EmptyRef[*Node[int]](c),
			Size:  1,
		})
		require.NoError(t, err)

		out, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, -42, out.Key)
	})

	t.Run("should refuse nodes with pending children", func(t *testing.T) {
		c, err := NewNodeCodec[int](storage.Bytes)
		require.NoError(t, err)

		leaf := &Node[int]{
			Left:  storage.EmptyRef[*Node[int]](c),
			Key:   1,
			Value: storage.NewRef(storage.Bytes, []byte("v")),
			Right: storage.EmptyRef[*Node[int]](c),
			Size:  1,
		}
		_, err = c.Encode(leaf)
		assert.ErrorIs(t, err, ErrUnstoredChild)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		c, err := NewNodeCodec[int](storage.Bytes)
		require.NoError(t, err)

		_, err = c.Decode([]byte{0xff, 0x00})
		assert.ErrorIs(t, err, storage.ErrCorruptRecord)
	})
}
