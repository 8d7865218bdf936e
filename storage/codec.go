package storage

import (
	"fmt"

	"github.com/golang/snappy"
)

// Codec converts a referent to and from its record payload.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(b []byte) (T, error)
}

// Preparer is implemented by codecs whose referents hold references of
// their own. Ref.Store calls Prepare before encoding, so that everything
// the referent points at has an address by then.
type Preparer[T any] interface {
	Prepare(v T, w BlockWriter) error
}

// Bytes stores values as their raw bytes.
var Bytes Codec[[]byte] = bytesCodec{}

// Snappy stores values as snappy-compressed blocks.
var Snappy Codec[[]byte] = snappyCodec{}

type bytesCodec struct{}

func (bytesCodec) Encode(v []byte) ([]byte, error) {
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (bytesCodec) Decode(b []byte) ([]byte, error) {
	return b, nil
}

type snappyCodec struct{}

func (snappyCodec) Encode(v []byte) ([]byte, error) {
	return snappy.Encode(nil, v), nil
}

func (snappyCodec) Decode(b []byte) ([]byte, error) {
	v, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return v, nil
}

// ValueCodec returns the value codec for the compression setting.
func ValueCodec(compress bool) Codec[[]byte] {
	if compress {
		return Snappy
	}
	return Bytes
}
