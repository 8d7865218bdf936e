package tree

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"

	"github.com/a-poor/cowdb/storage"
	"github.com/fxamacker/cbor/v2"
)

// nodeRecord is the on-disk form of a Node: child and value addresses
// instead of references. String keys are written as CBOR byte strings,
// since keys are arbitrary bytes and CBOR text must be valid UTF-8.
type nodeRecord struct {
	Left  uint64          `cbor:"1,keyasint"`
	Key   cbor.RawMessage `cbor:"2,keyasint"`
	Value uint64          `cbor:"3,keyasint"`
	Right uint64          `cbor:"4,keyasint"`
	Size  uint64          `cbor:"5,keyasint"`
}

// NodeCodec encodes nodes as deterministic CBOR maps. Decoded nodes
// carry unloaded references to their children and value.
type NodeCodec[K cmp.Ordered] struct {
	values storage.Codec[[]byte]
	enc    cbor.EncMode
	dec    cbor.DecMode
}

var (
	_ storage.Codec[*Node[string]]    = (*NodeCodec[string])(nil)
	_ storage.Preparer[*Node[string]] = (*NodeCodec[string])(nil)
)

// NewNodeCodec returns a node codec whose decoded value references use
// the given value codec.
func NewNodeCodec[K cmp.Ordered](values storage.Codec[[]byte]) (*NodeCodec[K], error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create cbor decoder: %w", err)
	}
	return &NodeCodec[K]{
		values: values,
		enc:    enc,
		dec:    dec,
	}, nil
}

func (c *NodeCodec[K]) Encode(n *Node[K]) ([]byte, error) {
	if n == nil {
		return nil, errors.New("cannot encode a nil node")
	}
	if n.Left.Pending() || n.Right.Pending() || n.Value.Pending() {
		return nil, fmt.Errorf("%w: key %v", ErrUnstoredChild, n.Key)
	}
	key, err := c.encodeKey(n.Key)
	if err != nil {
		return nil, err
	}
	return c.enc.Marshal(nodeRecord{
		Left:  uint64(n.Left.Address()),
		Key:   key,
		Value: uint64(n.Value.Address()),
		Right: uint64(n.Right.Address()),
		Size:  n.Size,
	})
}

// Prepare stores the value and every pending node below n, children
// before parents, so n can be encoded.
func (c *NodeCodec[K]) Prepare(n *Node[K], w storage.BlockWriter) error {
	if n == nil {
		return nil
	}
	if err := n.Value.Store(w); err != nil {
		return fmt.Errorf("failed to store value of %v: %w", n.Key, err)
	}
	if err := storeSubtree(w, n.Left); err != nil {
		return err
	}
	return storeSubtree(w, n.Right)
}

func (c *NodeCodec[K]) Decode(b []byte) (*Node[K], error) {
	var rec nodeRecord
	if err := c.dec.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrCorruptRecord, err)
	}
	key, err := c.decodeKey(rec.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrCorruptRecord, err)
	}
	return &Node[K]{
		Left:  storage.RefAt[*Node[K]](c, storage.Address(rec.Left)),
		Key:   key,
		Value: storage.RefAt(c.values, storage.Address(rec.Value)),
		Right: storage.RefAt[*Node[K]](c, storage.Address(rec.Right)),
		Size:  rec.Size,
	}, nil
}

func (c *NodeCodec[K]) encodeKey(k K) (cbor.RawMessage, error) {
	if v := reflect.ValueOf(k); v.Kind() == reflect.String {
		return c.enc.Marshal([]byte(v.String()))
	}
	return c.enc.Marshal(k)
}

func (c *NodeCodec[K]) decodeKey(raw cbor.RawMessage) (K, error) {
	var k K
	v := reflect.ValueOf(&k).Elem()
	if v.Kind() != reflect.String {
		err := c.dec.Unmarshal(raw, &k)
		return k, err
	}
	var b []byte
	if err := c.dec.Unmarshal(raw, &b); err != nil {
		return k, err
	}
	v.SetString(string(b))
	return k, nil
}
