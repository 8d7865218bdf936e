package storage

import "fmt"

// Ref is a lazy handle binding an in-memory referent to a record
// address.
//
// A Ref is in one of four states:
//
//	empty    no referent, NullAddress
//	pending  referent present, NullAddress (never written)
//	unloaded no referent, address set
//	stored   referent present, address set
//
// Get moves an unloaded Ref to stored; Store moves a pending Ref to
// stored. No other transition exists, and a stored Ref never changes.
type Ref[T any] struct {
	referent T
	present  bool
	address  Address
	codec    Codec[T]
}

// NewRef returns a pending reference holding v.
func NewRef[T any](codec Codec[T], v T) *Ref[T] {
	return &Ref[T]{
		referent: v,
		present:  true,
		codec:    codec,
	}
}

// RefAt returns an unloaded reference to the record at addr. A
// NullAddress yields the empty reference.
func RefAt[T any](codec Codec[T], addr Address) *Ref[T] {
	return &Ref[T]{
		address: addr,
		codec:   codec,
	}
}

// EmptyRef returns a reference to nothing.
func EmptyRef[T any](codec Codec[T]) *Ref[T] {
	return &Ref[T]{codec: codec}
}

// Address returns the record address, or NullAddress if the referent
// has not been stored.
func (r *Ref[T]) Address() Address {
	return r.address
}

// Present reports whether the referent is in memory.
func (r *Ref[T]) Present() bool {
	return r.present
}

// IsEmpty reports whether the reference points at nothing.
func (r *Ref[T]) IsEmpty() bool {
	return !r.present && r.address.IsNull()
}

// Pending reports whether the referent still has to be written.
func (r *Ref[T]) Pending() bool {
	return r.present && r.address.IsNull()
}

// Peek returns the in-memory referent without loading it.
func (r *Ref[T]) Peek() (T, bool) {
	return r.referent, r.present
}

// Get returns the referent, reading and decoding it on first use. The
// empty reference yields the zero value of T.
func (r *Ref[T]) Get(rd BlockReader) (T, error) {
	if r.present || r.address.IsNull() {
		return r.referent, nil
	}
	b, err := rd.Read(r.address)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := r.codec.Decode(b)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode record at %s: %w", r.address, err)
	}
	r.referent = v
	r.present = true
	return v, nil
}

// Store writes a pending referent and records its address. It is a
// no-op for any other state. If the codec is a Preparer, its Prepare
// runs first.
func (r *Ref[T]) Store(w BlockWriter) error {
	if !r.Pending() {
		return nil
	}
	if p, ok := r.codec.(Preparer[T]); ok {
		if err := p.Prepare(r.referent, w); err != nil {
			return err
		}
	}
	b, err := r.codec.Encode(r.referent)
	if err != nil {
		return fmt.Errorf("failed to encode referent: %w", err)
	}
	addr, err := w.Write(b)
	if err != nil {
		return err
	}
	r.address = addr
	return nil
}
