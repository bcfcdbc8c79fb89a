package pebblestore

import "github.com/fxamacker/cbor/v2"

// Codec converts leaf values to and from their stored byte form.
type Codec[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// CBORCodec encodes leaf values as deterministic CBOR, so a value always
// round-trips to the same record bytes.
type CBORCodec[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBORCodec[V any]() (CBORCodec[V], error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return CBORCodec[V]{}, err
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return CBORCodec[V]{}, err
	}
	return CBORCodec[V]{enc: enc, dec: dec}, nil
}

func (c CBORCodec[V]) Marshal(v V) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c CBORCodec[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := c.dec.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}
