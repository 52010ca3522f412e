package cache

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Repository is the backing store behind a Pool. Implementations must be
// safe for concurrent use; the pool adds no locking around store calls.
type Repository interface {
	// Has reports whether a live value exists for key.
	Has(ctx context.Context, key string) (bool, error)
	// Get returns the stored bytes. A missing key returns (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value for ttl. A ttl <= 0 is rejected by callers, not stores.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Forever stores value without expiry.
	Forever(ctx context.Context, key string, value []byte) error
	// Forget removes key and reports whether something was removed.
	Forget(ctx context.Context, key string) (bool, error)
	// Flush removes every key owned by the store.
	Flush(ctx context.Context) error
}

// Codec turns item values into bytes for the store.
type Codec interface {
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes into the codec's generic representation.
	Unmarshal(data []byte) (any, error)
	// Decode decodes into dst, a non-nil pointer to a concrete type.
	Decode(data []byte, dst any) error
}

// MsgpackCodec is the default Codec. string and []byte values round-trip
// with their type intact through Unmarshal; other types need Decode.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (MsgpackCodec) Decode(data []byte, dst any) error {
	return msgpack.Unmarshal(data, dst)
}
