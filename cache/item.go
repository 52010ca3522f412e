package cache

import "time"

// Item is a single cache entry. A miss never carries a value.
type Item struct {
	key     string
	value   any
	hit     bool
	expires *time.Time
	after   *time.Duration

	// raw and codec are set on hits read from a store.
	raw   []byte
	codec Codec
}

// NewItem returns a miss for key, ready to be populated and saved.
func NewItem(key string) *Item {
	return &Item{key: key}
}

func newHit(key string, value any) *Item {
	return &Item{key: key, value: value, hit: true}
}

func newStoredHit(key string, value any, raw []byte, codec Codec) *Item {
	return &Item{key: key, value: value, hit: true, raw: raw, codec: codec}
}

func (i *Item) Key() string {
	return i.key
}

// Get returns the cached value, nil on a miss. Values read back from a store
// come in the codec's generic form (msgpack: int64, []any, map[string]any).
// Use Decode to restore the saved type.
func (i *Item) Get() any {
	return i.value
}

// Decode unmarshals the value into dst, which must be a non-nil pointer.
// Hits read from a store decode from the stored bytes, so dst gets back the
// type the value was saved with. time.Time values keep their instant, not
// their location.
func (i *Item) Decode(dst any) error {
	if !i.hit {
		return ErrItemMiss.Clone().WithMetadata(map[string]any{"key": i.key})
	}

	codec := i.codec
	if codec == nil {
		codec = MsgpackCodec{}
	}

	raw := i.raw
	if raw == nil {
		var err error
		if raw, err = codec.Marshal(i.value); err != nil {
			return err
		}
	}
	return codec.Decode(raw, dst)
}

// IsHit reports whether the lookup found a stored value.
func (i *Item) IsHit() bool {
	return i.hit
}

// Set replaces the value. It does not mark the item as a hit.
func (i *Item) Set(value any) *Item {
	i.value = value
	i.raw = nil
	return i
}

// ExpiresAt sets an absolute expiry. The location of t is kept and used when
// the pool computes the remaining lifetime. A zero time clears the expiry.
func (i *Item) ExpiresAt(t time.Time) *Item {
	i.after = nil
	if t.IsZero() {
		i.expires = nil
		return i
	}
	i.expires = &t
	return i
}

// ExpiresAfter sets the expiry relative to the moment the item is saved,
// measured with the pool clock.
func (i *Item) ExpiresAfter(d time.Duration) *Item {
	i.expires = nil
	i.after = &d
	return i
}

// NeverExpires clears any expiry.
func (i *Item) NeverExpires() *Item {
	i.expires = nil
	i.after = nil
	return i
}

// Expiration returns the expiry and whether one is set. A relative expiry is
// resolved against time.Now.
func (i *Item) Expiration() (time.Time, bool) {
	return i.expiration(time.Now())
}

func (i *Item) expiration(now time.Time) (time.Time, bool) {
	switch {
	case i.after != nil:
		return now.Add(*i.after), true
	case i.expires != nil:
		return *i.expires, true
	default:
		return time.Time{}, false
	}
}

func (i *Item) clone() *Item {
	c := *i
	if i.expires != nil {
		t := *i.expires
		c.expires = &t
	}
	if i.after != nil {
		d := *i.after
		c.after = &d
	}
	return &c
}
