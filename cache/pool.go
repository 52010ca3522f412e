package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-jwtguard"
)

// Pool is a PSR-6 style item pool over a Repository with deferred writes.
//
// Store failures never surface as errors: reads degrade to misses and writes
// report false. The only error returned by lookups is ErrInvalidKey.
type Pool struct {
	repo   Repository
	codec  Codec
	now    func() time.Time
	logger jwtguard.Logger

	mu       sync.Mutex
	deferred map[string]*Item
	order    []string
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed store errors.
func WithLogger(logger jwtguard.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCodec replaces the msgpack value codec.
func WithCodec(codec Codec) PoolOption {
	return func(p *Pool) {
		if codec != nil {
			p.codec = codec
		}
	}
}

// NewPool creates a pool backed by repo.
func NewPool(repo Repository, opts ...PoolOption) *Pool {
	p := &Pool{
		repo:     repo,
		codec:    MsgpackCodec{},
		now:      time.Now,
		logger:   jwtguard.DefaultLogger(),
		deferred: map[string]*Item{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetItem returns the item for key: a copy of a deferred item, a hit from the
// store, or a miss.
func (p *Pool) GetItem(ctx context.Context, key string) (*Item, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if item, ok := p.deferred[key]; ok {
		p.mu.Unlock()
		return item.clone(), nil
	}
	p.mu.Unlock()

	raw, found, err := p.repo.Get(ctx, key)
	if err != nil {
		p.logger.Debug("cache get failed, treating as miss", "key", key, "error", err)
		return NewItem(key), nil
	}
	if !found {
		return NewItem(key), nil
	}

	value, err := p.codec.Unmarshal(raw)
	if err != nil {
		p.logger.Debug("cache value decode failed, treating as miss", "key", key, "error", err)
		return NewItem(key), nil
	}

	return newStoredHit(key, value, raw, p.codec), nil
}

// GetItems returns one item per key. All keys are validated first.
func (p *Pool) GetItems(ctx context.Context, keys ...string) (map[string]*Item, error) {
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
	}

	items := make(map[string]*Item, len(keys))
	for _, key := range keys {
		item, err := p.GetItem(ctx, key)
		if err != nil {
			return nil, err
		}
		items[key] = item
	}
	return items, nil
}

// HasItem reports whether key resolves to a live item. Deferred items are
// live until their expiry has passed.
func (p *Pool) HasItem(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	return p.hasItem(ctx, key), nil
}

func (p *Pool) hasItem(ctx context.Context, key string) bool {
	p.mu.Lock()
	item, ok := p.deferred[key]
	p.mu.Unlock()

	if ok {
		expiresAt, set := item.expiration(p.now())
		if !set {
			return true
		}
		return expiresAt.After(p.now())
	}

	found, err := p.repo.Has(ctx, key)
	if err != nil {
		p.logger.Debug("cache has failed", "key", key, "error", err)
		return false
	}
	return found
}

// Save persists item immediately. An item whose expiry is not in the future
// is removed from the store and reported as a failure.
func (p *Pool) Save(ctx context.Context, item *Item) bool {
	if item == nil {
		return false
	}
	if err := ValidateKey(item.Key()); err != nil {
		return false
	}

	value, err := p.codec.Marshal(item.Get())
	if err != nil {
		p.logger.Debug("cache value encode failed", "key", item.Key(), "error", err)
		return false
	}

	expiresAt, set := item.expiration(p.now())
	if !set {
		if err := p.repo.Forever(ctx, item.Key(), value); err != nil {
			p.logger.Debug("cache forever failed", "key", item.Key(), "error", err)
			return false
		}
		return true
	}

	lifetime := p.lifetime(expiresAt)
	if lifetime <= 0 {
		if _, err := p.repo.Forget(ctx, item.Key()); err != nil {
			p.logger.Debug("cache forget of expired item failed", "key", item.Key(), "error", err)
		}
		return false
	}

	if err := p.repo.Put(ctx, item.Key(), value, time.Duration(lifetime)*time.Second); err != nil {
		p.logger.Debug("cache put failed", "key", item.Key(), "error", err)
		return false
	}
	return true
}

// lifetime returns whole seconds until expiresAt, measured with a clock in
// the expiry's own location.
func (p *Pool) lifetime(expiresAt time.Time) int64 {
	now := p.now().In(expiresAt.Location())
	return expiresAt.Unix() - now.Unix()
}

// SaveDeferred stages item until Commit. Items already expired are rejected.
// A later write for the same key replaces the staged item in place.
func (p *Pool) SaveDeferred(item *Item) bool {
	if item == nil {
		return false
	}
	if err := ValidateKey(item.Key()); err != nil {
		return false
	}

	// relative expiries are fixed here, against the pool clock
	expiresAt, set := item.expiration(p.now())
	if set && expiresAt.Before(p.now()) {
		return false
	}

	staged := newHit(item.Key(), item.Get())
	if set {
		staged.ExpiresAt(expiresAt)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.deferred[staged.Key()]; !exists {
		p.order = append(p.order, staged.Key())
	}
	p.deferred[staged.Key()] = staged
	return true
}

// Commit saves every deferred item in insertion order. The deferred set is
// cleared even when some saves fail; the result is true only if all succeed.
func (p *Pool) Commit(ctx context.Context) bool {
	p.mu.Lock()
	items := make([]*Item, 0, len(p.order))
	for _, key := range p.order {
		items = append(items, p.deferred[key])
	}
	p.deferred = map[string]*Item{}
	p.order = nil
	p.mu.Unlock()

	success := true
	for _, item := range items {
		if !p.Save(ctx, item) {
			success = false
		}
	}
	return success
}

// DeleteItem removes key from the deferred set and the store. A key that
// does not exist counts as deleted.
func (p *Pool) DeleteItem(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	return p.deleteItem(ctx, key), nil
}

func (p *Pool) deleteItem(ctx context.Context, key string) bool {
	p.mu.Lock()
	if _, ok := p.deferred[key]; ok {
		delete(p.deferred, key)
		for i, k := range p.order {
			if k == key {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()

	if !p.hasItem(ctx, key) {
		return true
	}

	removed, err := p.repo.Forget(ctx, key)
	if err != nil {
		p.logger.Debug("cache forget failed", "key", key, "error", err)
		return false
	}
	return removed
}

// DeleteItems validates every key before deleting any of them.
func (p *Pool) DeleteItems(ctx context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			return false, err
		}
	}

	success := true
	for _, key := range keys {
		if !p.deleteItem(ctx, key) {
			success = false
		}
	}
	return success, nil
}

// Clear drops staged items and flushes the store.
func (p *Pool) Clear(ctx context.Context) bool {
	p.mu.Lock()
	p.deferred = map[string]*Item{}
	p.order = nil
	p.mu.Unlock()

	if err := p.repo.Flush(ctx); err != nil {
		p.logger.Debug("cache flush failed", "error", err)
		return false
	}
	return true
}

// Pending returns the number of staged items.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Close commits any staged items. Owners of a pool defer Close so no
// deferred write is lost when their scope ends.
func (p *Pool) Close() error {
	if p.Pending() == 0 {
		return nil
	}
	if !p.Commit(context.Background()) {
		return ErrCommitFailed.Clone()
	}
	return nil
}
