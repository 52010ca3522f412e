package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// CacheEntry is the Bun model for cached values. ExpiresAt holds a unix
// timestamp; zero means the entry never expires.
type CacheEntry struct {
	bun.BaseModel `bun:"table:cache_entries"`

	Key       string `bun:"cache_key,pk"`
	Value     []byte `bun:"value,notnull"`
	ExpiresAt int64  `bun:"expires_at,notnull,default:0"`
}

// Store implements cache.Repository using Bun.
type Store struct {
	db  bun.IDB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a new store. Call CreateTable before first use unless
// the table is managed by migrations.
func NewStore(db bun.IDB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTable creates the cache_entries table if it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*CacheEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *Store) live(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("(expires_at = 0 OR expires_at > ?)", s.now().Unix())
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	q := s.db.NewSelect().
		Model((*CacheEntry)(nil)).
		Where("cache_key = ?", key)
	return s.live(q).Exists(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var model CacheEntry
	q := s.db.NewSelect().
		Model(&model).
		Where("cache_key = ?", key).
		Limit(1)
	err := s.live(q).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return model.Value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.upsert(ctx, key, value, s.now().Add(ttl).Unix())
}

func (s *Store) Forever(ctx context.Context, key string, value []byte) error {
	return s.upsert(ctx, key, value, 0)
}

func (s *Store) upsert(ctx context.Context, key string, value []byte, expiresAt int64) error {
	model := &CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiresAt,
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (cache_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	return err
}

func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*CacheEntry)(nil)).
		Where("cache_key = ?", key).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Flush(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*CacheEntry)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}

// Prune deletes expired rows and reports how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*CacheEntry)(nil)).
		Where("expires_at > 0 AND expires_at <= ?", s.now().Unix()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
