package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store implements cache.Repository on Redis. Keys are stored under an
// optional prefix so Flush only touches keys owned by the store.
type Store struct {
	db            redis.UniversalClient
	prefix        string
	scanBatchSize int64
}

// NewStore wraps a connected client. An empty prefix makes Flush run FLUSHDB.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		db:            client,
		prefix:        prefix,
		scanBatchSize: 1000,
	}
}

// NewStoreWithConfig uses the prefix and scan batch size from cfg.
func NewStoreWithConfig(client redis.UniversalClient, cfg Config) *Store {
	s := NewStore(client, cfg.Prefix)
	if cfg.ScanBatchSize > 0 {
		s.scanBatchSize = int64(cfg.ScanBatchSize)
	}
	return s
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.db.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns (nil, false, nil) for missing keys; redis.Nil is not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.db.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return s.db.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *Store) Forever(ctx context.Context, key string, value []byte) error {
	return s.db.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	n, err := s.db.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Flush removes every prefixed key using SCAN, or the whole database when
// the store has no prefix.
func (s *Store) Flush(ctx context.Context) error {
	if s.prefix == "" {
		return s.db.FlushDB(ctx).Err()
	}

	var cursor uint64
	for {
		batch, next, err := s.db.Scan(ctx, cursor, s.prefix+"*", s.scanBatchSize).Result()
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := s.db.Del(ctx, batch...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Conn returns the underlying Redis client.
func (s *Store) Conn() redis.UniversalClient {
	return s.db
}

// Close terminates the Redis connection.
func (s *Store) Close() error {
	return s.db.Close()
}
