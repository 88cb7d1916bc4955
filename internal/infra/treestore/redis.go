package treestore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore maps tree paths onto redis keys, one document per key.
// GET/SET atomicity per key is what gives the store its single-path
// replace guarantee; no MULTI/EXEC is ever used.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *RedisStore) key(path string) string {
	return s.prefix + path
}

func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, s.key(path)).Bytes()
	if err == redis.Nil {
		return nil, ErrPathMissing
	}
	if err != nil {
		return nil, errors.Wrap(err, "treestore: redis get")
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, path string, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(path), value, 0).Err(); err != nil {
		return errors.Wrap(err, "treestore: redis set")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, path string) error {
	if err := s.rdb.Del(ctx, s.key(path)).Err(); err != nil {
		return errors.Wrap(err, "treestore: redis del")
	}
	return nil
}
