// Package db defines the storage primitives facade. Repositories depend on the
// narrow sub-interfaces; nothing above this boundary sees Redis command
// semantics.
package db

import (
	"context"
	"time"
)

// Store is the full database facade combining all sub-interfaces.
// Consumers use the narrow sub-interfaces (ISP); Store exists for wiring.
type Store interface {
	Pinger
	KVStore
	HashStore
	SetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Del(ctx context.Context, key string) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based record operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SetIndexItem holds a single set key+member pair for pipelined SADD/SREM.
type SetIndexItem struct {
	Key    string
	Member string
}

// SetStore provides set operations backing the secondary indexes.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SAddMulti(ctx context.Context, items []SetIndexItem) error
	SRem(ctx context.Context, key string, members ...string) error
	SRemMulti(ctx context.Context, items []SetIndexItem) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
	SCard(ctx context.Context, key string) (int, error)
}
