package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ImportLedger remembers which catalog entries were already inserted so a
// repeated bulk import can skip them.
type ImportLedger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
	Close() error
}

type redisImportLedger struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisImportLedger builds a ledger keyed by catalog entry fingerprint.
func NewRedisImportLedger(addr, password string, db int, ttl time.Duration, prefix string) (ImportLedger, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	if prefix == "" {
		prefix = "employees_imported"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisImportLedger{client: client, ttl: ttl, prefix: prefix}, nil
}

func (l *redisImportLedger) key(k string) string {
	return fmt.Sprintf("%s:%s", l.prefix, k)
}

func (l *redisImportLedger) Seen(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil {
		return false, nil
	}
	n, err := l.client.Exists(ctx, l.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *redisImportLedger) Mark(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Set(ctx, l.key(key), time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}

func (l *redisImportLedger) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

// MemoryImportLedger is an in-process ledger for tests and dry runs.
type MemoryImportLedger struct {
	keys map[string]struct{}
}

func NewMemoryImportLedger(keys ...string) *MemoryImportLedger {
	l := &MemoryImportLedger{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		l.keys[k] = struct{}{}
	}
	return l
}

func (l *MemoryImportLedger) Seen(_ context.Context, key string) (bool, error) {
	_, ok := l.keys[key]
	return ok, nil
}

func (l *MemoryImportLedger) Mark(_ context.Context, key string) error {
	l.keys[key] = struct{}{}
	return nil
}

func (l *MemoryImportLedger) Close() error { return nil }

// Len reports how many keys are recorded.
func (l *MemoryImportLedger) Len() int { return len(l.keys) }
