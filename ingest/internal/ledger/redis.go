package ledger

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces ledger keys in a shared Redis.
const DefaultKeyPrefix = "ledger:"

// RedisLedger stores one key per admitted event using SET NX with an expiry,
// so Redis reclaims entries on its own once the TTL passes.
type RedisLedger struct {
	client *redis.Client
	prefix string
	opts   Options
}

// NewRedisLedger wraps an existing client. The client is owned by the caller.
func NewRedisLedger(client *redis.Client, prefix string, opts Options) *RedisLedger {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisLedger{client: client, prefix: prefix, opts: opts.withDefaults()}
}

func (l *RedisLedger) CheckAndMark(ctx context.Context, key string) (bool, error) {
	entry := newEntry(key, l.opts.Now(), l.opts.TTL)
	value, err := json.Marshal(entry)
	if err != nil {
		return false, &StorageError{Backend: "redis", Key: key, Err: err}
	}

	admitted, err := l.client.SetNX(ctx, l.prefix+key, value, l.opts.TTL).Result()
	if err != nil {
		return false, &StorageError{Backend: "redis", Key: key, Err: err}
	}
	return admitted, nil
}
