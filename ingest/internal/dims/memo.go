package dims

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Memo remembers which dimension keys have already been written.
type Memo interface {
	// Claim marks keys as written and returns the ones that were not
	// already marked, in input order.
	Claim(ctx context.Context, table string, keys []string) ([]string, error)
	// Release unmarks keys whose write failed.
	Release(ctx context.Context, table string, keys []string) error
	// Reset forgets every key of table.
	Reset(ctx context.Context, table string) error
}

// MemoryMemo is a process-local Memo. It is forgotten on restart.
type MemoryMemo struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func NewMemoryMemo() *MemoryMemo {
	return &MemoryMemo{sets: make(map[string]map[string]struct{})}
}

func (m *MemoryMemo) Claim(_ context.Context, table string, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[table]
	if !ok {
		set = make(map[string]struct{})
		m.sets[table] = set
	}
	var claimed []string
	for _, k := range keys {
		if _, seen := set[k]; seen {
			continue
		}
		set[k] = struct{}{}
		claimed = append(claimed, k)
	}
	return claimed, nil
}

func (m *MemoryMemo) Release(_ context.Context, table string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.sets[table], k)
	}
	return nil
}

func (m *MemoryMemo) Reset(_ context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, table)
	return nil
}

// DefaultMemoPrefix namespaces memo sets in a shared Redis.
const DefaultMemoPrefix = "dims:"

// RedisMemo keeps one Redis set per table, shared by every replica.
type RedisMemo struct {
	client *redis.Client
	prefix string
}

// NewRedisMemo wraps an existing client. The client is owned by the caller.
func NewRedisMemo(client *redis.Client, prefix string) *RedisMemo {
	if prefix == "" {
		prefix = DefaultMemoPrefix
	}
	return &RedisMemo{client: client, prefix: prefix}
}

func (m *RedisMemo) Claim(ctx context.Context, table string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	setKey := m.prefix + table

	pipe := m.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.SAdd(ctx, setKey, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("claim %s keys: %w", table, err)
	}

	var claimed []string
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			claimed = append(claimed, keys[i])
		}
	}
	return claimed, nil
}

func (m *RedisMemo) Release(ctx context.Context, table string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	if err := m.client.SRem(ctx, m.prefix+table, members...).Err(); err != nil {
		return fmt.Errorf("release %s keys: %w", table, err)
	}
	return nil
}

func (m *RedisMemo) Reset(ctx context.Context, table string) error {
	if err := m.client.Del(ctx, m.prefix+table).Err(); err != nil {
		return fmt.Errorf("reset %s keys: %w", table, err)
	}
	return nil
}
