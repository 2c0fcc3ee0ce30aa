package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// memorySweepEvery bounds how often CheckAndMark scans for expired entries.
const memorySweepEvery = time.Minute

// MemoryLedger keeps entries in process memory. Expired entries are treated
// as absent when next looked up and are reclaimed by a sweep that runs at
// most once per minute from CheckAndMark. Intended for development and tests.
type MemoryLedger struct {
	mu        sync.Mutex
	entries   map[string]models.LedgerEntry
	lastSweep time.Time
	opts      Options
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(opts Options) *MemoryLedger {
	opts = opts.withDefaults()
	return &MemoryLedger{
		entries:   make(map[string]models.LedgerEntry),
		lastSweep: opts.Now(),
		opts:      opts,
	}
}

func (l *MemoryLedger) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &StorageError{Backend: "memory", Key: key, Err: err}
	}

	now := l.opts.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= memorySweepEvery {
		l.sweepLocked(now)
	}

	if e, ok := l.entries[key]; ok && e.ExpiresAt > now.Unix() {
		return false, nil
	}
	l.entries[key] = newEntry(key, now, l.opts.TTL)
	return true, nil
}

func (l *MemoryLedger) sweepLocked(now time.Time) {
	cutoff := now.Unix()
	for key, e := range l.entries {
		if e.ExpiresAt <= cutoff {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of stored entries, expired or not.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
