// Package ledger records which dedup keys have already been admitted.
//
// CheckAndMark is a single atomic conditional insert in every backend. No
// locking happens around it; the storage primitive alone decides which of
// several concurrent callers wins a key.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// DefaultTTL outlasts upstream webhook retry windows.
const DefaultTTL = 14 * 24 * time.Hour

// Ledger is the at-most-once admission gate.
type Ledger interface {
	// CheckAndMark returns true the first time key is seen within the TTL and
	// false for every later call. Storage failures are returned as
	// *StorageError and never reported as a duplicate.
	CheckAndMark(ctx context.Context, key string) (bool, error)
}

// StorageError is a ledger failure other than "already admitted".
type StorageError struct {
	Backend string
	Key     string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s: check-and-mark %q: %v", e.Backend, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Options configures a ledger backend.
type Options struct {
	// TTL bounds how long a key stays admitted. Zero means DefaultTTL.
	TTL time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func newEntry(key string, now time.Time, ttl time.Duration) models.LedgerEntry {
	return models.LedgerEntry{
		Key:       key,
		SeenAt:    now.UTC(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}
