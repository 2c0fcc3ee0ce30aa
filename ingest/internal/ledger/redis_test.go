package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisLedger_AdmitsOnce(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLedger(client, "", Options{})
	ctx := context.Background()

	ok, err := l.CheckAndMark(ctx, "ALOWARE:ALOWARE:42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.CheckAndMark(ctx, "ALOWARE:ALOWARE:42")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLedger_StoresEntryWithTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	clock := newFakeClock()
	l := NewRedisLedger(client, "test:", Options{Now: clock.Now})

	_, err := l.CheckAndMark(context.Background(), "HUBSPOT:HUBSPOT:7")
	require.NoError(t, err)

	raw, err := mr.Get("test:HUBSPOT:HUBSPOT:7")
	require.NoError(t, err)

	var entry models.LedgerEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, "HUBSPOT:HUBSPOT:7", entry.Key)
	assert.Equal(t, clock.Now(), entry.SeenAt)
	assert.Equal(t, clock.Now().Add(DefaultTTL).Unix(), entry.ExpiresAt)

	assert.Equal(t, DefaultTTL, mr.TTL("test:HUBSPOT:HUBSPOT:7"))
}

func TestRedisLedger_ReadmitsAfterExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLedger(client, "", Options{TTL: time.Hour})
	ctx := context.Background()

	ok, _ := l.CheckAndMark(ctx, "k")
	assert.True(t, ok)

	mr.FastForward(30 * time.Minute)
	ok, _ = l.CheckAndMark(ctx, "k")
	assert.False(t, ok)

	mr.FastForward(31 * time.Minute)
	ok, err := l.CheckAndMark(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLedger_Concurrent(t *testing.T) {
	_, client := setupTestRedis(t)
	assertAdmitsOnce(t, NewRedisLedger(client, "", Options{}), "race", 32)
}

func TestRedisLedger_StorageFailureIsNotDuplicate(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLedger(client, "", Options{})
	mr.Close()

	ok, err := l.CheckAndMark(context.Background(), "k")
	assert.False(t, ok)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "redis", se.Backend)
	assert.Equal(t, "k", se.Key)
}
