package dlq_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/common/messaging"
	"github.com/factflow-systems/factflow/common/middleware"
	"github.com/factflow-systems/factflow/ingest/internal/dlq"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

func envelope(body string) *models.IngestEnvelope {
	return &models.IngestEnvelope{
		Source:     models.SourceAloware,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       json.RawMessage(body),
		ReceivedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewQueue_CreatesNestedDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dlq")
	q, err := dlq.NewQueue(path, logging.Nop())
	require.NoError(t, err)
	require.NotNil(t, q)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestQueue_WritePreservesEnvelope(t *testing.T) {
	dir := t.TempDir()
	q, err := dlq.NewQueue(dir, logging.Nop())
	require.NoError(t, err)

	env := envelope(`{"event":"call","id":"abc","nested":{"a":[1,2]}}`)
	require.NoError(t, q.Write(context.Background(), env, errors.New("ledger unavailable"), dlq.ReasonLedger))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	var fd dlq.FailedDelivery
	require.NoError(t, json.Unmarshal(data, &fd))

	assert.NotEmpty(t, fd.ID)
	assert.Equal(t, dlq.ReasonLedger, fd.Reason)
	assert.Equal(t, "ledger unavailable", fd.Error)
	assert.Equal(t, 1, fd.Attempts)
	assert.Equal(t, models.SourceAloware, fd.Envelope.Source)
	assert.JSONEq(t, string(env.Body), string(fd.Envelope.Body))
	assert.True(t, env.ReceivedAt.Equal(fd.Envelope.ReceivedAt))
}

var (
	_ dlq.Store         = (*dlq.Queue)(nil)
	_ dlq.StatsReporter = (*dlq.Queue)(nil)
	_ dlq.StatsReporter = (*dlq.JetStreamQueue)(nil)
)

func TestQueue_ListDeletePurge(t *testing.T) {
	q, err := dlq.NewQueue(t.TempDir(), logging.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, q.Write(ctx, envelope(`{}`), errors.New("boom"), dlq.ReasonSink))
	}

	all, err := q.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	some, err := q.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, some, 2)

	require.NoError(t, q.Delete(ctx, all[0].ID))
	assert.Equal(t, 3, q.Stats()["pending_files"])
	assert.ErrorIs(t, q.Delete(ctx, all[0].ID), dlq.ErrNotFound)

	require.NoError(t, q.Purge(ctx))
	empty, err := q.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, uint64(4), q.Stats()["written"])
}

func TestQueue_ListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	q, err := dlq.NewQueue(dir, logging.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "failed_0_bad.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, q.Write(ctx, envelope(`{}`), errors.New("x"), dlq.ReasonAdapter))

	list, err := q.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, dlq.ReasonAdapter, list[0].Reason)
}

func TestQueue_Nil(t *testing.T) {
	var q *dlq.Queue
	ctx := context.Background()

	assert.NoError(t, q.Write(ctx, envelope(`{}`), errors.New("x"), dlq.ReasonSink))
	_, err := q.List(ctx, 1)
	assert.ErrorContains(t, err, "not enabled")
	assert.Error(t, q.Delete(ctx, "id"))
	assert.Error(t, q.Purge(ctx))
	assert.Equal(t, false, q.Stats()["enabled"])
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*messaging.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg *messaging.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) IsConnected() bool { return p.err == nil }
func (p *fakePublisher) Close() error      { return nil }

func TestJetStreamQueue_Write(t *testing.T) {
	pub := &fakePublisher{}
	q := dlq.NewPublisherQueue(pub, logging.Nop())
	ctx := middleware.WithRequestID(context.Background(), "req-1")

	require.NoError(t, q.Write(ctx, envelope(`{"id":"1"}`), errors.New("post facts: 500"), dlq.ReasonSink))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "factflow.dlq.sink", msg.Subject)
	assert.Equal(t, "sink", msg.Metadata[messaging.HeaderReason])
	assert.Equal(t, "aloware", msg.Metadata[messaging.HeaderSource])
	assert.Equal(t, "req-1", msg.Metadata[messaging.HeaderRequestID])

	var fd dlq.FailedDelivery
	require.NoError(t, json.Unmarshal(msg.Data, &fd))
	assert.Equal(t, "post facts: 500", fd.Error)
	assert.Equal(t, uint64(1), q.Stats()["written_local"])
}

func TestJetStreamQueue_PublishError(t *testing.T) {
	q := dlq.NewPublisherQueue(&fakePublisher{err: errors.New("no responders")}, logging.Nop())

	err := q.Write(context.Background(), envelope(`{}`), errors.New("x"), dlq.ReasonLedger)
	assert.ErrorContains(t, err, "no responders")
	assert.Equal(t, false, q.Stats()["connected"])
}

func TestJetStreamQueue_NilClient(t *testing.T) {
	_, err := dlq.NewJetStreamQueue(context.Background(), nil, logging.Nop())
	assert.Error(t, err)

	var q *dlq.JetStreamQueue
	assert.NoError(t, q.Write(context.Background(), nil, errors.New("x"), dlq.ReasonSink))
}
