package agentsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/dims"
	"github.com/factflow-systems/factflow/ingest/internal/roster"
	"github.com/factflow-systems/factflow/ingest/internal/sink"
)

type stubMembers struct {
	members []roster.Member
	err     error
	groups  []string
}

func (s *stubMembers) Members(_ context.Context, groupID string) ([]roster.Member, error) {
	s.groups = append(s.groups, groupID)
	return s.members, s.err
}

// callLog records writer calls in order.
type callLog struct {
	calls    []string
	rows     []sink.Row
	clearErr error
	pushErr  error
}

func (c *callLog) PushRows(_ context.Context, table string, rows []sink.Row) error {
	c.calls = append(c.calls, "push:"+table)
	if c.pushErr != nil {
		return c.pushErr
	}
	c.rows = append(c.rows, rows...)
	return nil
}

func (c *callLog) ClearRows(_ context.Context, table string) error {
	c.calls = append(c.calls, "clear:"+table)
	return c.clearErr
}

var twoMembers = []roster.Member{
	{ID: "11", Name: "Ada", Email: "ada@example.com"},
	{ID: "12", Name: "Grace", Email: ""},
}

func TestSync_ClearsThenPushes(t *testing.T) {
	members := &stubMembers{members: twoMembers}
	w := &callLog{}
	s := NewService(members, w, nil, "42", logging.Nop())

	res, err := s.Sync(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, &Result{Cleared: true, Inserted: 2, Fetched: 2}, res)
	assert.Equal(t, []string{"clear:DimAgent", "push:DimAgent"}, w.calls)
	assert.Equal(t, []string{"42"}, members.groups)
	assert.Equal(t, dims.AgentRow("11", "Ada", "ada@example.com"), w.rows[0])
	assert.Equal(t, "", w.rows[1]["Email"])
}

func TestSync_DryRunTouchesNothing(t *testing.T) {
	w := &callLog{}
	s := NewService(&stubMembers{members: twoMembers}, w, nil, "42", logging.Nop())

	res, err := s.Sync(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, &Result{Fetched: 2, DryRun: true}, res)
	assert.Empty(t, w.calls)
}

func TestSync_NoMembersOnlyClears(t *testing.T) {
	w := &callLog{}
	s := NewService(&stubMembers{}, w, nil, "42", logging.Nop())

	res, err := s.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, &Result{Cleared: true}, res)
	assert.Equal(t, []string{"clear:DimAgent"}, w.calls)
}

func TestSync_FetchErrorStopsBeforeClear(t *testing.T) {
	w := &callLog{}
	s := NewService(&stubMembers{err: errors.New("401")}, w, nil, "42", logging.Nop())

	_, err := s.Sync(context.Background(), false)
	require.Error(t, err)
	assert.Empty(t, w.calls)
}

func TestSync_ClearErrorStopsBeforePush(t *testing.T) {
	w := &callLog{clearErr: errors.New("403")}
	s := NewService(&stubMembers{members: twoMembers}, w, nil, "42", logging.Nop())

	_, err := s.Sync(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, []string{"clear:DimAgent"}, w.calls)
}

func TestSync_PushError(t *testing.T) {
	w := &callLog{pushErr: errors.New("500")}
	s := NewService(&stubMembers{members: twoMembers}, w, nil, "42", logging.Nop())

	res, err := s.Sync(context.Background(), false)
	require.Error(t, err)
	assert.True(t, res.Cleared)
	assert.Zero(t, res.Inserted)
}

func TestSync_RequiresGroup(t *testing.T) {
	s := NewService(&stubMembers{}, &callLog{}, nil, "", logging.Nop())
	_, err := s.Sync(context.Background(), false)
	assert.Error(t, err)
}

func TestSync_ReseedsMemo(t *testing.T) {
	memo := dims.NewMemoryMemo()
	ctx := context.Background()
	_, err := memo.Claim(ctx, sink.TableDimAgent, []string{"99"})
	require.NoError(t, err)

	s := NewService(&stubMembers{members: twoMembers}, &callLog{}, memo, "42", logging.Nop())
	_, err = s.Sync(ctx, false)
	require.NoError(t, err)

	claimed, err := memo.Claim(ctx, sink.TableDimAgent, []string{"11", "12", "99"})
	require.NoError(t, err)
	assert.Equal(t, []string{"99"}, claimed, "stale agent is forgotten, synced agents are remembered")
}
