package dims

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/models"
	"github.com/factflow-systems/factflow/ingest/internal/sink"
)

type recordingWriter struct {
	pushes []push
	failOn string
}

type push struct {
	table string
	rows  []sink.Row
}

func (w *recordingWriter) PushRows(_ context.Context, table string, rows []sink.Row) error {
	if table == w.failOn {
		return errors.New("push rejected")
	}
	w.pushes = append(w.pushes, push{table: table, rows: rows})
	return nil
}

func (w *recordingWriter) ClearRows(context.Context, string) error { return nil }

func (w *recordingWriter) table(name string) []sink.Row {
	var out []sink.Row
	for _, p := range w.pushes {
		if p.table == name {
			out = append(out, p.rows...)
		}
	}
	return out
}

func hints() models.DimHints {
	return models.DimHints{
		AgentIDs: []string{"7", "unknown"},
		Dates:    []string{"2024-03-10"},
		Metrics:  []models.MetricID{models.MetricTexts},
	}
}

func TestEnsureDimensions_WritesEachTable(t *testing.T) {
	w := &recordingWriter{}
	s := NewService(w, nil, nil, logging.Nop())

	require.NoError(t, s.EnsureDimensions(context.Background(), hints()))

	require.Len(t, w.pushes, 3)
	assert.Equal(t, sink.TableDimDate, w.pushes[0].table)
	assert.Equal(t, sink.TableDimMetric, w.pushes[1].table)
	assert.Equal(t, sink.TableDimAgent, w.pushes[2].table)

	metric := w.table(sink.TableDimMetric)[0]
	assert.Equal(t, "TEXTS", metric["MetricID"])
	assert.Equal(t, "Texts", metric["MetricName"])
	assert.Equal(t, int64(40), metric["DefaultGoal"])

	agents := w.table(sink.TableDimAgent)
	require.Len(t, agents, 2)
	assert.Equal(t, "7", agents[0]["AgentID"])
	assert.Equal(t, true, agents[0]["ActiveFlag"])
}

func TestEnsureDimensions_OnlyNewKeysArePushed(t *testing.T) {
	w := &recordingWriter{}
	s := NewService(w, NewMemoryMemo(), nil, logging.Nop())
	ctx := context.Background()

	require.NoError(t, s.EnsureDimensions(ctx, hints()))
	require.NoError(t, s.EnsureDimensions(ctx, hints()))
	assert.Len(t, w.pushes, 3, "second call has nothing new")

	next := hints()
	next.AgentIDs = append(next.AgentIDs, "8")
	require.NoError(t, s.EnsureDimensions(ctx, next))
	require.Len(t, w.pushes, 4)
	assert.Equal(t, []sink.Row{AgentRow("8", "", "")}, w.pushes[3].rows)
}

func TestEnsureDimensions_EmptyHints(t *testing.T) {
	w := &recordingWriter{}
	s := NewService(w, nil, nil, logging.Nop())

	require.NoError(t, s.EnsureDimensions(context.Background(), models.DimHints{}))
	assert.Empty(t, w.pushes)
}

func TestEnsureDimensions_FailedPushReleasesClaims(t *testing.T) {
	w := &recordingWriter{failOn: sink.TableDimAgent}
	memo := NewMemoryMemo()
	s := NewService(w, memo, nil, logging.Nop())
	ctx := context.Background()

	err := s.EnsureDimensions(ctx, hints())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DimAgent")

	w.failOn = ""
	require.NoError(t, s.EnsureDimensions(ctx, hints()))
	assert.Len(t, w.table(sink.TableDimAgent), 2, "agents are retried")
	assert.Len(t, w.table(sink.TableDimDate), 1, "dates were not released")
}

func TestEnsureDimensions_SkipsBadDates(t *testing.T) {
	w := &recordingWriter{}
	s := NewService(w, nil, nil, logging.Nop())

	err := s.EnsureDimensions(context.Background(), models.DimHints{Dates: []string{"not-a-date", "2024-12-31"}})
	require.NoError(t, err)
	dates := w.table(sink.TableDimDate)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-12-31T00:00:00Z", dates[0]["Date"])
}

func TestDateRow(t *testing.T) {
	tests := []struct {
		date      string
		quarter   int
		dayOfWeek int
		dayName   string
		weekend   bool
	}{
		{"2024-03-10", 1, 7, "Sunday", true},
		{"2024-03-11", 1, 1, "Monday", false},
		{"2024-06-15", 2, 6, "Saturday", true},
		{"2024-10-02", 4, 3, "Wednesday", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			row, err := DateRow(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.quarter, row["Quarter"])
			assert.Equal(t, tt.dayOfWeek, row["DayOfWeek"])
			assert.Equal(t, tt.dayName, row["DayName"])
			assert.Equal(t, tt.weekend, row["IsWeekend"])
		})
	}

	row, err := DateRow("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2024, row["Year"])
	assert.Equal(t, 3, row["Month"])
	assert.Equal(t, 10, row["Day"])
	assert.Equal(t, "March", row["MonthName"])

	_, err = DateRow("10/03/2024")
	assert.Error(t, err)
}
