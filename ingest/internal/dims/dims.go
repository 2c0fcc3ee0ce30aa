// Package dims keeps the agent, date and metric dimension tables populated
// for the facts being posted.
package dims

import (
	"context"
	"fmt"
	"time"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/models"
	"github.com/factflow-systems/factflow/ingest/internal/sink"
)

const dateLayout = "2006-01-02"

// Goal holds the default target for a metric.
type Goal struct {
	DefaultGoal    int64
	YellowFloorPct float64
}

// DefaultGoals returns the goals used when none are configured.
func DefaultGoals() map[models.MetricID]Goal {
	return map[models.MetricID]Goal{
		models.MetricCalls:  {DefaultGoal: 60, YellowFloorPct: 0.8},
		models.MetricTexts:  {DefaultGoal: 40, YellowFloorPct: 0.8},
		models.MetricEmails: {DefaultGoal: 20, YellowFloorPct: 0.75},
		models.MetricCases:  {DefaultGoal: 10, YellowFloorPct: 0.7},
	}
}

// Service writes dimension rows for keys it has not written before.
type Service struct {
	writer sink.TableWriter
	memo   Memo
	goals  map[models.MetricID]Goal
	logger *logging.Logger
}

// NewService creates a Service. A nil memo uses a MemoryMemo and nil goals
// use DefaultGoals.
func NewService(writer sink.TableWriter, memo Memo, goals map[models.MetricID]Goal, logger *logging.Logger) *Service {
	if memo == nil {
		memo = NewMemoryMemo()
	}
	if goals == nil {
		goals = DefaultGoals()
	}
	return &Service{writer: writer, memo: memo, goals: goals, logger: logging.OrDefault(logger)}
}

// EnsureDimensions pushes DimDate, DimMetric and DimAgent rows for the hinted
// keys. Keys are claimed in the memo before the push and released if it fails.
func (s *Service) EnsureDimensions(ctx context.Context, hints models.DimHints) error {
	if hints.Empty() {
		return nil
	}

	dates := make([]string, 0, len(hints.Dates))
	for _, d := range hints.Dates {
		if _, err := time.Parse(dateLayout, d); err != nil {
			s.logger.WarnContext(ctx, "skipping unparseable date hint", "date", d, logging.Error(err))
			continue
		}
		dates = append(dates, d)
	}
	metricKeys := make([]string, len(hints.Metrics))
	for i, m := range hints.Metrics {
		metricKeys[i] = string(m)
	}

	if err := s.ensure(ctx, sink.TableDimDate, dates, dateRow); err != nil {
		return err
	}
	if err := s.ensure(ctx, sink.TableDimMetric, metricKeys, s.metricRow); err != nil {
		return err
	}
	return s.ensure(ctx, sink.TableDimAgent, hints.AgentIDs, agentRow)
}

func (s *Service) ensure(ctx context.Context, table string, keys []string, build func(string) sink.Row) error {
	if len(keys) == 0 {
		return nil
	}
	claimed, err := s.memo.Claim(ctx, table, keys)
	if err != nil {
		return fmt.Errorf("ensure %s: %w", table, err)
	}
	if len(claimed) == 0 {
		return nil
	}

	rows := make([]sink.Row, len(claimed))
	for i, k := range claimed {
		rows[i] = build(k)
	}
	if err := sink.Push(ctx, s.writer, table, rows); err != nil {
		if relErr := s.memo.Release(ctx, table, claimed); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release dimension claims", logging.Table(table), logging.Error(relErr))
		}
		return fmt.Errorf("ensure %s: %w", table, err)
	}

	s.logger.DebugContext(ctx, "ensured dimension rows", logging.Table(table), logging.Count(len(rows)))
	return nil
}

// DateRow builds the DimDate row for a YYYY-MM-DD key.
func DateRow(key string) (sink.Row, error) {
	d, err := time.Parse(dateLayout, key)
	if err != nil {
		return nil, err
	}
	wd := d.Weekday()
	return sink.Row{
		"Date":      d.Format(time.RFC3339),
		"Year":      d.Year(),
		"Month":     int(d.Month()),
		"Day":       d.Day(),
		"MonthName": d.Month().String(),
		"Quarter":   (int(d.Month())-1)/3 + 1,
		"DayOfWeek": (int(wd)+6)%7 + 1,
		"DayName":   wd.String(),
		"IsWeekend": wd == time.Saturday || wd == time.Sunday,
	}, nil
}

func dateRow(key string) sink.Row {
	row, _ := DateRow(key)
	return row
}

func (s *Service) metricRow(key string) sink.Row {
	m := models.MetricID(key)
	goal := s.goals[m]
	return sink.Row{
		"MetricID":              key,
		"MetricName":            m.DisplayName(),
		"DefaultGoal":           goal.DefaultGoal,
		"DefaultYellowFloorPct": goal.YellowFloorPct,
	}
}

// AgentRow builds a DimAgent row. Name, email and timezone are filled in by
// the roster sync.
func AgentRow(id, name, email string) sink.Row {
	return sink.Row{
		"AgentID":      id,
		"AgentName":    name,
		"Email":        email,
		"TimezoneIANA": "",
		"ActiveFlag":   true,
	}
}

func agentRow(id string) sink.Row {
	return AgentRow(id, "", "")
}
