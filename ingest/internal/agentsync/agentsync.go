// Package agentsync replaces the DimAgent table with the current ring-group
// roster.
package agentsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/dims"
	"github.com/factflow-systems/factflow/ingest/internal/roster"
	"github.com/factflow-systems/factflow/ingest/internal/sink"
)

// MemberLister returns the agents of a ring group.
type MemberLister interface {
	Members(ctx context.Context, groupID string) ([]roster.Member, error)
}

// Result summarises one sync run.
type Result struct {
	Cleared  bool `json:"cleared"`
	Inserted int  `json:"inserted"`
	Fetched  int  `json:"fetched"`
	DryRun   bool `json:"dryRun"`
}

type Service struct {
	members MemberLister
	writer  sink.TableWriter
	memo    dims.Memo
	groupID string
	logger  *logging.Logger
}

// NewService creates a Service. memo may be nil; when set it is reseeded
// with the synced agent ids so ingestion does not re-add them.
func NewService(members MemberLister, writer sink.TableWriter, memo dims.Memo, groupID string, logger *logging.Logger) *Service {
	return &Service{
		members: members,
		writer:  writer,
		memo:    memo,
		groupID: groupID,
		logger:  logging.OrDefault(logger).With(logging.Service("agentsync")),
	}
}

// Sync fetches the roster, clears DimAgent and inserts one row per member.
// A dry run stops after the fetch.
func (s *Service) Sync(ctx context.Context, dryRun bool) (*Result, error) {
	if s.groupID == "" {
		return nil, errors.New("ring group id is not configured")
	}

	s.logger.InfoContext(ctx, "fetching ring group members", "ring_group_id", s.groupID, "dry_run", dryRun)
	members, err := s.members.Members(ctx, s.groupID)
	if err != nil {
		return nil, fmt.Errorf("fetch ring group members: %w", err)
	}
	s.logger.InfoContext(ctx, "fetched roster", "ring_group_id", s.groupID, logging.Count(len(members)))

	if dryRun {
		s.logger.InfoContext(ctx, "dry run, skipping clear and push", logging.Count(len(members)))
		return &Result{Fetched: len(members), DryRun: true}, nil
	}

	if err := s.writer.ClearRows(ctx, sink.TableDimAgent); err != nil {
		return nil, fmt.Errorf("clear %s: %w", sink.TableDimAgent, err)
	}
	s.logger.InfoContext(ctx, "cleared agent table", logging.Table(sink.TableDimAgent))
	s.forget(ctx)

	if len(members) == 0 {
		s.logger.InfoContext(ctx, "no members to insert")
		return &Result{Cleared: true}, nil
	}

	rows := make([]sink.Row, len(members))
	ids := make([]string, len(members))
	for i, m := range members {
		rows[i] = dims.AgentRow(m.ID, m.Name, m.Email)
		ids[i] = m.ID
	}
	if err := sink.Push(ctx, s.writer, sink.TableDimAgent, rows); err != nil {
		return &Result{Cleared: true, Fetched: len(members)}, err
	}
	s.remember(ctx, ids)

	s.logger.InfoContext(ctx, "inserted agent rows", logging.Count(len(rows)))
	return &Result{Cleared: true, Inserted: len(rows), Fetched: len(members)}, nil
}

func (s *Service) forget(ctx context.Context) {
	if s.memo == nil {
		return
	}
	if err := s.memo.Reset(ctx, sink.TableDimAgent); err != nil {
		s.logger.WarnContext(ctx, "failed to reset agent memo", logging.Error(err))
	}
}

func (s *Service) remember(ctx context.Context, ids []string) {
	if s.memo == nil {
		return
	}
	if _, err := s.memo.Claim(ctx, sink.TableDimAgent, ids); err != nil {
		s.logger.WarnContext(ctx, "failed to seed agent memo", logging.Error(err))
	}
}
