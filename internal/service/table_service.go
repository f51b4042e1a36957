package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/internal/tables"
	"github.com/mmynk/tableside/pkg/api"
)

// TableService implements the Connect TableService: guest presence for diners and
// merge/split for cashiers.
type TableService struct {
	tracker   *tables.Tracker
	publisher notify.Publisher
	metrics   *metrics.Metrics
}

var _ api.TableServiceHandler = (*TableService)(nil)

// NewTableService creates a new TableService. m may be nil.
func NewTableService(tracker *tables.Tracker, publisher notify.Publisher, m *metrics.Metrics) *TableService {
	return &TableService{tracker: tracker, publisher: publisher, metrics: m}
}

func requireTable(tableID int64) error {
	if tableID <= 0 {
		return apperr.Validation(apperr.CodeMissingField, "table id is required")
	}
	return nil
}

func requireParticipant(ctx context.Context) (string, error) {
	id := middleware.GetParticipant(ctx)
	if id == "" {
		return "", apperr.Validation(apperr.CodeMissingField, "the %s header is required", middleware.ParticipantHeader)
	}
	return id, nil
}

// JoinTable attaches the caller's device to the table.
func (s *TableService) JoinTable(ctx context.Context, req *connect.Request[api.JoinTableRequest]) (*connect.Response[api.JoinTableResponse], error) {
	if err := requireTable(req.Msg.TableID); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	participantID, err := requireParticipant(ctx)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	count := s.tracker.AddGuest(req.Msg.TableID, participantID)
	slog.Debug("Guest joined", "table_id", req.Msg.TableID, "participant", participantID, "guests", count)

	return connect.NewResponse(&api.JoinTableResponse{
		GuestCount: count,
		Tables:     s.tracker.BillingTables(req.Msg.TableID),
	}), nil
}

// LeaveTable detaches the caller's device. Leaving twice is not an error.
func (s *TableService) LeaveTable(ctx context.Context, req *connect.Request[api.LeaveTableRequest]) (*connect.Response[api.LeaveTableResponse], error) {
	if err := requireTable(req.Msg.TableID); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	participantID, err := requireParticipant(ctx)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	if s.tracker.RemoveGuest(req.Msg.TableID, participantID) {
		slog.Debug("Guest left", "table_id", req.Msg.TableID, "participant", participantID)
	}
	return connect.NewResponse(&api.LeaveTableResponse{GuestCount: s.tracker.GuestCount(req.Msg.TableID)}), nil
}

// Heartbeat keeps the caller's guest session alive.
func (s *TableService) Heartbeat(ctx context.Context, req *connect.Request[api.HeartbeatRequest]) (*connect.Response[api.HeartbeatResponse], error) {
	if err := requireTable(req.Msg.TableID); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	participantID, err := requireParticipant(ctx)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	active := s.tracker.Touch(req.Msg.TableID, participantID)
	return connect.NewResponse(&api.HeartbeatResponse{
		Active:     active,
		GuestCount: s.tracker.GuestCount(req.Msg.TableID),
	}), nil
}

// GuestCount returns the number of live guest sessions at the table.
func (s *TableService) GuestCount(ctx context.Context, req *connect.Request[api.GuestCountRequest]) (*connect.Response[api.GuestCountResponse], error) {
	if err := requireTable(req.Msg.TableID); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&api.GuestCountResponse{GuestCount: s.tracker.GuestCount(req.Msg.TableID)}), nil
}

// MergeTables fuses tables into one billing group. Cashier only.
func (s *TableService) MergeTables(ctx context.Context, req *connect.Request[api.MergeTablesRequest]) (*connect.Response[api.MergeTablesResponse], error) {
	if err := middleware.RequireRole(ctx, auth.RoleCashier); err != nil {
		return nil, err
	}

	group, err := s.tracker.Merge(req.Msg.TableIDs, req.Msg.Label)
	s.metrics.ObserveMerge("merge", err)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	s.publishGroup(ctx, notify.EventTablesMerged, group)
	return connect.NewResponse(&api.MergeTablesResponse{Group: toAPIGroup(group)}), nil
}

// SplitGroup dissolves a group. An unknown group reports ok=false. Cashier only.
func (s *TableService) SplitGroup(ctx context.Context, req *connect.Request[api.SplitGroupRequest]) (*connect.Response[api.SplitGroupResponse], error) {
	if err := middleware.RequireRole(ctx, auth.RoleCashier); err != nil {
		return nil, err
	}

	group, found := s.tracker.GetGroup(req.Msg.GroupID)
	ok := found && s.tracker.SplitGroup(req.Msg.GroupID)
	s.metrics.ObserveMerge("split_group", nil)
	if ok {
		s.publishGroup(ctx, notify.EventTablesSplit, group)
	}
	return connect.NewResponse(&api.SplitGroupResponse{Ok: ok}), nil
}

// SplitTable detaches one table from its group; a group left with a single table is
// dissolved. A table in no group reports ok=false. Cashier only.
func (s *TableService) SplitTable(ctx context.Context, req *connect.Request[api.SplitTableRequest]) (*connect.Response[api.SplitTableResponse], error) {
	if err := middleware.RequireRole(ctx, auth.RoleCashier); err != nil {
		return nil, err
	}

	group, found := s.tracker.FindGroup(req.Msg.TableID)
	ok := found && s.tracker.SplitTable(req.Msg.TableID)
	s.metrics.ObserveMerge("split_table", nil)
	if ok {
		s.publishGroup(ctx, notify.EventTablesSplit, group)
	}
	return connect.NewResponse(&api.SplitTableResponse{Ok: ok}), nil
}

// ListGroups returns every active group, oldest first.
func (s *TableService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	groups := s.tracker.ListGroups()
	out := make([]api.MergeGroup, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// FindGroup returns the group containing the table, if any.
func (s *TableService) FindGroup(ctx context.Context, req *connect.Request[api.FindGroupRequest]) (*connect.Response[api.FindGroupResponse], error) {
	group, ok := s.tracker.FindGroup(req.Msg.TableID)
	if !ok {
		return connect.NewResponse(&api.FindGroupResponse{}), nil
	}
	g := toAPIGroup(group)
	return connect.NewResponse(&api.FindGroupResponse{Group: &g, Found: true}), nil
}

// publishGroup tells every affected table and the cashiers about a merge or split.
// Subjects come from the group as it was, so tables just released hear about it too.
func (s *TableService) publishGroup(ctx context.Context, eventType string, group models.MergeGroup) {
	subjects := make([]string, 0, len(group.Tables)+1)
	for _, id := range group.Tables {
		subjects = append(subjects, notify.TableSubject(id))
	}
	subjects = append(subjects, notify.CashierSubject)

	notify.Broadcast(ctx, s.publisher, notify.GroupSummary{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		GroupID:    group.ID,
		Label:      group.Label,
		Tables:     group.Tables,
	}, subjects...)
}
