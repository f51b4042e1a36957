package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const TableServiceName = "tableside.v1.TableService"

const (
	TableServiceJoinTableProcedure   = "/tableside.v1.TableService/JoinTable"
	TableServiceLeaveTableProcedure  = "/tableside.v1.TableService/LeaveTable"
	TableServiceHeartbeatProcedure   = "/tableside.v1.TableService/Heartbeat"
	TableServiceGuestCountProcedure  = "/tableside.v1.TableService/GuestCount"
	TableServiceMergeTablesProcedure = "/tableside.v1.TableService/MergeTables"
	TableServiceSplitGroupProcedure  = "/tableside.v1.TableService/SplitGroup"
	TableServiceSplitTableProcedure  = "/tableside.v1.TableService/SplitTable"
	TableServiceListGroupsProcedure  = "/tableside.v1.TableService/ListGroups"
	TableServiceFindGroupProcedure   = "/tableside.v1.TableService/FindGroup"
)

type MergeGroup struct {
	ID        int64   `json:"id"`
	Label     string  `json:"label,omitempty"`
	Tables    []int64 `json:"tables"`
	CreatedAt int64   `json:"createdAt"`
}

// JoinTableRequest registers the calling participant as a guest at the table.
type JoinTableRequest struct {
	TableID int64 `json:"tableId"`
}

type JoinTableResponse struct {
	GuestCount int `json:"guestCount"`
	// Tables is the billing group the table belongs to.
	Tables []int64 `json:"tables"`
}

type LeaveTableRequest struct {
	TableID int64 `json:"tableId"`
}

type LeaveTableResponse struct {
	GuestCount int `json:"guestCount"`
}

type HeartbeatRequest struct {
	TableID int64 `json:"tableId"`
}

type HeartbeatResponse struct {
	// Active is false when the session expired and the client must join again.
	Active     bool `json:"active"`
	GuestCount int  `json:"guestCount"`
}

type GuestCountRequest struct {
	TableID int64 `json:"tableId"`
}

type GuestCountResponse struct {
	GuestCount int `json:"guestCount"`
}

type MergeTablesRequest struct {
	TableIDs []int64 `json:"tableIds"`
	Label    string  `json:"label,omitempty"`
}

type MergeTablesResponse struct {
	Group MergeGroup `json:"group"`
}

type SplitGroupRequest struct {
	GroupID int64 `json:"groupId"`
}

type SplitGroupResponse struct {
	Ok bool `json:"ok"`
}

type SplitTableRequest struct {
	TableID int64 `json:"tableId"`
}

type SplitTableResponse struct {
	Ok bool `json:"ok"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []MergeGroup `json:"groups"`
}

type FindGroupRequest struct {
	TableID int64 `json:"tableId"`
}

type FindGroupResponse struct {
	Group *MergeGroup `json:"group,omitempty"`
	Found bool        `json:"found"`
}

// TableServiceHandler is implemented by the table service.
type TableServiceHandler interface {
	JoinTable(context.Context, *connect.Request[JoinTableRequest]) (*connect.Response[JoinTableResponse], error)
	LeaveTable(context.Context, *connect.Request[LeaveTableRequest]) (*connect.Response[LeaveTableResponse], error)
	Heartbeat(context.Context, *connect.Request[HeartbeatRequest]) (*connect.Response[HeartbeatResponse], error)
	GuestCount(context.Context, *connect.Request[GuestCountRequest]) (*connect.Response[GuestCountResponse], error)
	MergeTables(context.Context, *connect.Request[MergeTablesRequest]) (*connect.Response[MergeTablesResponse], error)
	SplitGroup(context.Context, *connect.Request[SplitGroupRequest]) (*connect.Response[SplitGroupResponse], error)
	SplitTable(context.Context, *connect.Request[SplitTableRequest]) (*connect.Response[SplitTableResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	FindGroup(context.Context, *connect.Request[FindGroupRequest]) (*connect.Response[FindGroupResponse], error)
}

// NewTableServiceHandler builds an HTTP handler from the service implementation. It
// returns the path on which to mount the handler and the handler itself.
func NewTableServiceHandler(svc TableServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(TableServiceJoinTableProcedure, connect.NewUnaryHandler(TableServiceJoinTableProcedure, svc.JoinTable, opts...))
	mux.Handle(TableServiceLeaveTableProcedure, connect.NewUnaryHandler(TableServiceLeaveTableProcedure, svc.LeaveTable, opts...))
	mux.Handle(TableServiceHeartbeatProcedure, connect.NewUnaryHandler(TableServiceHeartbeatProcedure, svc.Heartbeat, opts...))
	mux.Handle(TableServiceGuestCountProcedure, connect.NewUnaryHandler(TableServiceGuestCountProcedure, svc.GuestCount, opts...))
	mux.Handle(TableServiceMergeTablesProcedure, connect.NewUnaryHandler(TableServiceMergeTablesProcedure, svc.MergeTables, opts...))
	mux.Handle(TableServiceSplitGroupProcedure, connect.NewUnaryHandler(TableServiceSplitGroupProcedure, svc.SplitGroup, opts...))
	mux.Handle(TableServiceSplitTableProcedure, connect.NewUnaryHandler(TableServiceSplitTableProcedure, svc.SplitTable, opts...))
	mux.Handle(TableServiceListGroupsProcedure, connect.NewUnaryHandler(TableServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(TableServiceFindGroupProcedure, connect.NewUnaryHandler(TableServiceFindGroupProcedure, svc.FindGroup, opts...))
	return "/" + TableServiceName + "/", mux
}

// TableServiceClient is a client for the tableside.v1.TableService service.
type TableServiceClient struct {
	joinTable   *connect.Client[JoinTableRequest, JoinTableResponse]
	leaveTable  *connect.Client[LeaveTableRequest, LeaveTableResponse]
	heartbeat   *connect.Client[HeartbeatRequest, HeartbeatResponse]
	guestCount  *connect.Client[GuestCountRequest, GuestCountResponse]
	mergeTables *connect.Client[MergeTablesRequest, MergeTablesResponse]
	splitGroup  *connect.Client[SplitGroupRequest, SplitGroupResponse]
	splitTable  *connect.Client[SplitTableRequest, SplitTableResponse]
	listGroups  *connect.Client[ListGroupsRequest, ListGroupsResponse]
	findGroup   *connect.Client[FindGroupRequest, FindGroupResponse]
}

// NewTableServiceClient constructs a client for the tableside.v1.TableService service.
func NewTableServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TableServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &TableServiceClient{
		joinTable:   connect.NewClient[JoinTableRequest, JoinTableResponse](httpClient, baseURL+TableServiceJoinTableProcedure, opts...),
		leaveTable:  connect.NewClient[LeaveTableRequest, LeaveTableResponse](httpClient, baseURL+TableServiceLeaveTableProcedure, opts...),
		heartbeat:   connect.NewClient[HeartbeatRequest, HeartbeatResponse](httpClient, baseURL+TableServiceHeartbeatProcedure, opts...),
		guestCount:  connect.NewClient[GuestCountRequest, GuestCountResponse](httpClient, baseURL+TableServiceGuestCountProcedure, opts...),
		mergeTables: connect.NewClient[MergeTablesRequest, MergeTablesResponse](httpClient, baseURL+TableServiceMergeTablesProcedure, opts...),
		splitGroup:  connect.NewClient[SplitGroupRequest, SplitGroupResponse](httpClient, baseURL+TableServiceSplitGroupProcedure, opts...),
		splitTable:  connect.NewClient[SplitTableRequest, SplitTableResponse](httpClient, baseURL+TableServiceSplitTableProcedure, opts...),
		listGroups:  connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+TableServiceListGroupsProcedure, opts...),
		findGroup:   connect.NewClient[FindGroupRequest, FindGroupResponse](httpClient, baseURL+TableServiceFindGroupProcedure, opts...),
	}
}

func (c *TableServiceClient) JoinTable(ctx context.Context, req *connect.Request[JoinTableRequest]) (*connect.Response[JoinTableResponse], error) {
	return c.joinTable.CallUnary(ctx, req)
}

func (c *TableServiceClient) LeaveTable(ctx context.Context, req *connect.Request[LeaveTableRequest]) (*connect.Response[LeaveTableResponse], error) {
	return c.leaveTable.CallUnary(ctx, req)
}

func (c *TableServiceClient) Heartbeat(ctx context.Context, req *connect.Request[HeartbeatRequest]) (*connect.Response[HeartbeatResponse], error) {
	return c.heartbeat.CallUnary(ctx, req)
}

func (c *TableServiceClient) GuestCount(ctx context.Context, req *connect.Request[GuestCountRequest]) (*connect.Response[GuestCountResponse], error) {
	return c.guestCount.CallUnary(ctx, req)
}

func (c *TableServiceClient) MergeTables(ctx context.Context, req *connect.Request[MergeTablesRequest]) (*connect.Response[MergeTablesResponse], error) {
	return c.mergeTables.CallUnary(ctx, req)
}

func (c *TableServiceClient) SplitGroup(ctx context.Context, req *connect.Request[SplitGroupRequest]) (*connect.Response[SplitGroupResponse], error) {
	return c.splitGroup.CallUnary(ctx, req)
}

func (c *TableServiceClient) SplitTable(ctx context.Context, req *connect.Request[SplitTableRequest]) (*connect.Response[SplitTableResponse], error) {
	return c.splitTable.CallUnary(ctx, req)
}

func (c *TableServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *TableServiceClient) FindGroup(ctx context.Context, req *connect.Request[FindGroupRequest]) (*connect.Response[FindGroupResponse], error) {
	return c.findGroup.CallUnary(ctx, req)
}
