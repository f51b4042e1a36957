package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const StaffServiceName = "tableside.v1.StaffService"

const StaffServiceLoginProcedure = "/tableside.v1.StaffService/Login"

type LoginRequest struct {
	StaffID string `json:"staffId"`
	PIN     string `json:"pin"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expiresAt"`
}

// StaffServiceHandler is implemented by the staff service.
type StaffServiceHandler interface {
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
}

// NewStaffServiceHandler builds an HTTP handler from the service implementation. It
// returns the path on which to mount the handler and the handler itself.
func NewStaffServiceHandler(svc StaffServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(StaffServiceLoginProcedure, connect.NewUnaryHandler(StaffServiceLoginProcedure, svc.Login, opts...))
	return "/" + StaffServiceName + "/", mux
}

// StaffServiceClient is a client for the tableside.v1.StaffService service.
type StaffServiceClient struct {
	login *connect.Client[LoginRequest, LoginResponse]
}

// NewStaffServiceClient constructs a client for the tableside.v1.StaffService service.
func NewStaffServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *StaffServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &StaffServiceClient{
		login: connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+StaffServiceLoginProcedure, clientOptions(opts)...),
	}
}

func (c *StaffServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}
