package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

const SettlementServiceName = "tableside.v1.SettlementService"

const (
	SettlementServiceContributeProcedure      = "/tableside.v1.SettlementService/Contribute"
	SettlementServiceGetSettlementProcedure   = "/tableside.v1.SettlementService/GetSettlement"
	SettlementServiceResetSettlementProcedure = "/tableside.v1.SettlementService/ResetSettlement"
	SettlementServicePreviewSplitProcedure    = "/tableside.v1.SettlementService/PreviewSplit"
)

type Share struct {
	ParticipantID string           `json:"participantId"`
	DisplayName   string           `json:"displayName,omitempty"`
	PaymentMethod string           `json:"paymentMethod"`
	Amount        decimal.Decimal  `json:"amount"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty"`
	ItemIDs       []int64          `json:"itemIds,omitempty"`
	IsCurrentUser bool             `json:"isCurrentUser"`
	CreatedAt     int64            `json:"createdAt"`
	UpdatedAt     int64            `json:"updatedAt"`
}

// Settlement is the state of an order's settlement session as seen by the caller.
type Settlement struct {
	SessionID         string           `json:"sessionId"`
	OrderID           int64            `json:"orderId"`
	Mode              models.SplitMode `json:"mode"`
	Finalized         bool             `json:"finalized"`
	ParticipantCount  int              `json:"participantCount,omitempty"`
	TotalAmount       decimal.Decimal  `json:"totalAmount"`
	PaidAmount        decimal.Decimal  `json:"paidAmount"`
	OutstandingAmount decimal.Decimal  `json:"outstandingAmount"`
	TotalPercentage   *decimal.Decimal `json:"totalPercentage,omitempty"`
	Shares            []Share          `json:"shares"`
	Version           int64            `json:"version"`
}

type ContributeRequest struct {
	OrderID          int64            `json:"orderId"`
	Mode             string           `json:"mode"`
	PaymentMethod    string           `json:"paymentMethod"`
	ParticipantCount int              `json:"participantCount,omitempty"`
	Percentage       *decimal.Decimal `json:"percentage,omitempty"`
	ItemIDs          []int64          `json:"itemIds,omitempty"`
	DisplayName      string           `json:"displayName,omitempty"`
}

type ContributeResponse struct {
	Settlement Settlement `json:"settlement"`
	// Order reflects the payment flip once the settlement finalizes.
	Order Order `json:"order"`
}

type GetSettlementRequest struct {
	OrderID int64 `json:"orderId"`
}

type GetSettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}

type ResetSettlementRequest struct {
	OrderID int64 `json:"orderId"`
}

type ResetSettlementResponse struct {
	Order Order `json:"order"`
}

type PreviewItem struct {
	ID          int64           `json:"id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	AssignedTo  []string        `json:"assignedTo,omitempty"`
}

// PreviewSplitRequest describes a cart split. When OrderID is set, Total and Items
// are taken from the order instead.
type PreviewSplitRequest struct {
	OrderID      int64                      `json:"orderId,omitempty"`
	Mode         string                     `json:"mode"`
	Total        decimal.Decimal            `json:"total"`
	Participants []string                   `json:"participants"`
	Percentages  map[string]decimal.Decimal `json:"percentages,omitempty"`
	Items        []PreviewItem              `json:"items,omitempty"`
}

type PreviewShareItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type PreviewShare struct {
	Participant string             `json:"participant"`
	Amount      decimal.Decimal    `json:"amount"`
	Percentage  *decimal.Decimal   `json:"percentage,omitempty"`
	Items       []PreviewShareItem `json:"items,omitempty"`
}

type PreviewSplitResponse struct {
	Splits []PreviewShare `json:"splits"`
}

// SettlementServiceHandler is implemented by the settlement service.
type SettlementServiceHandler interface {
	Contribute(context.Context, *connect.Request[ContributeRequest]) (*connect.Response[ContributeResponse], error)
	GetSettlement(context.Context, *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error)
	ResetSettlement(context.Context, *connect.Request[ResetSettlementRequest]) (*connect.Response[ResetSettlementResponse], error)
	PreviewSplit(context.Context, *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error)
}

// NewSettlementServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(SettlementServiceContributeProcedure, connect.NewUnaryHandler(SettlementServiceContributeProcedure, svc.Contribute, opts...))
	mux.Handle(SettlementServiceGetSettlementProcedure, connect.NewUnaryHandler(SettlementServiceGetSettlementProcedure, svc.GetSettlement, opts...))
	mux.Handle(SettlementServiceResetSettlementProcedure, connect.NewUnaryHandler(SettlementServiceResetSettlementProcedure, svc.ResetSettlement, opts...))
	mux.Handle(SettlementServicePreviewSplitProcedure, connect.NewUnaryHandler(SettlementServicePreviewSplitProcedure, svc.PreviewSplit, opts...))
	return "/" + SettlementServiceName + "/", mux
}

// SettlementServiceClient is a client for the tableside.v1.SettlementService service.
type SettlementServiceClient struct {
	contribute      *connect.Client[ContributeRequest, ContributeResponse]
	getSettlement   *connect.Client[GetSettlementRequest, GetSettlementResponse]
	resetSettlement *connect.Client[ResetSettlementRequest, ResetSettlementResponse]
	previewSplit    *connect.Client[PreviewSplitRequest, PreviewSplitResponse]
}

// NewSettlementServiceClient constructs a client for the tableside.v1.SettlementService
// service.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SettlementServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &SettlementServiceClient{
		contribute:      connect.NewClient[ContributeRequest, ContributeResponse](httpClient, baseURL+SettlementServiceContributeProcedure, opts...),
		getSettlement:   connect.NewClient[GetSettlementRequest, GetSettlementResponse](httpClient, baseURL+SettlementServiceGetSettlementProcedure, opts...),
		resetSettlement: connect.NewClient[ResetSettlementRequest, ResetSettlementResponse](httpClient, baseURL+SettlementServiceResetSettlementProcedure, opts...),
		previewSplit:    connect.NewClient[PreviewSplitRequest, PreviewSplitResponse](httpClient, baseURL+SettlementServicePreviewSplitProcedure, opts...),
	}
}

func (c *SettlementServiceClient) Contribute(ctx context.Context, req *connect.Request[ContributeRequest]) (*connect.Response[ContributeResponse], error) {
	return c.contribute.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) GetSettlement(ctx context.Context, req *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) ResetSettlement(ctx context.Context, req *connect.Request[ResetSettlementRequest]) (*connect.Response[ResetSettlementResponse], error) {
	return c.resetSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}
