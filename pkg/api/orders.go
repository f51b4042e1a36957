package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

const OrderServiceName = "tableside.v1.OrderService"

const (
	OrderServiceCreateOrderProcedure      = "/tableside.v1.OrderService/CreateOrder"
	OrderServiceGetOrderProcedure         = "/tableside.v1.OrderService/GetOrder"
	OrderServiceListTableOrdersProcedure  = "/tableside.v1.OrderService/ListTableOrders"
	OrderServiceUpdateItemStatusProcedure = "/tableside.v1.OrderService/UpdateItemStatus"
	OrderServiceRequestBillProcedure      = "/tableside.v1.OrderService/RequestBill"
)

type OrderItem struct {
	ID        int64             `json:"id"`
	FoodID    int64             `json:"foodId"`
	FoodName  string            `json:"foodName"`
	Quantity  int               `json:"quantity"`
	UnitPrice decimal.Decimal   `json:"unitPrice"`
	LineTotal decimal.Decimal   `json:"lineTotal"`
	Status    models.ItemStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	Options   []string          `json:"options,omitempty"`
	UpdatedAt int64             `json:"updatedAt"`
}

type Order struct {
	ID            int64                `json:"id"`
	Code          string               `json:"code"`
	TableID       int64                `json:"tableId"`
	Status        models.ItemStatus    `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	PaymentMethod string               `json:"paymentMethod,omitempty"`
	Total         decimal.Decimal      `json:"total"`
	Items         []OrderItem          `json:"items"`
	SettlementID  string               `json:"settlementId,omitempty"`
	CreatedAt     int64                `json:"createdAt"`
	UpdatedAt     int64                `json:"updatedAt"`
}

// CartLine is one line of a cart being checked out.
type CartLine struct {
	FoodID    int64           `json:"foodId"`
	FoodName  string          `json:"foodName"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Note      string          `json:"note,omitempty"`
	Options   []string        `json:"options,omitempty"`
}

type CreateOrderRequest struct {
	TableID       int64      `json:"tableId"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Items         []CartLine `json:"items"`
}

type CreateOrderResponse struct {
	Order Order `json:"order"`
}

type GetOrderRequest struct {
	OrderID int64 `json:"orderId"`
}

type GetOrderResponse struct {
	Order Order `json:"order"`
}

type ListTableOrdersRequest struct {
	TableID int64 `json:"tableId"`
}

type ParticipantBalance struct {
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName,omitempty"`
	Paid          decimal.Decimal `json:"paid"`
	Orders        int             `json:"orders"`
}

// Balance summarizes every order billed together.
type Balance struct {
	Total        decimal.Decimal      `json:"total"`
	Paid         decimal.Decimal      `json:"paid"`
	Outstanding  decimal.Decimal      `json:"outstanding"`
	Orders       int                  `json:"orders"`
	SettledCount int                  `json:"settledCount"`
	Participants []ParticipantBalance `json:"participants"`
}

type ListTableOrdersResponse struct {
	// Tables is the billing group the table belongs to, or just the table.
	Tables  []int64 `json:"tables"`
	GroupID int64   `json:"groupId,omitempty"`
	Orders  []Order `json:"orders"`
	Balance Balance `json:"balance"`
}

type UpdateItemStatusRequest struct {
	OrderID int64  `json:"orderId"`
	ItemID  int64  `json:"itemId"`
	Status  string `json:"status"`
}

type UpdateItemStatusResponse struct {
	Order Order `json:"order"`
}

type RequestBillRequest struct {
	OrderID int64 `json:"orderId"`
}

type RequestBillResponse struct {
	Order Order `json:"order"`
}

// OrderServiceHandler is implemented by the order service.
type OrderServiceHandler interface {
	CreateOrder(context.Context, *connect.Request[CreateOrderRequest]) (*connect.Response[CreateOrderResponse], error)
	GetOrder(context.Context, *connect.Request[GetOrderRequest]) (*connect.Response[GetOrderResponse], error)
	ListTableOrders(context.Context, *connect.Request[ListTableOrdersRequest]) (*connect.Response[ListTableOrdersResponse], error)
	UpdateItemStatus(context.Context, *connect.Request[UpdateItemStatusRequest]) (*connect.Response[UpdateItemStatusResponse], error)
	RequestBill(context.Context, *connect.Request[RequestBillRequest]) (*connect.Response[RequestBillResponse], error)
}

// NewOrderServiceHandler builds an HTTP handler from the service implementation. It
// returns the path on which to mount the handler and the handler itself.
func NewOrderServiceHandler(svc OrderServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(OrderServiceCreateOrderProcedure, connect.NewUnaryHandler(OrderServiceCreateOrderProcedure, svc.CreateOrder, opts...))
	mux.Handle(OrderServiceGetOrderProcedure, connect.NewUnaryHandler(OrderServiceGetOrderProcedure, svc.GetOrder, opts...))
	mux.Handle(OrderServiceListTableOrdersProcedure, connect.NewUnaryHandler(OrderServiceListTableOrdersProcedure, svc.ListTableOrders, opts...))
	mux.Handle(OrderServiceUpdateItemStatusProcedure, connect.NewUnaryHandler(OrderServiceUpdateItemStatusProcedure, svc.UpdateItemStatus, opts...))
	mux.Handle(OrderServiceRequestBillProcedure, connect.NewUnaryHandler(OrderServiceRequestBillProcedure, svc.RequestBill, opts...))
	return "/" + OrderServiceName + "/", mux
}

// OrderServiceClient is a client for the tableside.v1.OrderService service.
type OrderServiceClient struct {
	createOrder      *connect.Client[CreateOrderRequest, CreateOrderResponse]
	getOrder         *connect.Client[GetOrderRequest, GetOrderResponse]
	listTableOrders  *connect.Client[ListTableOrdersRequest, ListTableOrdersResponse]
	updateItemStatus *connect.Client[UpdateItemStatusRequest, UpdateItemStatusResponse]
	requestBill      *connect.Client[RequestBillRequest, RequestBillResponse]
}

// NewOrderServiceClient constructs a client for the tableside.v1.OrderService service.
func NewOrderServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *OrderServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &OrderServiceClient{
		createOrder:      connect.NewClient[CreateOrderRequest, CreateOrderResponse](httpClient, baseURL+OrderServiceCreateOrderProcedure, opts...),
		getOrder:         connect.NewClient[GetOrderRequest, GetOrderResponse](httpClient, baseURL+OrderServiceGetOrderProcedure, opts...),
		listTableOrders:  connect.NewClient[ListTableOrdersRequest, ListTableOrdersResponse](httpClient, baseURL+OrderServiceListTableOrdersProcedure, opts...),
		updateItemStatus: connect.NewClient[UpdateItemStatusRequest, UpdateItemStatusResponse](httpClient, baseURL+OrderServiceUpdateItemStatusProcedure, opts...),
		requestBill:      connect.NewClient[RequestBillRequest, RequestBillResponse](httpClient, baseURL+OrderServiceRequestBillProcedure, opts...),
	}
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, req *connect.Request[CreateOrderRequest]) (*connect.Response[CreateOrderResponse], error) {
	return c.createOrder.CallUnary(ctx, req)
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, req *connect.Request[GetOrderRequest]) (*connect.Response[GetOrderResponse], error) {
	return c.getOrder.CallUnary(ctx, req)
}

func (c *OrderServiceClient) ListTableOrders(ctx context.Context, req *connect.Request[ListTableOrdersRequest]) (*connect.Response[ListTableOrdersResponse], error) {
	return c.listTableOrders.CallUnary(ctx, req)
}

func (c *OrderServiceClient) UpdateItemStatus(ctx context.Context, req *connect.Request[UpdateItemStatusRequest]) (*connect.Response[UpdateItemStatusResponse], error) {
	return c.updateItemStatus.CallUnary(ctx, req)
}

func (c *OrderServiceClient) RequestBill(ctx context.Context, req *connect.Request[RequestBillRequest]) (*connect.Response[RequestBillResponse], error) {
	return c.requestBill.CallUnary(ctx, req)
}
