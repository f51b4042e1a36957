package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/internal/settlement"
	"github.com/mmynk/tableside/internal/storage/memory"
	"github.com/mmynk/tableside/internal/tables"
	"github.com/mmynk/tableside/pkg/api"
)

type testEnv struct {
	store    *memory.Store
	tracker  *tables.Tracker
	recorder *notify.Recorder
	jwt      *auth.JWTManager

	orders      *api.OrderServiceClient
	settlements *api.SettlementServiceClient
	tables      *api.TableServiceClient
	staff       *api.StaffServiceClient
}

// setupTestServer serves every service over httptest with an in-memory store and a
// recording publisher.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	tracker := tables.NewTracker()
	recorder := &notify.Recorder{}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	m := metrics.New(tracker)

	pinHash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash PIN: %v", err)
	}
	authenticator := auth.NewPINAuthenticator([]auth.StaffAccount{
		{ID: "carol", Role: auth.RoleCashier, PINHash: string(pinHash)},
	})

	orders := NewOrders(store, tracker, recorder)
	interceptors := connect.WithInterceptors(
		m.Interceptor(),
		middleware.Participant(),
		middleware.OptionalStaffAuth(jwtManager),
	)

	mux := http.NewServeMux()
	orderPath, orderHandler := api.NewOrderServiceHandler(NewOrderService(orders), interceptors)
	mux.Handle(orderPath, orderHandler)
	settlementPath, settlementHandler := api.NewSettlementServiceHandler(
		NewSettlementService(orders, settlement.NewEngine(store), m), interceptors)
	mux.Handle(settlementPath, settlementHandler)
	tablePath, tableHandler := api.NewTableServiceHandler(NewTableService(tracker, recorder, m), interceptors)
	mux.Handle(tablePath, tableHandler)
	staffPath, staffHandler := api.NewStaffServiceHandler(
		NewStaffService(authenticator, jwtManager, slog.Default()), interceptors)
	mux.Handle(staffPath, staffHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		store:       store,
		tracker:     tracker,
		recorder:    recorder,
		jwt:         jwtManager,
		orders:      api.NewOrderServiceClient(http.DefaultClient, server.URL),
		settlements: api.NewSettlementServiceClient(http.DefaultClient, server.URL),
		tables:      api.NewTableServiceClient(http.DefaultClient, server.URL),
		staff:       api.NewStaffServiceClient(http.DefaultClient, server.URL),
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// asGuest sends msg from the given participant's device.
func asGuest[T any](msg *T, participant string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(middleware.ParticipantHeader, participant)
	return req
}

// asStaff sends msg with a token for the given role.
func asStaff[T any](t *testing.T, env *testEnv, role auth.Role, msg *T) *connect.Request[T] {
	t.Helper()
	token, err := env.jwt.Generate(&auth.StaffAccount{ID: "staff-" + string(role), Role: role})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func line(name, price string, quantity int) api.CartLine {
	return api.CartLine{FoodName: name, UnitPrice: d(price), Quantity: quantity}
}

func createOrder(t *testing.T, env *testEnv, tableID int64, lines ...api.CartLine) api.Order {
	t.Helper()
	resp, err := env.orders.CreateOrder(context.Background(), asGuest(&api.CreateOrderRequest{
		TableID:       tableID,
		PaymentMethod: "cash",
		Items:         lines,
	}, "guest-checkout"))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return resp.Msg.Order
}

// assertError checks the Connect code and, if set, the domain code carried in the
// error metadata.
func assertError(t *testing.T, err error, code connect.Code, domain apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %v error, got nil", code)
	}
	var ce *connect.Error
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *connect.Error, got %T: %v", err, err)
	}
	if ce.Code() != code {
		t.Errorf("Expected code %v, got %v (%v)", code, ce.Code(), err)
	}
	if domain != "" {
		if got := ce.Meta().Get(apperr.CodeHeader); got != string(domain) {
			t.Errorf("Expected domain code %q, got %q", domain, got)
		}
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s: expected %s, got %s", name, want, got.String())
	}
}

// eventTypes decodes the event types published to subject, in order.
func eventTypes(t *testing.T, r *notify.Recorder, subject string) []string {
	t.Helper()
	var out []string
	for _, m := range r.Subject(subject) {
		var event struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(m.Payload, &event); err != nil {
			t.Fatalf("failed to decode event on %s: %v", subject, err)
		}
		out = append(out, event.EventType)
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
