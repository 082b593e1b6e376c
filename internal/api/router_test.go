package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/api/handler"
	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/core/service"
	"github.com/orderahead/sync-engine/internal/infrastructure/http/handlers"
	"github.com/orderahead/sync-engine/internal/realtime"
)

const testSecret = "router-test-secret"

type nopOrders struct{}

func (nopOrders) CreateOrder(context.Context, ports.CreateOrderInput) (*domain.Order, error) {
	return nil, domain.ErrPersistence
}

func (nopOrders) UpdateOrderStatus(context.Context, ports.UpdateOrderStatusInput) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (nopOrders) GetOrder(context.Context, ports.GetOrderInput) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (nopOrders) ListOrders(context.Context, ports.ListOrdersInput) (*ports.ListOrdersResult, error) {
	return &ports.ListOrdersResult{Items: []*domain.Order{}, Page: 1, Limit: 20}, nil
}

type nopCatalog struct{ ports.CatalogService }

func (nopCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return []domain.Category{}, nil
}

func signed(t *testing.T, subject int64, role domain.Role) string {
	t.Helper()
	claims := service.IdentityClaims{
		Name: "User " + strconv.FormatInt(subject, 10),
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newTestServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	log := zerolog.Nop()
	auth := service.NewConnectionAuthenticator(testSecret, nil, time.Second, log)
	hub := realtime.NewHub(log)
	e := NewRouter(Dependencies{
		Logger:        log,
		Authenticator: auth,
		Orders:        nopOrders{},
		Catalog:       nopCatalog{},
		Realtime:      handler.NewRealtimeHandler(auth, hub, nil, realtime.ClientConfig{}, time.Second, log),
		HealthChecks:  map[string]handlers.Check{},
		Registerer:    prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return srv, hub
}

func do(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestRouter_AccessControl(t *testing.T) {
	srv, _ := newTestServer(t)
	customer := signed(t, 3, domain.RoleCustomer)
	staff := signed(t, 1, domain.RoleStaff)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/v1/orders", "", "", http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
		{"garbage token", http.MethodGet, "/v1/orders", "nope", "", http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
		{"customer list", http.MethodGet, "/v1/orders", customer, "", http.StatusOK, ""},
		{"customer transition", http.MethodPatch, "/v1/orders/1/status", customer, `{"status":"confirmed"}`, http.StatusForbidden, "FORBIDDEN"},
		{"staff transition unknown", http.MethodPatch, "/v1/orders/1/status", staff, `{"status":"confirmed"}`, http.StatusNotFound, "NOT_FOUND"},
		{"customer catalog write", http.MethodPost, "/v1/catalog/categories", customer, `{"name":"x"}`, http.StatusForbidden, "FORBIDDEN"},
		{"customer stats", http.MethodGet, "/v1/realtime/stats", customer, "", http.StatusForbidden, "FORBIDDEN"},
		{"staff stats", http.MethodGet, "/v1/realtime/stats", staff, "", http.StatusOK, ""},
		{"persistence hidden", http.MethodPost, "/v1/orders", customer, `{"items":[{"item_id":7,"quantity":2,"price":5}],"payment_method":"cash"}`, http.StatusInternalServerError, "PERSISTENCE_FAILED"},
		{"unknown route", http.MethodGet, "/v2/nothing", "", "", http.StatusNotFound, "NOT_FOUND"},
		{"liveness", http.MethodGet, "/health", "", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, tc.method, srv.URL+tc.path, tc.token, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d (%v)", tc.status, resp.StatusCode, body)
			}
			if tc.code != "" && body["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["code"])
			}
		})
	}
}

func TestRouter_WebsocketRejectsBeforeUpgrade(t *testing.T) {
	srv, hub := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=forged", nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %v", resp)
	}
	if hub.Stats().Connections != 0 {
		t.Fatalf("rejected credential registered a connection")
	}
}

func TestRouter_WebsocketAudience(t *testing.T) {
	srv, hub := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signed(t, 1, domain.RoleStaff))
	staffConn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("staff dial: %v", err)
	}
	defer staffConn.Close()

	customerConn, _, err := websocket.DefaultDialer.Dial(url+"?token="+signed(t, 3, domain.RoleCustomer), nil)
	if err != nil {
		t.Fatalf("customer dial: %v", err)
	}
	defer customerConn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Stats().Connections != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("connections not registered: %+v", hub.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}

	publisher := service.NewPublisher(hub, zerolog.Nop())
	publisher.OrderCreated(context.Background(), &domain.Order{ID: 1, SubjectID: 8, Number: "ORD-1", TotalAmount: 1000})
	publisher.OrderUpdated(context.Background(), &domain.Order{ID: 2, SubjectID: 3, Status: domain.OrderConfirmed})

	read := func(conn *websocket.Conn) domain.Envelope {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		return env
	}

	if env := read(staffConn); env.Event != domain.EventOrderNew || !strings.Contains(string(env.Data), `"total_amount":10.00`) {
		t.Fatalf("staff first frame %s %s", env.Event, env.Data)
	}
	if env := read(staffConn); env.Event != domain.EventOrderUpdate {
		t.Fatalf("staff second frame %s", env.Event)
	}
	// the customer's first frame is the update to their own order, never order:new
	if env := read(customerConn); env.Event != domain.EventOrderUpdate {
		t.Fatalf("customer frame %s", env.Event)
	}
}
