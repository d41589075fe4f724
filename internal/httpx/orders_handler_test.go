package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/catalog"
	"github.com/rizkyfp/go-storefront/internal/checkout"
	"github.com/rizkyfp/go-storefront/internal/inventory"
	"github.com/rizkyfp/go-storefront/internal/orders"
	"github.com/rizkyfp/go-storefront/internal/payment"
)

type stubCatalog map[string]catalog.Product

func (s stubCatalog) Get(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

type stubGateway struct{ err error }

func (s *stubGateway) Charge(_ context.Context, req payment.ChargeRequest) (payment.Result, error) {
	if s.err != nil {
		return payment.Result{}, s.err
	}
	return payment.Result{
		Success: true, PaymentID: "pay-1", Method: req.Method,
		Amount: req.Amount, Status: "succeeded",
	}, nil
}

type stubStore struct{ created []orders.Order }

func (s *stubStore) Create(_ context.Context, o *orders.Order) error {
	s.created = append(s.created, *o)
	return nil
}

func (s *stubStore) FindByID(_ context.Context, orderID, callerID string) (*orders.Order, error) {
	for i := range s.created {
		if s.created[i].ID == orderID {
			if s.created[i].UserID != callerID {
				return nil, orders.ErrForbidden
			}
			return &s.created[i], nil
		}
	}
	return nil, orders.ErrNotFound
}

func (s *stubStore) FindByUser(_ context.Context, userID string) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range s.created {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	// Newest first, matching the store contract.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func newTestHandler(gatewayErr error) (*OrdersHandler, *inventory.MemLedger, *stubStore) {
	ledger := inventory.NewMemLedger()
	ledger.SetStock("P1", 5)
	store := &stubStore{}
	orch := &checkout.Orchestrator{
		Catalog: stubCatalog{
			"P1": {ID: "P1", Name: "Widget", Price: decimal.RequireFromString("10.00")},
		},
		Ledger:  ledger,
		Gateway: &stubGateway{err: gatewayErr},
		Store:   store,
		Service: "test",
		Log:     zap.NewNop(),
	}
	return &OrdersHandler{Checkout: orch, Orders: store, Log: zap.NewNop()}, ledger, store
}

func serve(h *OrdersHandler, req *http.Request) *httptest.ResponseRecorder {
	r := NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const orderBody = `{
	"items":[{"productId":"P1","quantity":2}],
	"shippingAddress":{"street":"1 Main St","city":"Springfield","state":"IL","zipCode":"62704","country":"US"},
	"paymentMethod":"stripe",
	"token":"tok_visa"
}`

func TestCreateOrder_Success(t *testing.T) {
	h, ledger, store := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	req.Header.Set(userIDHeader, "u1")
	rec := serve(h, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.Order.UserID)
	assert.True(t, resp.Order.TotalAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, orders.StatusProcessing, resp.Order.Status)

	n, err := ledger.CheckAvailability(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, store.created, 1)
}

func TestCreateOrder_RequiresIdentity(t *testing.T) {
	h, _, _ := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	rec := serve(h, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	h, ledger, store := newTestHandler(nil)
	ledger.SetStock("P1", 1)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	req.Header.Set(userIDHeader, "u1")
	rec := serve(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Insufficient stock for P1. Available: 1")
	assert.Empty(t, store.created)
}

func TestCreateOrder_GatewayDecline(t *testing.T) {
	h, ledger, store := newTestHandler(
		&payment.RejectedError{Provider: payment.MethodStripe, Reason: "card declined"})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	req.Header.Set(userIDHeader, "u1")
	rec := serve(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "card declined")
	assert.Empty(t, store.created)

	// Stock went back after the decline.
	n, err := ledger.CheckAvailability(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	h, _, _ := newTestHandler(nil)

	body := strings.Replace(orderBody, "P1", "P9", 1)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set(userIDHeader, "u1")
	rec := serve(h, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_OwnershipEnforced(t *testing.T) {
	h, _, store := newTestHandler(nil)
	store.created = append(store.created, orders.Order{
		ID: "o1", UserID: "u1", CreatedAt: time.Now().UTC(),
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/u1", nil)
	req.Header.Set(userIDHeader, "u2")
	rec := serve(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/u1", nil)
	req.Header.Set(userIDHeader, "u1")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListOrders_NewestFirst(t *testing.T) {
	h, _, store := newTestHandler(nil)
	now := time.Now().UTC()
	store.created = append(store.created,
		orders.Order{ID: "o-old", UserID: "u1", CreatedAt: now.Add(-2 * time.Hour)},
		orders.Order{ID: "o-new", UserID: "u1", CreatedAt: now},
		orders.Order{ID: "o-mid", UserID: "u1", CreatedAt: now.Add(-time.Hour)},
	)

	req := httptest.NewRequest(http.MethodGet, "/orders/u1", nil)
	req.Header.Set(userIDHeader, "u1")
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 3)
	assert.Equal(t, "o-new", out[0].ID)
	assert.Equal(t, "o-mid", out[1].ID)
	assert.Equal(t, "o-old", out[2].ID)
}

func TestGetOrder(t *testing.T) {
	h, _, store := newTestHandler(nil)
	store.created = append(store.created, orders.Order{ID: "o1", UserID: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/orders/order/o1", nil)
	req.Header.Set(userIDHeader, "u1")
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/order/o1", nil)
	req.Header.Set(userIDHeader, "u2")
	rec = serve(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/order/missing", nil)
	req.Header.Set(userIDHeader, "u1")
	rec = serve(h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
