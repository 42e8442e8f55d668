package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecomshop/event-pipeline/internal/domain"
	"github.com/ecomshop/event-pipeline/internal/infrastructure/rabbitmq"
	"github.com/ecomshop/event-pipeline/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrderStore struct {
	products map[int64]*domain.Product
}

func (s *stubOrderStore) CreateOrder(_ context.Context, _ string, _ int64, _ float64, _ domain.OrderStatus) (int64, error) {
	return 1, nil
}

func (s *stubOrderStore) CreateOrderItem(context.Context, int64, int64, int, float64) error {
	return nil
}

func (s *stubOrderStore) FindProduct(_ context.Context, productID int64) (*domain.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

type capturingPublisher struct {
	calls int
	err   error
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, _ any, _ ...rabbitmq.Option) error {
	p.calls++
	return p.err
}

func newTestServer(store domain.OrderStore, pub service.EventPublisher) http.Handler {
	svc := service.NewOrderService(store, pub)
	return NewRouter(NewHandler(svc))
}

func postOrders(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder_Success(t *testing.T) {
	store := &stubOrderStore{products: map[int64]*domain.Product{
		3: {ID: 3, Name: "Widget", Price: 9.99, Stock: 10},
	}}
	pub := &capturingPublisher{}
	h := newTestServer(store, pub)

	rec := postOrders(t, h, `{"user_id":7,"total":19.98,"items":[{"product_id":3,"quantity":2}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			OrderID string `json:"order_id"`
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.OrderID)
	assert.Equal(t, "Order placed successfully!", resp.Data.Message)
	assert.Equal(t, 1, pub.calls)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	h := newTestServer(&stubOrderStore{}, &capturingPublisher{})

	rec := postOrders(t, h, `{"user_id":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request.invalid")
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	h := newTestServer(&stubOrderStore{}, &capturingPublisher{})

	tests := []struct {
		name    string
		body    string
		metaKey string
	}{
		{"missing user", `{"total":5,"items":[{"product_id":1,"quantity":1}]}`, "user_id"},
		{"negative total", `{"user_id":1,"total":-1,"items":[{"product_id":1,"quantity":1}]}`, "total"},
		{"no items", `{"user_id":1,"total":5,"items":[]}`, "items"},
		{"zero quantity", `{"user_id":1,"total":5,"items":[{"product_id":1,"quantity":0}]}`, "items.quantity"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postOrders(t, h, tc.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp struct {
				Error struct {
					Code string            `json:"code"`
					Meta map[string]string `json:"meta"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "request.invalid", resp.Error.Code)
			assert.Contains(t, resp.Error.Meta, tc.metaKey)
		})
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	h := newTestServer(&stubOrderStore{}, &capturingPublisher{})

	rec := postOrders(t, h, `{"user_id":1,"total":5,"items":[{"product_id":99,"quantity":1}]}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "product.unknown")
}

func TestCreateOrder_PublishFailureIs500(t *testing.T) {
	store := &stubOrderStore{products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Widget", Price: 1, Stock: 1},
	}}
	h := newTestServer(store, &capturingPublisher{err: assert.AnError})

	rec := postOrders(t, h, `{"user_id":1,"total":1,"items":[{"product_id":1,"quantity":1}]}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to place order.")
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&stubOrderStore{}, &capturingPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
