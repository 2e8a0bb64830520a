package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/avolkov/ordersvc/internal/orders"
)

type fakeStore struct {
	addFn     func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error)
	summaryFn func(ctx context.Context, orderID int64) (*orders.OrderSummary, error)
	listFn    func(ctx context.Context) ([]orders.Product, error)
}

func (f *fakeStore) AddItem(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
	return f.addFn(ctx, orderID, productID, qty)
}

func (f *fakeStore) OrderSummary(ctx context.Context, orderID int64) (*orders.OrderSummary, error) {
	return f.summaryFn(ctx, orderID)
}

func (f *fakeStore) ListProducts(ctx context.Context) ([]orders.Product, error) {
	return f.listFn(ctx)
}

type fakePublisher struct {
	messages [][]byte
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.messages = append(f.messages, value)
}

func newTestRouter(store Store, pub Publisher) *chi.Mux {
	r := chi.NewRouter()
	h := &OrdersHandler{Store: store, Producer: pub, Service: "order-api-test"}
	h.Register(r)
	return r
}

func postItem(t *testing.T, r http.Handler, orderID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAddItem_Success(t *testing.T) {
	store := &fakeStore{
		addFn: func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
			if orderID != 1 || productID != 1 || qty != 2 {
				t.Fatalf("unexpected args: %d %d %d", orderID, productID, qty)
			}
			return &orders.AddedItem{
				Item: orders.OrderItem{ID: 10, OrderID: 1, ProductID: 1, Qty: 2},
				Product: orders.Product{
					ID: 1, Name: "Widget", Quantity: 8,
					Price: decimal.RequireFromString("12.50"), CategoryID: 1,
				},
			}, nil
		},
	}
	pub := &fakePublisher{}
	r := newTestRouter(store, pub)

	rec := postItem(t, r, "1", `{"product_id":1,"quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var resp OrderItemResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", resp.Quantity)
	}
	if resp.Product.Quantity != 8 {
		t.Errorf("product quantity = %d, want 8", resp.Product.Quantity)
	}
	if want := decimal.RequireFromString("25"); !resp.TotalAmount.Equal(want) {
		t.Errorf("total_amount = %s, want %s", resp.TotalAmount, want)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.messages))
	}
	var env orders.Envelope
	if err := json.Unmarshal(pub.messages[0], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.EventType != orders.EventOrderItemAdded {
		t.Errorf("event type = %s, want %s", env.EventType, orders.EventOrderItemAdded)
	}
	var p orders.OrderItemAddedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.Remaining != 8 || p.LineQty != 2 || p.Added != 2 {
		t.Errorf("payload = %+v", p)
	}
}

func TestAddItem_OrderNotFound(t *testing.T) {
	store := &fakeStore{
		addFn: func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
			return nil, orders.ErrOrderNotFound
		},
	}
	pub := &fakePublisher{}
	r := newTestRouter(store, pub)

	rec := postItem(t, r, "999", `{"product_id":1,"quantity":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "order 999 not found") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if len(pub.messages) != 0 {
		t.Errorf("published %d events, want 0", len(pub.messages))
	}
}

func TestAddItem_ProductNotFound(t *testing.T) {
	store := &fakeStore{
		addFn: func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
			return nil, orders.ErrProductNotFound
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	rec := postItem(t, r, "1", `{"product_id":999,"quantity":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "product 999 not found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAddItem_InsufficientStock(t *testing.T) {
	store := &fakeStore{
		addFn: func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
			return nil, &orders.InsufficientStockError{ProductID: 1, Available: 3, Requested: 100}
		},
	}
	pub := &fakePublisher{}
	r := newTestRouter(store, pub)

	rec := postItem(t, r, "1", `{"product_id":1,"quantity":100}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "available 3") {
		t.Errorf("body should report the available amount, got %s", rec.Body.String())
	}
	if len(pub.messages) != 0 {
		t.Errorf("published %d events, want 0", len(pub.messages))
	}
}

func TestAddItem_Validation(t *testing.T) {
	store := &fakeStore{
		addFn: func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
			t.Fatal("store must not be reached on validation failure")
			return nil, nil
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	tests := []struct {
		name    string
		orderID string
		body    string
	}{
		{"malformed json", "1", `{"product_id":`},
		{"zero quantity", "1", `{"product_id":1,"quantity":0}`},
		{"negative quantity", "1", `{"product_id":1,"quantity":-2}`},
		{"zero product id", "1", `{"product_id":0,"quantity":1}`},
		{"non-numeric order id", "abc", `{"product_id":1,"quantity":1}`},
		{"negative order id", "-1", `{"product_id":1,"quantity":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postItem(t, r, tt.orderID, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestAddItem_PersistenceError(t *testing.T) {
	store := &fakeStore{
		addFn: func(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	rec := postItem(t, r, "1", `{"product_id":1,"quantity":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body should include the cause, got %s", rec.Body.String())
	}
}

func TestGetOrder_Summary(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		summaryFn: func(ctx context.Context, orderID int64) (*orders.OrderSummary, error) {
			return &orders.OrderSummary{
				ID: 1, ClientID: 7, CreatedAt: created,
				Items: []orders.SummaryItem{
					{ProductID: 1, ProductName: "Widget", Qty: 3, UnitPrice: decimal.RequireFromString("12.50")},
					{ProductID: 2, ProductName: "Gadget", Qty: 1, UnitPrice: decimal.RequireFromString("5.00")},
				},
			}, nil
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp OrderSummaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	if want := decimal.RequireFromString("42.50"); !resp.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", resp.TotalAmount, want)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	store := &fakeStore{
		summaryFn: func(ctx context.Context, orderID int64) (*orders.OrderSummary, error) {
			return nil, orders.ErrOrderNotFound
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/orders/999", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListProducts(t *testing.T) {
	store := &fakeStore{
		listFn: func(ctx context.Context) ([]orders.Product, error) {
			return []orders.Product{
				{ID: 1, Name: "Widget", Quantity: 8, Price: decimal.RequireFromString("12.50"), CategoryID: 1},
			}, nil
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp []ProductResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Name != "Widget" {
		t.Errorf("resp = %+v", resp)
	}
}
