package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/avolkov/ordersvc/internal/kafka"
	"github.com/avolkov/ordersvc/internal/orders"
	"github.com/avolkov/ordersvc/internal/redisx"
)

// Store is what the handler needs from the persistence layer; *orders.Repo
// satisfies it, tests substitute a fake.
type Store interface {
	AddItem(ctx context.Context, orderID, productID int64, qty int) (*orders.AddedItem, error)
	OrderSummary(ctx context.Context, orderID int64) (*orders.OrderSummary, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Store    Store
	Producer Publisher
	Redis    *redis.Client // optional; nil disables the summary cache
	Service  string
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type ProductResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderItemResponse struct {
	Product     ProductResponse `json:"product"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type SummaryItemResponse struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderSummaryResponse struct {
	OrderID     int64                 `json:"order_id"`
	ClientID    int64                 `json:"client_id"`
	CreatedAt   time.Time             `json:"created_at"`
	Items       []SummaryItemResponse `json:"items"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders/{order_id}/items", h.addItem)
	r.Get("/orders/{order_id}", h.getOrder)
	r.Get("/products", h.listProducts)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *OrdersHandler) addItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "order_id must be a positive integer")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if req.ProductID <= 0 || req.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "product_id and quantity must be positive")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	added, err := h.Store.AddItem(ctx, orderID, req.ProductID, req.Quantity)
	if err != nil {
		var stockErr *orders.InsufficientStockError
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("order %d not found", orderID))
		case errors.Is(err, orders.ErrProductNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("product %d not found", req.ProductID))
		case errors.As(err, &stockErr):
			writeError(w, http.StatusBadRequest, stockErr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "database error: "+err.Error())
		}
		return
	}

	// the cached summary is stale now
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderSummary, orderID)).Err()
	}

	h.publishItemAdded(r, added, req.Quantity)

	writeJSON(w, http.StatusOK, OrderItemResponse{
		Product: ProductResponse{
			ID:       added.Product.ID,
			Name:     added.Product.Name,
			Quantity: added.Product.Quantity,
			Price:    added.Product.Price,
		},
		Quantity:    added.Item.Qty,
		TotalAmount: added.Total(),
	})
}

func (h *OrdersHandler) publishItemAdded(r *http.Request, added *orders.AddedItem, qty int) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderItemAdded,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(added.Item.OrderID, 10),
		Payload: kafkax.MustMarshal(orders.OrderItemAddedPayload{
			OrderID:     added.Item.OrderID,
			ProductID:   added.Product.ID,
			ProductName: added.Product.Name,
			Added:       qty,
			LineQty:     added.Item.Qty,
			Remaining:   added.Product.Quantity,
			UnitPrice:   added.Product.Price,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(added.Item.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderItemAdded)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "order_id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderSummary, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	sum, err := h.Store.OrderSummary(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("order %d not found", orderID))
		} else {
			writeError(w, http.StatusInternalServerError, "database error: "+err.Error())
		}
		return
	}

	resp := OrderSummaryResponse{
		OrderID:     sum.ID,
		ClientID:    sum.ClientID,
		CreatedAt:   sum.CreatedAt,
		Items:       make([]SummaryItemResponse, 0, len(sum.Items)),
		TotalAmount: sum.Total(),
	}
	for _, it := range sum.Items {
		resp.Items = append(resp.Items, SummaryItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Qty,
			UnitPrice:   it.UnitPrice,
		})
	}

	b, _ := json.Marshal(resp)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLSummaryCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]ProductResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ProductResponse{ID: p.ID, Name: p.Name, Quantity: p.Quantity, Price: p.Price})
	}
	writeJSON(w, http.StatusOK, out)
}
