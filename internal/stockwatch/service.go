package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/avolkov/ordersvc/internal/kafka"
	"github.com/avolkov/ordersvc/internal/orders"
	"github.com/avolkov/ordersvc/internal/redisx"
)

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service watches order.item.added events and raises product.stock.low when
// a reservation leaves a product below the threshold.
type Service struct {
	Redis       *redis.Client // optional; nil disables event dedup
	Producer    Publisher
	Threshold   int
	ServiceName string
}

// HandleItemAdded is installed as the consumer handler.
func (s *Service) HandleItemAdded(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderItemAdded {
		return nil // ignore
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.OrderItemAddedPayload](env.Payload)
	if err != nil {
		return err
	}

	if p.Remaining >= s.Threshold {
		return nil
	}

	log.Warn().
		Int64("product_id", p.ProductID).
		Str("product", p.ProductName).
		Int("remaining", p.Remaining).
		Int("threshold", s.Threshold).
		Msg("product stock below threshold")

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       env.TraceID,
		CorrelationID: strconv.FormatInt(p.ProductID, 10),
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			Remaining:   p.Remaining,
			Threshold:   s.Threshold,
		}),
	}
	s.Producer.Publish([]byte(strconv.FormatInt(p.ProductID, 10)), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
