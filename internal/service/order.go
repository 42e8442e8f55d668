package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ecomshop/event-pipeline/internal/contracts/event"
	"github.com/ecomshop/event-pipeline/internal/domain"
	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	"github.com/google/uuid"
)

type PlaceOrderItem struct {
	ProductID int64
	Quantity  int
}

type PlaceOrderRequest struct {
	UserID int64
	Total  float64
	Items  []PlaceOrderItem
}

// OrderService persists a new order and publishes order_created.
type OrderService struct {
	store     domain.OrderStore
	publisher EventPublisher
}

func NewOrderService(store domain.OrderStore, publisher EventPublisher) *OrderService {
	return &OrderService{store: store, publisher: publisher}
}

// PlaceOrder validates and persists the order plus its items (prices read
// from the product rows), then publishes the order_created event. The event
// is published after the order is committed, so a crash in between leaves a
// pending order with no downstream processing; an operator replays it from
// the orders table.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	if req.UserID <= 0 {
		return "", appErrors.NewInvalidInput("user_id is required")
	}
	if req.Total < 0 {
		return "", appErrors.NewInvalidInput("total must be >= 0")
	}
	if len(req.Items) == 0 {
		return "", appErrors.NewInvalidInput("items must not be empty")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return "", appErrors.NewInvalidInput("item quantity must be >= 1")
		}
	}

	orderID := newOrderID()
	log := logger.WithComponent("order_service").With().Str("order_id", orderID).Logger()

	ref, err := s.store.CreateOrder(ctx, orderID, req.UserID, req.Total, domain.OrderPending)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	payload := event.OrderCreatedPayload{
		OrderID: orderID,
		UserID:  req.UserID,
		Total:   req.Total,
		Status:  string(domain.OrderPending),
	}

	for _, item := range req.Items {
		product, err := s.store.FindProduct(ctx, item.ProductID)
		if err != nil {
			return "", fmt.Errorf("find product %d: %w", item.ProductID, err)
		}
		if err := s.store.CreateOrderItem(ctx, ref, item.ProductID, item.Quantity, product.Price); err != nil {
			return "", fmt.Errorf("create order item: %w", err)
		}
		payload.Items = append(payload.Items, event.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	env := event.New(event.OrderCreated, payload)
	if err := s.publisher.Publish(ctx, event.OrderCreated, env); err != nil {
		return "", err
	}

	log.Info().Int64("user_id", req.UserID).Float64("total", req.Total).Msg("order placed")
	return orderID, nil
}

// newOrderID builds an opaque time-seeded token, unique across instances.
func newOrderID() string {
	return "order_" + strconv.FormatInt(time.Now().UnixMicro(), 16) + uuid.NewString()[:8]
}
