package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecomshop/event-pipeline/internal/contracts/event"
	"github.com/ecomshop/event-pipeline/internal/domain"
	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// InventoryHandler consumes order_created: it decrements stock per line item,
// appends a sale row to the inventory log, marks the order processed, and
// publishes inventory_processed before the triggering message is
// acknowledged.
//
// StrictStock controls the insufficient-stock policy. Strict fails the
// message so the consumer's retry/dead-letter discipline applies; lenient
// skips the decrement, logs the condition, and still moves the order forward.
type InventoryHandler struct {
	store       domain.InventoryStore
	marks       ProcessedMarker
	publisher   EventPublisher
	StrictStock bool
}

func NewInventoryHandler(store domain.InventoryStore, marks ProcessedMarker, publisher EventPublisher) *InventoryHandler {
	return &InventoryHandler{
		store:       store,
		marks:       marks,
		publisher:   publisher,
		StrictStock: true,
	}
}

func (h *InventoryHandler) Handle(ctx context.Context, d amqp.Delivery) error {
	env, err := event.Decode[event.OrderCreatedPayload](d.Body)
	if err != nil {
		return err
	}
	orderID := strings.TrimSpace(env.Payload.OrderID)
	if orderID == "" {
		return appErrors.NewMalformedEnvelope("order_id is missing in the payload")
	}

	log := logger.WithComponent("inventory_handler").With().Str("order_id", orderID).Logger()

	lines, err := h.store.FindOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return appErrors.NewHandlerError("load order items", err)
	}
	if len(lines) == 0 {
		log.Warn().Msg("order has no items in store")
	}

	for _, line := range lines {
		if err := h.applyLine(ctx, orderID, line, log); err != nil {
			return err
		}
	}

	if err := h.store.MarkOrderProcessed(ctx, orderID); err != nil {
		return appErrors.NewHandlerError("mark order processed", err)
	}

	next := event.New(event.InventoryProcessed, event.InventoryProcessedPayload{OrderID: orderID})
	if err := h.publisher.Publish(ctx, event.InventoryProcessed, next); err != nil {
		return appErrors.NewHandlerError("publish inventory_processed", err)
	}

	log.Info().Int("items", len(lines)).Msg("order processed")
	return nil
}

// applyLine decrements one product's stock exactly once per order. The fence
// is claimed before the mutation and released on failure, so a redelivered
// message retries only the lines that never applied.
func (h *InventoryHandler) applyLine(ctx context.Context, orderID string, line domain.OrderLine, log zerolog.Logger) error {
	fence := fmt.Sprintf("%s:%d", orderID, line.ProductID)

	first, err := h.marks.MarkOnce(ctx, fence)
	if err != nil {
		return appErrors.NewHandlerError("idempotency fence", err)
	}
	if !first {
		log.Info().Int64("product_id", line.ProductID).Msg("stock already decremented, skipping")
		return nil
	}

	err = h.store.DecrementStock(ctx, line.ProductID, line.Quantity)
	if errors.Is(err, domain.ErrInsufficientStock) {
		log.Warn().
			Int64("product_id", line.ProductID).
			Int("requested", line.Quantity).
			Int("stock", line.Stock).
			Msg("insufficient stock")
		if clearErr := h.marks.Clear(ctx, fence); clearErr != nil {
			log.Error().Err(clearErr).Msg("fence clear failed")
		}
		if h.StrictStock {
			return appErrors.NewHandlerError("decrement stock", err)
		}
		return nil
	}
	if err != nil {
		if clearErr := h.marks.Clear(ctx, fence); clearErr != nil {
			log.Error().Err(clearErr).Msg("fence clear failed")
		}
		return appErrors.NewHandlerError("decrement stock", err)
	}

	note := fmt.Sprintf("order %s", orderID)
	if err := h.store.AppendInventoryLog(ctx, line.ProductID, -line.Quantity, domain.InventoryLogSale, note); err != nil {
		// Stock already moved, so the fence stays claimed; only the log row
		// is at risk on redelivery.
		return appErrors.NewHandlerError("append inventory log", err)
	}

	log.Info().
		Int64("product_id", line.ProductID).
		Int("quantity", line.Quantity).
		Msg("stock decremented")
	return nil
}
