package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecomshop/event-pipeline/internal/contracts/event"
	"github.com/ecomshop/event-pipeline/internal/domain"
	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationHandler consumes inventory_processed: it re-fetches the order,
// creates a notification row, pushes it through the Notifier, and records
// the outcome. A failed send is terminal for the notification (status
// "failed", logged), not for the message.
type NotificationHandler struct {
	store    domain.NotificationStore
	notifier domain.Notifier
	marks    ProcessedMarker
}

func NewNotificationHandler(store domain.NotificationStore, notifier domain.Notifier, marks ProcessedMarker) *NotificationHandler {
	return &NotificationHandler{store: store, notifier: notifier, marks: marks}
}

func (h *NotificationHandler) Handle(ctx context.Context, d amqp.Delivery) error {
	env, err := event.Decode[event.InventoryProcessedPayload](d.Body)
	if err != nil {
		return err
	}
	orderID := strings.TrimSpace(env.Payload.OrderID)
	if orderID == "" {
		return appErrors.NewMalformedEnvelope("order_id is missing in the payload")
	}

	log := logger.WithComponent("notification_handler").With().Str("order_id", orderID).Logger()

	first, err := h.marks.MarkOnce(ctx, orderID)
	if err != nil {
		return appErrors.NewHandlerError("idempotency fence", err)
	}
	if !first {
		log.Info().Msg("notification already created, skipping")
		return nil
	}

	order, err := h.store.FindOrderByOrderID(ctx, orderID)
	if err != nil {
		if clearErr := h.marks.Clear(ctx, orderID); clearErr != nil {
			log.Error().Err(clearErr).Msg("fence clear failed")
		}
		return appErrors.NewHandlerError("find order", err)
	}

	title := "Your order has been processed!"
	body := fmt.Sprintf("Order ID %s has been successfully processed. Thank you for shopping with us!", orderID)

	notificationID, err := h.store.CreateNotification(ctx, order.UserID, title, body)
	if err != nil {
		if clearErr := h.marks.Clear(ctx, orderID); clearErr != nil {
			log.Error().Err(clearErr).Msg("fence clear failed")
		}
		return appErrors.NewHandlerError("create notification", err)
	}

	status := domain.NotificationSent
	note := "Notification sent successfully."
	if sendErr := h.notifier.Send(ctx, order.UserID, title, body); sendErr != nil {
		status = domain.NotificationFailed
		note = "Notification sending failed."
		log.Warn().Err(sendErr).Int64("notification_id", notificationID).Msg("notifier send failed")
	}

	if err := h.store.UpdateNotificationStatus(ctx, notificationID, status); err != nil {
		return appErrors.NewHandlerError("update notification status", err)
	}
	if err := h.store.AppendNotificationLog(ctx, notificationID, status, note); err != nil {
		return appErrors.NewHandlerError("append notification log", err)
	}

	log.Info().
		Int64("notification_id", notificationID).
		Str("status", string(status)).
		Msg("notification processed")
	return nil
}
