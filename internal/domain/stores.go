package domain

import (
	"context"
	"errors"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OrderStore is the order service's persistence boundary.
type OrderStore interface {
	CreateOrder(ctx context.Context, orderID string, userID int64, total float64, status OrderStatus) (int64, error)
	CreateOrderItem(ctx context.Context, orderRef int64, productID int64, quantity int, price float64) error
	FindProduct(ctx context.Context, productID int64) (*Product, error)
}

// InventoryStore is what the inventory stage mutates. DecrementStock must be
// conditional: it fails with ErrInsufficientStock instead of going negative.
// MarkOrderProcessed flips the order's status once every line is applied.
type InventoryStore interface {
	FindOrderItemsByOrderID(ctx context.Context, orderID string) ([]OrderLine, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	AppendInventoryLog(ctx context.Context, productID int64, delta int, logType, note string) error
	MarkOrderProcessed(ctx context.Context, orderID string) error
}

// NotificationStore is what the notification stage reads and writes.
type NotificationStore interface {
	FindOrderByOrderID(ctx context.Context, orderID string) (*Order, error)
	CreateNotification(ctx context.Context, userID int64, title, body string) (int64, error)
	UpdateNotificationStatus(ctx context.Context, notificationID int64, status NotificationStatus) error
	AppendNotificationLog(ctx context.Context, notificationID int64, status NotificationStatus, note string) error
}

// Notifier delivers a notification out-of-band (mail, SMS, push).
type Notifier interface {
	Send(ctx context.Context, userID int64, title, body string) error
}
