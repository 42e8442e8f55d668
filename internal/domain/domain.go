package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderProcessed OrderStatus = "processed"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// InventoryLogSale marks a stock decrement caused by an order.
const InventoryLogSale = "sale"

// Order is the persisted order row. ID is the surrogate key; OrderID is the
// opaque public token carried in events.
type Order struct {
	ID        int64
	OrderID   string
	UserID    int64
	Total     float64
	Status    OrderStatus
	CreatedAt time.Time
}

type OrderItem struct {
	ID        int64
	OrderRef  int64
	ProductID int64
	Quantity  int
	Price     float64
}

type Product struct {
	ID    int64
	Name  string
	Price float64
	Stock int
}

// OrderLine joins an order item with the current product state, as the
// inventory stage sees it.
type OrderLine struct {
	ProductID int64
	Quantity  int
	Stock     int
	Name      string
}

type Notification struct {
	ID     int64
	UserID int64
	Title  string
	Body   string
	Status NotificationStatus
}
