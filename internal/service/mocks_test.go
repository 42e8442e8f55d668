package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ecomshop/event-pipeline/internal/domain"
	"github.com/ecomshop/event-pipeline/internal/infrastructure/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, orderID string, userID int64, total float64, status domain.OrderStatus) (int64, error) {
	args := m.Called(ctx, orderID, userID, total, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, orderRef int64, productID int64, quantity int, price float64) error {
	args := m.Called(ctx, orderRef, productID, quantity, price)
	return args.Error(0)
}

func (m *mockOrderStore) FindProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockInventoryStore struct {
	mock.Mock
}

func (m *mockInventoryStore) FindOrderItemsByOrderID(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	args := m.Called(ctx, orderID)
	if l := args.Get(0); l != nil {
		return l.([]domain.OrderLine), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInventoryStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

func (m *mockInventoryStore) AppendInventoryLog(ctx context.Context, productID int64, delta int, logType, note string) error {
	args := m.Called(ctx, productID, delta, logType, note)
	return args.Error(0)
}

func (m *mockInventoryStore) MarkOrderProcessed(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) FindOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if o := args.Get(0); o != nil {
		return o.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationStore) CreateNotification(ctx context.Context, userID int64, title, body string) (int64, error) {
	args := m.Called(ctx, userID, title, body)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationStore) UpdateNotificationStatus(ctx context.Context, notificationID int64, status domain.NotificationStatus) error {
	args := m.Called(ctx, notificationID, status)
	return args.Error(0)
}

func (m *mockNotificationStore) AppendNotificationLog(ctx context.Context, notificationID int64, status domain.NotificationStatus, note string) error {
	args := m.Called(ctx, notificationID, status, note)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, userID int64, title, body string) error {
	args := m.Called(ctx, userID, title, body)
	return args.Error(0)
}

type publishedEvent struct {
	routingKey string
	payload    any
}

// capturingPublisher records publishes in order.
type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *capturingPublisher) Publish(ctx context.Context, routingKey string, payload any, opts ...rabbitmq.Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{routingKey, payload})
	return nil
}

// memMarker is an in-memory ProcessedMarker.
type memMarker struct {
	mu     sync.Mutex
	marked map[string]bool
	err    error
}

func newMemMarker() *memMarker {
	return &memMarker{marked: map[string]bool{}}
}

func (m *memMarker) MarkOnce(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.marked[id] {
		return false, nil
	}
	m.marked[id] = true
	return true, nil
}

func (m *memMarker) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marked, id)
	return nil
}

func deliveryWith(t *testing.T, v any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return amqp.Delivery{Body: body, MessageId: "msg-1"}
}
