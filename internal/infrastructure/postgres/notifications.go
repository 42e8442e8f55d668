package postgres

import (
	"context"
	"errors"

	"github.com/ecomshop/event-pipeline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationStore reads orders and writes notifications for the
// notification stage.
type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func (s *NotificationStore) FindOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, user_id, total, status, created_at
		FROM orders
		WHERE order_id = $1
	`, orderID).Scan(&o.ID, &o.OrderID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *NotificationStore) CreateNotification(ctx context.Context, userID int64, title, body string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`, userID, title, body, domain.NotificationPending).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *NotificationStore) UpdateNotificationStatus(ctx context.Context, notificationID int64, status domain.NotificationStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, notificationID, status)
	return err
}

func (s *NotificationStore) AppendNotificationLog(ctx context.Context, notificationID int64, status domain.NotificationStatus, note string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_logs (notification_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`, notificationID, status, note)
	return err
}
