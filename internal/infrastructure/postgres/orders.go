package postgres

import (
	"context"
	"errors"

	"github.com/ecomshop/event-pipeline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStore persists orders and their line items for the order service.
type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) CreateOrder(ctx context.Context, orderID string, userID int64, total float64, status domain.OrderStatus) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO orders (order_id, user_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`, orderID, userID, total, status).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *OrderStore) CreateOrderItem(ctx context.Context, orderRef int64, productID int64, quantity int, price float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, orderRef, productID, quantity, price)
	return err
}

func (s *OrderStore) FindProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, price, stock
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
