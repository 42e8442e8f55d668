package postgres

import (
	"context"

	"github.com/ecomshop/event-pipeline/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryStore applies the inventory stage's mutations.
type InventoryStore struct {
	pool *pgxpool.Pool
}

func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{pool: pool}
}

func (s *InventoryStore) FindOrderItemsByOrderID(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, oi.quantity, p.stock, p.name
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Stock, &l.Name); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// DecrementStock applies a conditional decrement: the guard keeps stock from
// going negative under concurrent sales, and a zero-row update means the
// stock was insufficient.
func (s *InventoryStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// MarkOrderProcessed is an unconditional status update; reapplying it on a
// redelivered message is harmless.
func (s *InventoryStore) MarkOrderProcessed(ctx context.Context, orderID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE order_id = $1
	`, orderID, domain.OrderProcessed)
	return err
}

func (s *InventoryStore) AppendInventoryLog(ctx context.Context, productID int64, delta int, logType, note string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory_logs (product_id, quantity, type, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, productID, delta, logType, note)
	return err
}
