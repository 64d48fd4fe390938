package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
)

const orderColumns = `id, created_at, updated_at, tenant_id, customer_phone, order_number,
	items, total, delivery_type, delivery_address, status`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.TenantID,
		&order.CustomerPhone, &order.OrderNumber, &order.Items, &order.Total,
		&order.DeliveryType, &order.DeliveryAddress, &order.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return order, err
}

// CreateOrder persists a new order and assigns its order number
func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	// Order numbers come from a per-database sequence and are opaque to callers
	if order.OrderNumber == "" {
		var seq int64
		if err := s.getDB().QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("%04d", seq)
	}

	query := `
		INSERT INTO orders (
			id, created_at, updated_at, tenant_id, customer_phone, order_number,
			items, total, delivery_type, delivery_address, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		order.ID, order.CreatedAt, order.UpdatedAt, order.TenantID,
		order.CustomerPhone, order.OrderNumber, order.Items, order.Total,
		order.DeliveryType, order.DeliveryAddress, order.Status,
	)

	return err
}

// GetOrder gets an order by ID
func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(s.getDB().QueryRowContext(ctx, query, id))
}

// ListOrders lists a tenant's orders, most recent first
func (s *PostgresStore) ListOrders(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Order, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1` +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}

	return orders, count, rows.Err()
}

// ListCustomerOrders lists one customer's orders for a tenant, most recent first
func (s *PostgresStore) ListCustomerOrders(ctx context.Context, tenantID uuid.UUID, customerPhone string, limit int) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE tenant_id = $1 AND customer_phone = $2` +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, customerPhone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// UpdateOrderStatus updates the status of an order
func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
