package store

import (
	"context"
	"database/sql"

	"erp-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateSalesOrderTx inserts a sales order header with its items.
func (s *Store) CreateSalesOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error {
	query := `
		INSERT INTO sales_orders (customer_id, status, payment_method, warehouse_id,
			delivery_address, pickup_branch, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := tx.GetContext(ctx, order, query,
		order.CustomerID, order.Status, order.PaymentMethod, order.WarehouseID,
		order.DeliveryAddress, order.PickupBranch, order.Notes, order.CreatedBy)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO sales_order_items (order_id, variant_id, quantity, unit_price, discount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.OrderID, item.VariantID, item.Quantity, item.UnitPrice, item.Discount)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetSalesOrderForUpdateTx locks and returns the aggregate root with items.
func (s *Store) GetSalesOrderForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := tx.GetContext(ctx, &order, "SELECT * FROM sales_orders WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.SelectContext(ctx, &order.Items,
		"SELECT * FROM sales_order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetSalesOrder retrieves a sales order with items without locking.
func (s *Store) GetSalesOrder(ctx context.Context, id int64) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM sales_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM sales_order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateSalesOrderTx persists header fields mutated by a workflow step.
func (s *Store) UpdateSalesOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sales_orders
		SET status = $1, delivery_address = $2, pickup_branch = $3, courier_user_id = $4,
		    recipient_name = $5, cancel_reason = $6, stock_committed = $7, notes = $8,
		    paid_at = $9, prepared_at = $10, shipped_at = $11, delivered_at = $12,
		    updated_at = NOW()
		WHERE id = $13`,
		order.Status, order.DeliveryAddress, order.PickupBranch, order.CourierUserID,
		order.RecipientName, order.CancelReason, order.StockCommitted, order.Notes,
		order.PaidAt, order.PreparedAt, order.ShippedAt, order.DeliveredAt,
		order.ID)
	return err
}

// GetSalesOrdersByCustomer retrieves orders for a customer, newest first.
func (s *Store) GetSalesOrdersByCustomer(ctx context.Context, customerID int64) ([]models.SalesOrder, error) {
	var orders []models.SalesOrder
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM sales_orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}
