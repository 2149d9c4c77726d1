package store

import (
	"context"
	"database/sql"

	"erp-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreatePurchaseOrderTx inserts a purchase order header with its items.
func (s *Store) CreatePurchaseOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (supplier_id, status, notes, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := tx.GetContext(ctx, order, query,
		order.SupplierID, order.Status, order.Notes, order.CreatedBy)
	if err != nil {
		return err
	}
	return s.insertPurchaseItemsTx(ctx, tx, order.ID, order.Items)
}

// GetPurchaseOrderForUpdateTx locks and returns the aggregate root with its
// items. The stored status is returned as-is; callers normalize.
func (s *Store) GetPurchaseOrderForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := tx.GetContext(ctx, &order, "SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.SelectContext(ctx, &order.Items,
		"SELECT * FROM purchase_order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPurchaseOrder retrieves a purchase order with items without locking.
func (s *Store) GetPurchaseOrder(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM purchase_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM purchase_order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePurchaseOrderTx persists header fields mutated by a workflow step,
// including the canonical status rewrite for legacy rows.
func (s *Store) UpdatePurchaseOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.PurchaseOrder) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $1, supplier_invoice_no = $2, reject_reason = $3, notes = $4,
		    sent_at = $5, confirmed_at = $6, received_at = $7, invoiced_at = $8, closed_at = $9,
		    updated_at = NOW()
		WHERE id = $10`,
		order.Status, order.SupplierInvoiceNo, order.RejectReason, order.Notes,
		order.SentAt, order.ConfirmedAt, order.ReceivedAt, order.InvoicedAt, order.ClosedAt,
		order.ID)
	return err
}

// ReplacePurchaseItemsTx swaps the item set of an order (confirm and receive
// may replace quantities and prices).
func (s *Store) ReplacePurchaseItemsTx(ctx context.Context, tx *sqlx.Tx, orderID int64, items []models.PurchaseOrderItem) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM purchase_order_items WHERE order_id = $1", orderID); err != nil {
		return err
	}
	return s.insertPurchaseItemsTx(ctx, tx, orderID, items)
}

func (s *Store) insertPurchaseItemsTx(ctx context.Context, tx *sqlx.Tx, orderID int64, items []models.PurchaseOrderItem) error {
	for i := range items {
		item := &items[i]
		item.OrderID = orderID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO purchase_order_items (order_id, variant_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			item.OrderID, item.VariantID, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetPurchaseOrdersBySupplier retrieves orders for a supplier, newest first.
func (s *Store) GetPurchaseOrdersBySupplier(ctx context.Context, supplierID int64) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM purchase_orders WHERE supplier_id = $1 ORDER BY created_at DESC", supplierID)
	return orders, err
}
