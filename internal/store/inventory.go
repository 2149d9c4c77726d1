package store

import (
	"context"
	"database/sql"

	"erp-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// GetBalanceForUpdateTx locks and returns the balance row for a (variant,
// warehouse) pair. Returns nil when no row exists yet.
func (s *Store) GetBalanceForUpdateTx(ctx context.Context, tx *sqlx.Tx, variantID, warehouseID int64) (*models.StockBalance, error) {
	var balance models.StockBalance
	err := tx.GetContext(ctx, &balance,
		"SELECT * FROM stock_balances WHERE variant_id = $1 AND warehouse_id = $2 FOR UPDATE",
		variantID, warehouseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// CreateBalanceTx inserts a new balance row.
func (s *Store) CreateBalanceTx(ctx context.Context, tx *sqlx.Tx, balance *models.StockBalance) error {
	query := `
		INSERT INTO stock_balances (variant_id, warehouse_id, quantity, avg_cost)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at`

	return tx.GetContext(ctx, balance, query,
		balance.VariantID, balance.WarehouseID, balance.Quantity, balance.AvgCost)
}

// UpdateBalanceTx writes the quantity and moving-average cost of a locked
// balance row.
func (s *Store) UpdateBalanceTx(ctx context.Context, tx *sqlx.Tx, balance *models.StockBalance) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE stock_balances SET quantity = $1, avg_cost = $2, updated_at = NOW() WHERE id = $3",
		balance.Quantity, balance.AvgCost, balance.ID)
	return err
}

// InsertMovementTx appends a ledger entry.
func (s *Store) InsertMovementTx(ctx context.Context, tx *sqlx.Tx, m *models.StockMovement) error {
	query := `
		INSERT INTO stock_movements (variant_id, warehouse_id, kind, quantity, reason, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return tx.GetContext(ctx, m, query,
		m.VariantID, m.WarehouseID, m.Kind, m.Quantity, m.Reason, m.ActorID)
}

// GetBalancesByVariantTx locks and returns every balance row of a variant,
// ordered by warehouse for deterministic lock order.
func (s *Store) GetBalancesByVariantTx(ctx context.Context, tx *sqlx.Tx, variantID int64) ([]models.StockBalance, error) {
	var balances []models.StockBalance
	err := tx.SelectContext(ctx, &balances,
		"SELECT * FROM stock_balances WHERE variant_id = $1 ORDER BY warehouse_id FOR UPDATE",
		variantID)
	return balances, err
}

// GetBalancesByVariant returns the balance rows of a variant without locking.
func (s *Store) GetBalancesByVariant(ctx context.Context, variantID int64) ([]models.StockBalance, error) {
	var balances []models.StockBalance
	err := s.db.SelectContext(ctx, &balances,
		"SELECT * FROM stock_balances WHERE variant_id = $1 ORDER BY warehouse_id", variantID)
	return balances, err
}

// SumPinnedByVariantTx locks the open reservations referencing a variant and
// returns the quantity they pin.
func (s *Store) SumPinnedByVariantTx(ctx context.Context, tx *sqlx.Tx, variantID int64) (decimal.Decimal, error) {
	// Lock the reservation headers first so a concurrent create or cancel
	// serializes against this read.
	var ids []int64
	err := tx.SelectContext(ctx, &ids, `
		SELECT r.id FROM reservations r
		JOIN reservation_items ri ON ri.reservation_id = r.id
		WHERE ri.variant_id = $1 AND r.status IN ($2, $3, $4)
		ORDER BY r.id
		FOR UPDATE OF r`,
		variantID,
		models.ReservationStatusPending,
		models.ReservationStatusDeposited,
		models.ReservationStatusConfirmed)
	if err != nil {
		return decimal.Zero, err
	}

	pinned := decimal.Zero
	if len(ids) == 0 {
		return pinned, nil
	}

	query, args, err := sqlx.In(
		"SELECT COALESCE(SUM(quantity), 0) FROM reservation_items WHERE variant_id = ? AND reservation_id IN (?)",
		variantID, ids)
	if err != nil {
		return decimal.Zero, err
	}
	query = tx.Rebind(query)

	err = tx.GetContext(ctx, &pinned, query, args...)
	return pinned, err
}

// CreateAdjustmentTx inserts an adjustment header with its items.
func (s *Store) CreateAdjustmentTx(ctx context.Context, tx *sqlx.Tx, adj *models.StockAdjustment) error {
	query := `
		INSERT INTO stock_adjustments (reason, actor_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	if err := tx.GetContext(ctx, adj, query, adj.Reason, adj.ActorID); err != nil {
		return err
	}

	for i := range adj.Items {
		item := &adj.Items[i]
		item.AdjustmentID = adj.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO stock_adjustment_items (adjustment_id, variant_id, warehouse_id, qty_before, qty_after)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.AdjustmentID, item.VariantID, item.WarehouseID, item.QtyBefore, item.QtyAfter)
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateTransferTx inserts a transfer header with its items.
func (s *Store) CreateTransferTx(ctx context.Context, tx *sqlx.Tx, transfer *models.StockTransfer) error {
	query := `
		INSERT INTO stock_transfers (source_id, destination_id, reason, actor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := tx.GetContext(ctx, transfer, query,
		transfer.SourceID, transfer.DestinationID, transfer.Reason, transfer.ActorID)
	if err != nil {
		return err
	}

	for i := range transfer.Items {
		item := &transfer.Items[i]
		item.TransferID = transfer.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO stock_transfer_items (transfer_id, variant_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`,
			item.TransferID, item.VariantID, item.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetMovementsByVariant returns the ledger entries of a variant, newest first.
func (s *Store) GetMovementsByVariant(ctx context.Context, variantID int64, limit int) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := s.db.SelectContext(ctx, &movements,
		"SELECT * FROM stock_movements WHERE variant_id = $1 ORDER BY id DESC LIMIT $2",
		variantID, limit)
	return movements, err
}
