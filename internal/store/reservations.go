package store

import (
	"context"
	"database/sql"

	"erp-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateReservationTx inserts a reservation header with its items.
func (s *Store) CreateReservationTx(ctx context.Context, tx *sqlx.Tx, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (customer_id, status, reserve_at, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := tx.GetContext(ctx, r, query,
		r.CustomerID, r.Status, r.ReserveAt, r.Notes, r.CreatedBy)
	if err != nil {
		return err
	}

	for i := range r.Items {
		item := &r.Items[i]
		item.ReservationID = r.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO reservation_items (reservation_id, variant_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`,
			item.ReservationID, item.VariantID, item.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetReservationForUpdateTx locks and returns the aggregate root with items.
func (s *Store) GetReservationForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := tx.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.SelectContext(ctx, &r.Items,
		"SELECT * FROM reservation_items WHERE reservation_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReservation retrieves a reservation with items without locking.
func (s *Store) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &r.Items,
		"SELECT * FROM reservation_items WHERE reservation_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReservationTx persists header fields mutated by a workflow step.
func (s *Store) UpdateReservationTx(ctx context.Context, tx *sqlx.Tx, r *models.Reservation) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, deposit_amount = $2, deposit_method = $3, deposit_receipt = $4,
		    deposited_at = $5, confirmed_at = $6, reminder_at = $7, cancel_reason = $8,
		    sales_order_id = $9, updated_at = NOW()
		WHERE id = $10`,
		r.Status, r.DepositAmount, r.DepositMethod, r.DepositReceipt,
		r.DepositedAt, r.ConfirmedAt, r.ReminderAt, r.CancelReason,
		r.SalesOrderID, r.ID)
	return err
}

// GetReservationsByCustomer retrieves reservations for a customer, newest
// first.
func (s *Store) GetReservationsByCustomer(ctx context.Context, customerID int64) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return reservations, err
}
