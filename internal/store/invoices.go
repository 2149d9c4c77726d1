package store

import (
	"context"
	"database/sql"

	"erp-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// NextInvoiceSeqTx returns the next invoice sequence number. The read locks
// the issued invoices carrying the current maximum, which serializes
// concurrent allocation; two racing transactions collide on the unique
// number index and the loser surfaces CONFLICT.
func (s *Store) NextInvoiceSeqTx(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"SELECT id FROM invoices WHERE seq = (SELECT MAX(seq) FROM invoices) FOR UPDATE"); err != nil {
		return 0, err
	}

	var max int64
	if err := tx.GetContext(ctx, &max,
		"SELECT COALESCE(MAX(seq), 0) FROM invoices"); err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CreateInvoiceTx inserts an invoice header with its items.
func (s *Store) CreateInvoiceTx(ctx context.Context, tx *sqlx.Tx, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (number, seq, sales_order_id, customer_id, tax_id, legal_name,
			issued_at, due_at, subtotal, discount, tax, total, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, issued_at`

	err := tx.GetContext(ctx, inv, query,
		inv.Number, inv.Seq, inv.SalesOrderID, inv.CustomerID, inv.TaxID, inv.LegalName,
		inv.DueAt, inv.Subtotal, inv.Discount, inv.Tax, inv.Total, inv.Status, inv.CreatedBy)
	if err != nil {
		return err
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO invoice_items (invoice_id, variant_id, detail, quantity, unit_price, discount, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.InvoiceID, item.VariantID, item.Detail, item.Quantity,
			item.UnitPrice, item.Discount, item.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetInvoice retrieves an invoice with items. Returns nil when absent.
func (s *Store) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &inv.Items,
		"SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreatePaymentTx inserts a payment row.
func (s *Store) CreatePaymentTx(ctx context.Context, tx *sqlx.Tx, p *models.Payment) error {
	query := `
		INSERT INTO payments (customer_id, invoice_id, sales_order_id, amount, method, receipt, paid_at, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return tx.GetContext(ctx, p, query,
		p.CustomerID, p.InvoiceID, p.SalesOrderID, p.Amount, p.Method,
		p.Receipt, p.PaidAt, p.Status, p.CreatedBy)
}

// TotalPaid sums the confirmed payments posted against an invoice.
func (s *Store) TotalPaid(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1 AND status = $2",
		invoiceID, models.PaymentStatusConfirmed)
	return total, err
}

// HasConfirmedPaymentTx reports whether a sales order already has a confirmed
// payment (consulted before requiring capture at pickup).
func (s *Store) HasConfirmedPaymentTx(ctx context.Context, tx *sqlx.Tx, salesOrderID int64) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE sales_order_id = $1 AND status = $2)",
		salesOrderID, models.PaymentStatusConfirmed)
	return exists, err
}

// GetPaymentsByInvoice retrieves the payments posted against an invoice.
func (s *Store) GetPaymentsByInvoice(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE invoice_id = $1 ORDER BY paid_at", invoiceID)
	return payments, err
}
