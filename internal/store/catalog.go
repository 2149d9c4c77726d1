package store

import (
	"context"
	"database/sql"

	"erp-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetWarehouse retrieves a warehouse by ID. Returns nil when absent.
func (s *Store) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := s.db.GetContext(ctx, &wh, "SELECT * FROM warehouses WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// GetWarehouseByBranch retrieves the warehouse serving a branch.
func (s *Store) GetWarehouseByBranch(ctx context.Context, branch string) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := s.db.GetContext(ctx, &wh,
		"SELECT * FROM warehouses WHERE branch = $1 ORDER BY id LIMIT 1", branch)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// GetVariant retrieves a variant by ID. Returns nil when absent.
func (s *Store) GetVariant(ctx context.Context, id int64) (*models.Variant, error) {
	var v models.Variant
	err := s.db.GetContext(ctx, &v, "SELECT * FROM variants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVariantsByIDs retrieves multiple variants by IDs.
func (s *Store) GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.Variant, error) {
	if len(ids) == 0 {
		return []models.Variant{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM variants WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var variants []models.Variant
	err = s.db.SelectContext(ctx, &variants, query, args...)
	return variants, err
}

// GetSupplier retrieves a supplier by ID. Returns nil when absent.
func (s *Store) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier models.Supplier
	err := s.db.GetContext(ctx, &supplier, "SELECT * FROM suppliers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// GetCustomer retrieves a customer by ID. Returns nil when absent.
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerTx retrieves a customer inside a transaction.
func (s *Store) GetCustomerTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := tx.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerByEmailTx retrieves a customer by case-folded email.
func (s *Store) GetCustomerByEmailTx(ctx context.Context, tx *sqlx.Tx, email string) (*models.Customer, error) {
	var customer models.Customer
	err := tx.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE lower(email) = $1", models.NormalizeEmail(email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCustomerTx inserts a customer. The filtered unique indexes on
// lower(email) and user_id surface races as unique violations.
func (s *Store) CreateCustomerTx(ctx context.Context, tx *sqlx.Tx, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, tax_id, email, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return tx.GetContext(ctx, customer, query,
		customer.Name, customer.TaxID, customer.Email, customer.UserID)
}
