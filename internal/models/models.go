package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Actor is the authenticated principal performing a mutation. It is supplied
// by the auth collaborator and passed into every mutating operation.
type Actor struct {
	UserID int64    `json:"user_id"`
	Roles  []string `json:"roles"`
}

// Warehouse represents a physical storage location within a branch.
type Warehouse struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Branch    string    `db:"branch" json:"branch"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Product groups sellable variants.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Variant is a sellable SKU of a product. Stock is tracked per variant.
type Variant struct {
	ID        int64            `db:"id" json:"id"`
	ProductID int64            `db:"product_id" json:"product_id"`
	Name      string           `db:"name" json:"name"`
	Unit      string           `db:"unit" json:"unit"`
	UnitPrice *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// StockBalance is the authoritative on-hand quantity and moving-average cost
// for a (variant, warehouse) pair. Only the inventory engine writes it.
type StockBalance struct {
	ID          int64           `db:"id" json:"id"`
	VariantID   int64           `db:"variant_id" json:"variant_id"`
	WarehouseID int64           `db:"warehouse_id" json:"warehouse_id"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	AvgCost     decimal.Decimal `db:"avg_cost" json:"avg_cost"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Stock movement kinds.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement is an append-only ledger entry. Summing (+IN, -OUT) per
// (variant, warehouse) reconstructs the balance.
type StockMovement struct {
	ID          int64           `db:"id" json:"id"`
	VariantID   int64           `db:"variant_id" json:"variant_id"`
	WarehouseID int64           `db:"warehouse_id" json:"warehouse_id"`
	Kind        string          `db:"kind" json:"kind"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Reason      string          `db:"reason" json:"reason"`
	ActorID     int64           `db:"actor_id" json:"actor_id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// StockAdjustment is the header of a manual stock correction.
type StockAdjustment struct {
	ID        int64     `db:"id" json:"id"`
	Reason    string    `db:"reason" json:"reason"`
	ActorID   int64     `db:"actor_id" json:"actor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Items []StockAdjustmentItem `db:"-" json:"items,omitempty"`
}

// StockAdjustmentItem records the before/after quantities for one balance.
type StockAdjustmentItem struct {
	ID           int64           `db:"id" json:"id"`
	AdjustmentID int64           `db:"adjustment_id" json:"adjustment_id"`
	VariantID    int64           `db:"variant_id" json:"variant_id"`
	WarehouseID  int64           `db:"warehouse_id" json:"warehouse_id"`
	QtyBefore    decimal.Decimal `db:"qty_before" json:"qty_before"`
	QtyAfter     decimal.Decimal `db:"qty_after" json:"qty_after"`
}

// StockTransfer is the header of a warehouse-to-warehouse move.
type StockTransfer struct {
	ID            int64     `db:"id" json:"id"`
	SourceID      int64     `db:"source_id" json:"source_id"`
	DestinationID int64     `db:"destination_id" json:"destination_id"`
	Reason        string    `db:"reason" json:"reason"`
	ActorID       int64     `db:"actor_id" json:"actor_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	Items []StockTransferItem `db:"-" json:"items,omitempty"`
}

// StockTransferItem is one variant line on a transfer.
type StockTransferItem struct {
	ID         int64           `db:"id" json:"id"`
	TransferID int64           `db:"transfer_id" json:"transfer_id"`
	VariantID  int64           `db:"variant_id" json:"variant_id"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
}

// Customer is a buyer. Email is unique case-insensitively among non-null
// values; a customer may be linked to at most one auth user.
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeEmail canonicalizes an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Supplier provides purchasable variants.
type Supplier struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SupplierContact is one contact entry for a supplier.
type SupplierContact struct {
	ID         int64  `db:"id" json:"id"`
	SupplierID int64  `db:"supplier_id" json:"supplier_id"`
	Name       string `db:"name" json:"name"`
	Phone      string `db:"phone" json:"phone"`
	Email      string `db:"email" json:"email"`
}

// IdempotencyRecord caches the first response produced for a client token.
type IdempotencyRecord struct {
	ID        int64     `db:"id" json:"id"`
	Key       string    `db:"key" json:"key"`
	Route     string    `db:"route" json:"route"`
	Method    string    `db:"method" json:"method"`
	BodyHash  string    `db:"body_hash" json:"body_hash"`
	Status    int       `db:"status" json:"status"`
	Response  []byte    `db:"response" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VariantAvailability is the read view returned by the inventory engine:
// on-hand stock across warehouses minus quantities pinned by open
// reservations.
type VariantAvailability struct {
	VariantID    int64            `json:"variant_id"`
	PerWarehouse []WarehouseStock `json:"per_warehouse"`
	TotalOnHand  decimal.Decimal  `json:"total_on_hand"`
	Pinned       decimal.Decimal  `json:"pinned_by_reservations"`
	Available    decimal.Decimal  `json:"available"`
}

// WarehouseStock is one warehouse line of an availability view.
type WarehouseStock struct {
	WarehouseID int64           `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}
