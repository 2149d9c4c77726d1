package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeStockMoved        = "STOCK_MOVED"
	EventTypePurchaseStatus    = "PURCHASE_ORDER_STATUS_CHANGED"
	EventTypeSalesStatus       = "SALES_ORDER_STATUS_CHANGED"
	EventTypeReservationStatus = "RESERVATION_STATUS_CHANGED"
	EventTypeInvoiceIssued     = "INVOICE_ISSUED"
	EventTypePaymentRecorded   = "PAYMENT_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockMovedEvent published after a committed stock movement
type StockMovedEvent struct {
	BaseEvent
	VariantID   int64           `json:"variant_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason"`
}

// PurchaseStatusEvent published on purchase order transitions
type PurchaseStatusEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	SupplierID int64  `json:"supplier_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// SalesStatusEvent published on sales order transitions
type SalesStatusEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// ReservationStatusEvent published on reservation transitions
type ReservationStatusEvent struct {
	BaseEvent
	ReservationID int64  `json:"reservation_id"`
	CustomerID    int64  `json:"customer_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
}

// InvoiceIssuedEvent published when an invoice number is allocated
type InvoiceIssuedEvent struct {
	BaseEvent
	InvoiceID  int64           `json:"invoice_id"`
	Number     string          `json:"number"`
	CustomerID int64           `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
}

// PaymentRecordedEvent published when a payment is posted
type PaymentRecordedEvent struct {
	BaseEvent
	PaymentID  int64           `json:"payment_id"`
	CustomerID int64           `json:"customer_id"`
	InvoiceID  *int64          `json:"invoice_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
}
