package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order states. Canonical values are the uppercase Spanish
// identifiers the legacy data converges on.
const (
	PurchaseStatusDraft     = "BORRADOR"
	PurchaseStatusSent      = "ENVIADO"
	PurchaseStatusConfirmed = "CONFIRMADO"
	PurchaseStatusRejected  = "RECHAZADO"
	PurchaseStatusReceived  = "RECIBIDO"
	PurchaseStatusInvoiced  = "FACTURADO"
	PurchaseStatusClosed    = "CERRADO"
)

// legacyPurchaseStatus maps lowercase values still present in old rows to
// their canonical form. Normalized on read, rewritten on first mutation.
var legacyPurchaseStatus = map[string]string{
	"draft":    PurchaseStatusDraft,
	"sent":     PurchaseStatusSent,
	"received": PurchaseStatusReceived,
	"partial":  PurchaseStatusReceived,
	"canceled": PurchaseStatusRejected,
}

// NormalizePurchaseStatus returns the canonical form of a stored purchase
// order state and whether the stored value was a legacy one.
func NormalizePurchaseStatus(status string) (string, bool) {
	if canonical, ok := legacyPurchaseStatus[status]; ok {
		return canonical, true
	}
	return status, false
}

// purchaseTransitions lists the permitted purchase state-machine edges.
var purchaseTransitions = map[string][]string{
	PurchaseStatusDraft:     {PurchaseStatusSent},
	PurchaseStatusSent:      {PurchaseStatusConfirmed, PurchaseStatusRejected, PurchaseStatusReceived},
	PurchaseStatusConfirmed: {PurchaseStatusReceived},
	PurchaseStatusReceived:  {PurchaseStatusInvoiced},
	PurchaseStatusInvoiced:  {PurchaseStatusClosed},
}

// CanTransitionPurchase reports whether from→to is a permitted edge.
func CanTransitionPurchase(from, to string) bool {
	for _, next := range purchaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PurchaseOrder is the aggregate root of the purchase workflow. It owns its
// items; cross-aggregate references are by id only.
type PurchaseOrder struct {
	ID                int64      `db:"id" json:"id"`
	SupplierID        int64      `db:"supplier_id" json:"supplier_id"`
	Status            string     `db:"status" json:"status"`
	SupplierInvoiceNo *string    `db:"supplier_invoice_no" json:"supplier_invoice_no,omitempty"`
	RejectReason      *string    `db:"reject_reason" json:"reject_reason,omitempty"`
	Notes             string     `db:"notes" json:"notes"`
	CreatedBy         int64      `db:"created_by" json:"created_by"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	SentAt            *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	ConfirmedAt       *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ReceivedAt        *time.Time `db:"received_at" json:"received_at,omitempty"`
	InvoicedAt        *time.Time `db:"invoiced_at" json:"invoiced_at,omitempty"`
	ClosedAt          *time.Time `db:"closed_at" json:"closed_at,omitempty"`

	Items []PurchaseOrderItem `db:"-" json:"items,omitempty"`
}

// PurchaseOrderItem is one variant line on a purchase order.
type PurchaseOrderItem struct {
	ID        int64            `db:"id" json:"id"`
	OrderID   int64            `db:"order_id" json:"order_id"`
	VariantID int64            `db:"variant_id" json:"variant_id"`
	Quantity  decimal.Decimal  `db:"quantity" json:"quantity"`
	UnitPrice *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
}

// Sales order states.
const (
	SalesStatusPending     = "PENDING"
	SalesStatusPaid        = "PAID"
	SalesStatusPreparing   = "PREPARING"
	SalesStatusShipped     = "SHIPPED"
	SalesStatusDelivered   = "DELIVERED"
	SalesStatusReadyPickup = "READY_PICKUP"
	SalesStatusPickedUp    = "PICKED_UP"
	SalesStatusCancelled   = "CANCELLED"
)

// Sales payment methods. The method fixes when payment is captured and which
// delivery edges are valid.
const (
	PaymentMethodPrepaid = "PREPAID"
	PaymentMethodCOD     = "COD"
	PaymentMethodPickup  = "PICKUP"
	PaymentMethodCredit  = "CREDIT"
)

// Payment instruments.
const (
	PaymentInstrumentCash     = "EFECTIVO"
	PaymentInstrumentCard     = "TARJETA"
	PaymentInstrumentTransfer = "TRANSFERENCIA"
	PaymentInstrumentQR       = "QR"
)

// salesTransitions lists the permitted sales state-machine edges. Cancel is
// handled separately: any non-terminal state may cancel.
var salesTransitions = map[string][]string{
	SalesStatusPending:     {SalesStatusPaid},
	SalesStatusPaid:        {SalesStatusPreparing, SalesStatusShipped, SalesStatusReadyPickup},
	SalesStatusPreparing:   {SalesStatusShipped, SalesStatusReadyPickup},
	SalesStatusShipped:     {SalesStatusDelivered},
	SalesStatusReadyPickup: {SalesStatusPickedUp},
}

// CanTransitionSales reports whether from→to is a permitted edge.
func CanTransitionSales(from, to string) bool {
	if to == SalesStatusCancelled {
		return !IsTerminalSalesStatus(from)
	}
	for _, next := range salesTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalSalesStatus reports whether no further edges leave the state.
func IsTerminalSalesStatus(status string) bool {
	switch status {
	case SalesStatusDelivered, SalesStatusPickedUp, SalesStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether method is a known payment method.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodPrepaid, PaymentMethodCOD, PaymentMethodPickup, PaymentMethodCredit:
		return true
	}
	return false
}

// MethodAllowsShipping reports whether orders with this payment method may
// take the courier path (ship, deliver). PICKUP orders must be collected at
// a branch, where their payment is captured.
func MethodAllowsShipping(method string) bool {
	return method != PaymentMethodPickup
}

// MethodAllowsPickup reports whether orders with this payment method may take
// the branch path (ready for pickup, pickup). COD orders must go out with a
// courier, who captures the payment at the door.
func MethodAllowsPickup(method string) bool {
	return method != PaymentMethodCOD
}

// SalesOrder is the aggregate root of the sales workflow.
type SalesOrder struct {
	ID              int64      `db:"id" json:"id"`
	CustomerID      int64      `db:"customer_id" json:"customer_id"`
	Status          string     `db:"status" json:"status"`
	PaymentMethod   string     `db:"payment_method" json:"payment_method"`
	WarehouseID     int64      `db:"warehouse_id" json:"warehouse_id"`
	DeliveryAddress *string    `db:"delivery_address" json:"delivery_address,omitempty"`
	PickupBranch    *string    `db:"pickup_branch" json:"pickup_branch,omitempty"`
	CourierUserID   *int64     `db:"courier_user_id" json:"courier_user_id,omitempty"`
	RecipientName   *string    `db:"recipient_name" json:"recipient_name,omitempty"`
	CancelReason    *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	StockCommitted  bool       `db:"stock_committed" json:"stock_committed"`
	Notes           string     `db:"notes" json:"notes"`
	CreatedBy       *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	PaidAt          *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	PreparedAt      *time.Time `db:"prepared_at" json:"prepared_at,omitempty"`
	ShippedAt       *time.Time `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	Items []SalesOrderItem `db:"-" json:"items,omitempty"`
}

// SalesOrderItem is one variant line on a sales order.
type SalesOrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	VariantID int64           `db:"variant_id" json:"variant_id"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Discount  decimal.Decimal `db:"discount" json:"discount"`
}

// Total returns the order total: Σ(qty·unit price − discount).
func (o *SalesOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Quantity.Mul(item.UnitPrice).Sub(item.Discount))
	}
	return total
}

// Reservation states.
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusDeposited = "DEPOSITED"
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusCompleted = "COMPLETED"
	ReservationStatusCancelled = "CANCELLED"
)

// reservationTransitions lists the permitted reservation edges.
var reservationTransitions = map[string][]string{
	ReservationStatusPending:   {ReservationStatusDeposited, ReservationStatusCancelled},
	ReservationStatusDeposited: {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusCompleted, ReservationStatusCancelled},
}

// CanTransitionReservation reports whether from→to is a permitted edge.
func CanTransitionReservation(from, to string) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReservationPinned reports whether a reservation in the given state pins
// its quantities against availability.
func ReservationPinned(status string) bool {
	switch status {
	case ReservationStatusPending, ReservationStatusDeposited, ReservationStatusConfirmed:
		return true
	}
	return false
}

// Reservation holds items aside for a customer until a sales order takes
// over or the reservation is cancelled.
type Reservation struct {
	ID             int64            `db:"id" json:"id"`
	CustomerID     int64            `db:"customer_id" json:"customer_id"`
	Status         string           `db:"status" json:"status"`
	ReserveAt      *time.Time       `db:"reserve_at" json:"reserve_at,omitempty"`
	Notes          string           `db:"notes" json:"notes"`
	DepositAmount  *decimal.Decimal `db:"deposit_amount" json:"deposit_amount,omitempty"`
	DepositMethod  *string          `db:"deposit_method" json:"deposit_method,omitempty"`
	DepositReceipt *string          `db:"deposit_receipt" json:"deposit_receipt,omitempty"`
	DepositedAt    *time.Time       `db:"deposited_at" json:"deposited_at,omitempty"`
	ConfirmedAt    *time.Time       `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ReminderAt     *time.Time       `db:"reminder_at" json:"reminder_at,omitempty"`
	CancelReason   *string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	SalesOrderID   *int64           `db:"sales_order_id" json:"sales_order_id,omitempty"`
	CreatedBy      int64            `db:"created_by" json:"created_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`

	Items []ReservationItem `db:"-" json:"items,omitempty"`
}

// ReservationItem is one variant line on a reservation.
type ReservationItem struct {
	ID            int64           `db:"id" json:"id"`
	ReservationID int64           `db:"reservation_id" json:"reservation_id"`
	VariantID     int64           `db:"variant_id" json:"variant_id"`
	Quantity      decimal.Decimal `db:"quantity" json:"quantity"`
}

// Invoice states.
const (
	InvoiceStatusIssued = "ISSUED"
	InvoiceStatusVoid   = "VOID"
)

// Invoice is immutable once issued, except for voiding. Number is unique and
// strictly increasing (FAC-%06d) among issued invoices.
type Invoice struct {
	ID           int64           `db:"id" json:"id"`
	Number       string          `db:"number" json:"number"`
	Seq          int64           `db:"seq" json:"seq"`
	SalesOrderID *int64          `db:"sales_order_id" json:"sales_order_id,omitempty"`
	CustomerID   int64           `db:"customer_id" json:"customer_id"`
	TaxID        string          `db:"tax_id" json:"tax_id"`
	LegalName    string          `db:"legal_name" json:"legal_name"`
	IssuedAt     time.Time       `db:"issued_at" json:"issued_at"`
	DueAt        *time.Time      `db:"due_at" json:"due_at,omitempty"`
	Subtotal     decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount     decimal.Decimal `db:"discount" json:"discount"`
	Tax          decimal.Decimal `db:"tax" json:"tax"`
	Total        decimal.Decimal `db:"total" json:"total"`
	Status       string          `db:"status" json:"status"`
	CreatedBy    int64           `db:"created_by" json:"created_by"`

	Items []InvoiceItem `db:"-" json:"items,omitempty"`
}

// InvoiceItem is one line of an invoice. Subtotal = qty·unit price − discount.
type InvoiceItem struct {
	ID        int64           `db:"id" json:"id"`
	InvoiceID int64           `db:"invoice_id" json:"invoice_id"`
	VariantID int64           `db:"variant_id" json:"variant_id"`
	Detail    string          `db:"detail" json:"detail"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Discount  decimal.Decimal `db:"discount" json:"discount"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// Payment states.
const (
	PaymentStatusConfirmed = "CONFIRMED"
	PaymentStatusPending   = "PENDING"
	PaymentStatusVoid      = "VOID"
)

// Payment is an append-only record of money received.
type Payment struct {
	ID           int64           `db:"id" json:"id"`
	CustomerID   int64           `db:"customer_id" json:"customer_id"`
	InvoiceID    *int64          `db:"invoice_id" json:"invoice_id,omitempty"`
	SalesOrderID *int64          `db:"sales_order_id" json:"sales_order_id,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Method       string          `db:"method" json:"method"`
	Receipt      *string         `db:"receipt" json:"receipt,omitempty"`
	PaidAt       time.Time       `db:"paid_at" json:"paid_at"`
	Status       string          `db:"status" json:"status"`
	CreatedBy    int64           `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
