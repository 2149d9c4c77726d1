package service

import (
	"context"
	"time"

	"erp-service/internal/apperr"
	"erp-service/internal/broker"
	"erp-service/internal/models"
	"erp-service/internal/store"
	"erp-service/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SalesService drives the sales-order state machine. Stock is committed at
// ship or ready-for-pickup, never at creation; deferred payment methods
// (COD, PICKUP) capture at delivery or pickup, emitting the invoice and the
// payment in the same transaction as the state change.
type SalesService struct {
	store            *store.Store
	inventory        *InventoryService
	billing          *BillingService
	eventPublisher   *broker.EventPublisher
	defaultWarehouse int64
	logger           *zap.Logger
}

// NewSalesService creates a new sales service
func NewSalesService(store *store.Store, inventory *InventoryService, billing *BillingService, eventPublisher *broker.EventPublisher, defaultWarehouse int64) *SalesService {
	return &SalesService{
		store:            store,
		inventory:        inventory,
		billing:          billing,
		eventPublisher:   eventPublisher,
		defaultWarehouse: defaultWarehouse,
		logger:           util.GetLogger(),
	}
}

// CustomerRef resolves a customer either by id or by email. When only an
// email is given and no customer carries it (case-folded), a new customer is
// created with Name, linked to the acting user if one is present.
type CustomerRef struct {
	CustomerID *int64  `json:"customer_id,omitempty"`
	Email      *string `json:"email,omitempty"`
	Name       string  `json:"name,omitempty"`
	TaxID      string  `json:"tax_id,omitempty"`
}

// SalesItemInput is one requested line on a sales order.
type SalesItemInput struct {
	VariantID int64           `json:"variant_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// CreateSalesOrderRequest carries the fields needed to open a sales order.
type CreateSalesOrderRequest struct {
	Customer        CustomerRef      `json:"customer" binding:"required"`
	Items           []SalesItemInput `json:"items" binding:"required,min=1"`
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	DeliveryAddress *string          `json:"delivery_address,omitempty"`
	PickupBranch    *string          `json:"pickup_branch,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// CaptureInput is the money handed over at a COD delivery or a PICKUP
// collection. Method is the instrument (EFECTIVO, TARJETA, TRANSFERENCIA,
// QR), not the order's payment method.
type CaptureInput struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Method  string          `json:"method" binding:"required"`
	Receipt *string         `json:"receipt,omitempty"`
}

// Create opens a sales order in PENDING. CREDIT orders get their invoice in
// the same transaction; stock stays untouched until ship or ready-for-pickup.
func (ss *SalesService) Create(ctx context.Context, req *CreateSalesOrderRequest, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.Create")
	defer span.End()

	var order *models.SalesOrder
	var invoice *models.Invoice
	err := ss.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, invoice, err = ss.CreateTx(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	ss.logger.Info("Sales order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.String("payment_method", order.PaymentMethod))
	if invoice != nil {
		ss.billing.AfterInvoiceIssued(ctx, invoice)
	}
	return order, nil
}

// CreateTx opens a sales order inside the caller's transaction. The
// reservation workflow uses it to spawn the order atomically with the
// reservation's completion. Returns the CREDIT invoice when one was issued;
// the caller owns the post-commit hooks.
func (ss *SalesService) CreateTx(ctx context.Context, tx *sqlx.Tx, req *CreateSalesOrderRequest, actor models.Actor) (*models.SalesOrder, *models.Invoice, error) {
	if err := validateSalesItems(req.Items); err != nil {
		return nil, nil, err
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, nil, apperr.InvalidInput("unknown payment method %q", req.PaymentMethod)
	}
	if err := ss.inventory.checkVariants(ctx, salesVariantIDs(req.Items)); err != nil {
		return nil, nil, err
	}
	warehouseID, err := ss.resolveWarehouse(ctx, req.PickupBranch)
	if err != nil {
		return nil, nil, err
	}
	customer, err := ss.resolveCustomer(ctx, tx, req.Customer, actor)
	if err != nil {
		return nil, nil, err
	}

	order := &models.SalesOrder{
		CustomerID:      customer.ID,
		Status:          models.SalesStatusPending,
		PaymentMethod:   req.PaymentMethod,
		WarehouseID:     warehouseID,
		DeliveryAddress: req.DeliveryAddress,
		PickupBranch:    req.PickupBranch,
		Notes:           req.Notes,
		Items:           toSalesItems(req.Items),
	}
	if actor.UserID > 0 {
		uid := actor.UserID
		order.CreatedBy = &uid
	}
	if err := ss.store.CreateSalesOrderTx(ctx, tx, order); err != nil {
		return nil, nil, err
	}

	// CREDIT invoices at creation; payments accumulate over time.
	var invoice *models.Invoice
	if req.PaymentMethod == models.PaymentMethodCredit {
		invoice, err = ss.issueOrderInvoiceTx(ctx, tx, order, actor)
		if err != nil {
			return nil, nil, err
		}
	}
	return order, invoice, nil
}

// Get retrieves a sales order with items.
func (ss *SalesService) Get(ctx context.Context, id int64) (*models.SalesOrder, error) {
	order, err := ss.store.GetSalesOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("sales order %d not found", id)
	}
	return order, nil
}

// ListByCustomer returns a customer's sales orders, newest first.
func (ss *SalesService) ListByCustomer(ctx context.Context, customerID int64) ([]models.SalesOrder, error) {
	return ss.store.GetSalesOrdersByCustomer(ctx, customerID)
}

// UpdateStatus applies an administrative edge with no side effects beyond
// timestamps (pay, prepare). Edges that move stock or money must go through
// their dedicated operation.
func (ss *SalesService) UpdateStatus(ctx context.Context, id int64, to string, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.UpdateStatus")
	defer span.End()

	switch to {
	case models.SalesStatusPaid, models.SalesStatusPreparing:
	default:
		return nil, apperr.InvalidInput("status %s cannot be set directly", to)
	}

	return ss.transition(ctx, id, to, actor, func(order *models.SalesOrder) error {
		now := time.Now()
		switch to {
		case models.SalesStatusPaid:
			order.PaidAt = &now
		case models.SalesStatusPreparing:
			order.PreparedAt = &now
		}
		return nil
	}, nil)
}

// Ship moves PAID or PREPARING to SHIPPED and consumes stock from the
// order's fulfillment warehouse. PREPAID and COD orders must carry a
// delivery address by the time they ship.
func (ss *SalesService) Ship(ctx context.Context, id int64, courierUserID *int64, address *string, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.Ship")
	defer span.End()

	var moved []models.StockMovement
	order, err := ss.transition(ctx, id, models.SalesStatusShipped, actor, func(order *models.SalesOrder) error {
		if !models.MethodAllowsShipping(order.PaymentMethod) {
			return apperr.InvalidState("%s orders are collected at a branch, not shipped", order.PaymentMethod)
		}
		if address != nil {
			order.DeliveryAddress = address
		}
		if courierUserID != nil {
			order.CourierUserID = courierUserID
		}
		switch order.PaymentMethod {
		case models.PaymentMethodPrepaid, models.PaymentMethodCOD:
			if order.DeliveryAddress == nil || *order.DeliveryAddress == "" {
				return apperr.InvalidInput("delivery address is required to ship a %s order", order.PaymentMethod)
			}
		}
		now := time.Now()
		order.ShippedAt = &now
		return nil
	}, func(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error {
		movements, err := ss.commitStockTx(ctx, tx, order, actor)
		if err != nil {
			return err
		}
		moved = movements
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.inventory.AfterMovements(ctx, moved)
	return order, nil
}

// Deliver moves SHIPPED to DELIVERED. COD orders capture payment here: the
// invoice and the payment are posted atomically with the state change.
func (ss *SalesService) Deliver(ctx context.Context, id int64, recipientName string, notes *string, codPayment *CaptureInput, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.Deliver")
	defer span.End()

	if recipientName == "" {
		return nil, apperr.InvalidInput("recipient name is required")
	}

	var invoice *models.Invoice
	var payment *models.Payment
	order, err := ss.transition(ctx, id, models.SalesStatusDelivered, actor, func(order *models.SalesOrder) error {
		order.RecipientName = &recipientName
		if notes != nil {
			order.Notes = *notes
		}
		now := time.Now()
		order.DeliveredAt = &now
		if order.PaymentMethod == models.PaymentMethodCOD && codPayment == nil {
			return apperr.InvalidInput("COD delivery requires a payment")
		}
		return nil
	}, func(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error {
		invoice, payment = nil, nil
		if order.PaymentMethod != models.PaymentMethodCOD {
			return nil
		}
		var err error
		invoice, payment, err = ss.captureTx(ctx, tx, order, *codPayment, actor)
		if err != nil {
			return err
		}
		now := time.Now()
		order.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.afterCapture(ctx, invoice, payment)
	return order, nil
}

// ReadyForPickup moves PAID or PREPARING to READY_PICKUP and consumes stock
// now, since the goods are set aside for the customer.
func (ss *SalesService) ReadyForPickup(ctx context.Context, id int64, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.ReadyForPickup")
	defer span.End()

	var moved []models.StockMovement
	order, err := ss.transition(ctx, id, models.SalesStatusReadyPickup, actor, func(order *models.SalesOrder) error {
		if !models.MethodAllowsPickup(order.PaymentMethod) {
			return apperr.InvalidState("%s orders are delivered by courier, not picked up", order.PaymentMethod)
		}
		now := time.Now()
		order.PreparedAt = &now
		return nil
	}, func(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error {
		movements, err := ss.commitStockTx(ctx, tx, order, actor)
		if err != nil {
			return err
		}
		moved = movements
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.inventory.AfterMovements(ctx, moved)
	return order, nil
}

// Pickup moves READY_PICKUP to PICKED_UP. PICKUP orders that have not been
// paid yet capture the payment here, posting invoice and payment atomically.
func (ss *SalesService) Pickup(ctx context.Context, id int64, recipientName string, notes *string, pickupPayment *CaptureInput, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.Pickup")
	defer span.End()

	if recipientName == "" {
		return nil, apperr.InvalidInput("recipient name is required")
	}

	var invoice *models.Invoice
	var payment *models.Payment
	order, err := ss.transition(ctx, id, models.SalesStatusPickedUp, actor, func(order *models.SalesOrder) error {
		order.RecipientName = &recipientName
		if notes != nil {
			order.Notes = *notes
		}
		now := time.Now()
		order.DeliveredAt = &now
		return nil
	}, func(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error {
		invoice, payment = nil, nil
		if order.PaymentMethod != models.PaymentMethodPickup {
			return nil
		}
		alreadyPaid, err := ss.store.HasConfirmedPaymentTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if alreadyPaid {
			return nil
		}
		if pickupPayment == nil {
			return apperr.InvalidInput("pickup of an unpaid %s order requires a payment", models.PaymentMethodPickup)
		}
		invoice, payment, err = ss.captureTx(ctx, tx, order, *pickupPayment, actor)
		if err != nil {
			return err
		}
		now := time.Now()
		order.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.afterCapture(ctx, invoice, payment)
	return order, nil
}

// Cancel moves any non-terminal state to CANCELLED, restocking the items if
// stock had been committed. Cancelling an already terminal order returns it
// unchanged.
func (ss *SalesService) Cancel(ctx context.Context, id int64, reason string, actor models.Actor) (*models.SalesOrder, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.Cancel")
	defer span.End()

	var order *models.SalesOrder
	var from string
	var moved []models.StockMovement
	err := ss.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		moved = moved[:0]
		var err error
		order, err = ss.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if models.IsTerminalSalesStatus(from) {
			return nil
		}

		order.Status = models.SalesStatusCancelled
		if reason != "" {
			order.CancelReason = &reason
		}
		if order.StockCommitted {
			entries, err := orderEntryItems(order)
			if err != nil {
				return err
			}
			moved, err = ss.inventory.ProduceTx(ctx, tx, order.WarehouseID, entries, actor.UserID, "sales_cancel")
			if err != nil {
				return err
			}
			order.StockCommitted = false
		}
		return ss.store.UpdateSalesOrderTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	if models.IsTerminalSalesStatus(from) {
		return order, nil
	}

	ss.inventory.AfterMovements(ctx, moved)
	ss.afterTransition(ctx, order, from)
	return order, nil
}

// commitStockTx consumes the order's coalesced lines from its fulfillment
// warehouse and marks the stock committed. All lines consume or none.
// Quantities pinned by open reservations stay untouchable: each line is
// checked against availability, under the same locks, before consuming.
func (ss *SalesService) commitStockTx(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder, actor models.Actor) ([]models.StockMovement, error) {
	if order.StockCommitted {
		return nil, nil
	}
	items, err := orderMoveItems(order)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		avail, err := ss.inventory.AvailabilityTx(ctx, tx, item.VariantID)
		if err != nil {
			return nil, err
		}
		if item.Quantity.GreaterThan(avail.Available) {
			util.StockOperationsFailed.WithLabelValues("insufficient_availability").Inc()
			return nil, apperr.InsufficientAvailability(item.VariantID, item.Quantity.Sub(avail.Available))
		}
	}
	moved, err := ss.inventory.ConsumeTx(ctx, tx, order.WarehouseID, items, actor.UserID, "sales_fulfill")
	if err != nil {
		return nil, err
	}
	order.StockCommitted = true
	return moved, nil
}

// captureTx posts the deferred payment: issues the order's invoice and
// records the payment in the caller's transaction. The amount must cover the
// order total; any excess stays on the single payment row as overpayment.
func (ss *SalesService) captureTx(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder, capture CaptureInput, actor models.Actor) (*models.Invoice, *models.Payment, error) {
	if !validPaymentInstrument(capture.Method) {
		return nil, nil, apperr.InvalidInput("unknown payment instrument %q", capture.Method)
	}
	total := order.Total().Round(2)
	if capture.Amount.LessThan(total) {
		return nil, nil, apperr.InvalidInput("payment %s does not cover order total %s", capture.Amount.StringFixed(2), total.StringFixed(2))
	}

	invoice, err := ss.issueOrderInvoiceTx(ctx, tx, order, actor)
	if err != nil {
		return nil, nil, err
	}
	payment, err := ss.billing.RecordPaymentTx(ctx, tx, &RecordPaymentRequest{
		CustomerID:   order.CustomerID,
		InvoiceID:    &invoice.ID,
		SalesOrderID: &order.ID,
		Amount:       capture.Amount,
		Method:       capture.Method,
		Receipt:      capture.Receipt,
	}, actor)
	if err != nil {
		return nil, nil, err
	}
	return invoice, payment, nil
}

// issueOrderInvoiceTx issues the invoice for an order's lines.
func (ss *SalesService) issueOrderInvoiceTx(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder, actor models.Actor) (*models.Invoice, error) {
	variants, err := ss.store.GetVariantsByIDs(ctx, orderVariantIDs(order))
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(variants))
	for _, v := range variants {
		names[v.ID] = v.Name
	}

	lines := make([]InvoiceLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, InvoiceLine{
			VariantID: item.VariantID,
			Detail:    names[item.VariantID],
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
		})
	}
	return ss.billing.IssueInvoiceTx(ctx, tx, &IssueInvoiceRequest{
		CustomerID:   order.CustomerID,
		SalesOrderID: &order.ID,
		Lines:        lines,
	}, actor)
}

// resolveCustomer finds the order's customer by id or case-folded email,
// creating one on first contact by email.
func (ss *SalesService) resolveCustomer(ctx context.Context, tx *sqlx.Tx, ref CustomerRef, actor models.Actor) (*models.Customer, error) {
	if ref.CustomerID != nil {
		customer, err := ss.store.GetCustomerTx(ctx, tx, *ref.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, apperr.NotFound("customer %d not found", *ref.CustomerID)
		}
		return customer, nil
	}

	if ref.Email == nil || *ref.Email == "" {
		return nil, apperr.InvalidInput("customer id or email is required")
	}
	email := models.NormalizeEmail(*ref.Email)
	customer, err := ss.store.GetCustomerByEmailTx(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		return customer, nil
	}

	if ref.Name == "" {
		return nil, apperr.InvalidInput("customer name is required to create a customer from email")
	}
	customer = &models.Customer{
		Name:  ref.Name,
		TaxID: ref.TaxID,
		Email: &email,
	}
	if actor.UserID > 0 {
		uid := actor.UserID
		customer.UserID = &uid
	}
	if err := ss.store.CreateCustomerTx(ctx, tx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// resolveWarehouse picks the fulfillment warehouse: the pickup branch's
// warehouse for pickup orders, otherwise the configured default.
func (ss *SalesService) resolveWarehouse(ctx context.Context, pickupBranch *string) (int64, error) {
	if pickupBranch != nil && *pickupBranch != "" {
		wh, err := ss.store.GetWarehouseByBranch(ctx, *pickupBranch)
		if err != nil {
			return 0, err
		}
		if wh == nil {
			return 0, apperr.NotFound("no warehouse for branch %q", *pickupBranch)
		}
		return wh.ID, nil
	}
	if err := ss.inventory.checkWarehouse(ctx, ss.defaultWarehouse); err != nil {
		return 0, err
	}
	return ss.defaultWarehouse, nil
}

// transition locks the order, validates the edge, applies mutate, runs extra
// for stock/money side effects, persists, and publishes after commit.
func (ss *SalesService) transition(ctx context.Context, id int64, to string, actor models.Actor,
	mutate func(order *models.SalesOrder) error,
	extra func(ctx context.Context, tx *sqlx.Tx, order *models.SalesOrder) error) (*models.SalesOrder, error) {

	var order *models.SalesOrder
	var from string
	err := ss.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = ss.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if !models.CanTransitionSales(from, to) {
			return apperr.InvalidState("sales order %d cannot go from %s to %s", id, from, to)
		}
		order.Status = to
		if err := mutate(order); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(ctx, tx, order); err != nil {
				return err
			}
		}
		return ss.store.UpdateSalesOrderTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	ss.afterTransition(ctx, order, from)
	return order, nil
}

func (ss *SalesService) lockOrder(ctx context.Context, tx *sqlx.Tx, id int64) (*models.SalesOrder, error) {
	order, err := ss.store.GetSalesOrderForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("sales order %d not found", id)
	}
	return order, nil
}

func (ss *SalesService) afterTransition(ctx context.Context, order *models.SalesOrder, from string) {
	util.SalesTransitionsTotal.WithLabelValues(order.Status).Inc()
	ss.logger.Info("Sales order transitioned",
		zap.Int64("order_id", order.ID),
		zap.String("from", from),
		zap.String("to", order.Status))
	if ss.eventPublisher != nil {
		if err := ss.eventPublisher.PublishSalesStatus(ctx, order, from); err != nil {
			ss.logger.Error("Failed to publish SalesOrderStatusChanged event", zap.Error(err))
		}
	}
}

func (ss *SalesService) afterCapture(ctx context.Context, invoice *models.Invoice, payment *models.Payment) {
	if invoice != nil {
		ss.billing.AfterInvoiceIssued(ctx, invoice)
	}
	if payment != nil {
		ss.billing.AfterPaymentRecorded(ctx, payment)
	}
}

func validPaymentInstrument(method string) bool {
	switch method {
	case models.PaymentInstrumentCash, models.PaymentInstrumentCard,
		models.PaymentInstrumentTransfer, models.PaymentInstrumentQR:
		return true
	}
	return false
}

func validateSalesItems(items []SalesItemInput) error {
	if len(items) == 0 {
		return apperr.InvalidInput("items must not be empty")
	}
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return apperr.InvalidInput("quantity must be positive for variant %d", item.VariantID)
		}
		if item.UnitPrice.IsNegative() || item.Discount.IsNegative() {
			return apperr.InvalidInput("negative amounts are not allowed for variant %d", item.VariantID)
		}
	}
	return nil
}

func salesVariantIDs(items []SalesItemInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	return ids
}

func orderVariantIDs(order *models.SalesOrder) []int64 {
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.VariantID)
	}
	return ids
}

func toSalesItems(items []SalesItemInput) []models.SalesOrderItem {
	out := make([]models.SalesOrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.SalesOrderItem{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
		})
	}
	return out
}

// orderMoveItems converts the order lines to coalesced, lock-ordered
// consumption lines.
func orderMoveItems(order *models.SalesOrder) ([]MoveItem, error) {
	items := make([]MoveItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, MoveItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return CoalesceMoveItems(items)
}

// orderEntryItems converts the order lines to coalesced restock lines. No
// unit cost: a restock keeps the moving average untouched.
func orderEntryItems(order *models.SalesOrder) ([]EntryItem, error) {
	moveItems, err := orderMoveItems(order)
	if err != nil {
		return nil, err
	}
	entries := make([]EntryItem, 0, len(moveItems))
	for _, item := range moveItems {
		entries = append(entries, EntryItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return entries, nil
}
