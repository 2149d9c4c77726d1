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

// PurchaseService drives the purchase-order state machine. Receiving credits
// stock through the inventory engine in the same transaction as the state
// change.
type PurchaseService struct {
	store              *store.Store
	inventory          *InventoryService
	eventPublisher     *broker.EventPublisher
	receivingWarehouse int64
	logger             *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(store *store.Store, inventory *InventoryService, eventPublisher *broker.EventPublisher, receivingWarehouse int64) *PurchaseService {
	return &PurchaseService{
		store:              store,
		inventory:          inventory,
		eventPublisher:     eventPublisher,
		receivingWarehouse: receivingWarehouse,
		logger:             util.GetLogger(),
	}
}

// PurchaseItemInput is one requested line on a purchase order.
type PurchaseItemInput struct {
	VariantID int64            `json:"variant_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Create opens a new purchase order in BORRADOR.
func (ps *PurchaseService) Create(ctx context.Context, supplierID int64, items []PurchaseItemInput, actor models.Actor, notes string) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Create")
	defer span.End()

	if err := validatePurchaseItems(items); err != nil {
		return nil, err
	}

	supplier, err := ps.store.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, apperr.NotFound("supplier %d not found", supplierID)
	}
	if !supplier.Active {
		return nil, apperr.InvalidInput("supplier %d is inactive", supplierID)
	}
	if err := ps.inventory.checkVariants(ctx, purchaseVariantIDs(items)); err != nil {
		return nil, err
	}

	order := &models.PurchaseOrder{
		SupplierID: supplierID,
		Status:     models.PurchaseStatusDraft,
		Notes:      notes,
		CreatedBy:  actor.UserID,
		Items:      toPurchaseItems(items),
	}
	err = ps.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		return ps.store.CreatePurchaseOrderTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	ps.logger.Info("Purchase order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("supplier_id", supplierID))
	return order, nil
}

// Get retrieves a purchase order with its items. Legacy stored states are
// normalized on read.
func (ps *PurchaseService) Get(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	order, err := ps.store.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("purchase order %d not found", id)
	}
	order.Status, _ = models.NormalizePurchaseStatus(order.Status)
	return order, nil
}

// ListBySupplier returns a supplier's purchase orders, states normalized.
func (ps *PurchaseService) ListBySupplier(ctx context.Context, supplierID int64) ([]models.PurchaseOrder, error) {
	orders, err := ps.store.GetPurchaseOrdersBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Status, _ = models.NormalizePurchaseStatus(orders[i].Status)
	}
	return orders, nil
}

// UpdateDraft edits an order still in BORRADOR. Items, supplier and notes
// may change; nothing else is editable after the order leaves draft.
func (ps *PurchaseService) UpdateDraft(ctx context.Context, id int64, supplierID *int64, items []PurchaseItemInput, notes *string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.UpdateDraft")
	defer span.End()

	if items != nil {
		if err := validatePurchaseItems(items); err != nil {
			return nil, err
		}
		if err := ps.inventory.checkVariants(ctx, purchaseVariantIDs(items)); err != nil {
			return nil, err
		}
	}
	if supplierID != nil {
		supplier, err := ps.store.GetSupplier(ctx, *supplierID)
		if err != nil {
			return nil, err
		}
		if supplier == nil {
			return nil, apperr.NotFound("supplier %d not found", *supplierID)
		}
	}

	var order *models.PurchaseOrder
	err := ps.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = ps.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status != models.PurchaseStatusDraft {
			return apperr.InvalidState("purchase order %d is %s, only %s is editable", id, order.Status, models.PurchaseStatusDraft)
		}
		if supplierID != nil {
			order.SupplierID = *supplierID
		}
		if notes != nil {
			order.Notes = *notes
		}
		if items != nil {
			order.Items = toPurchaseItems(items)
			if err := ps.store.ReplacePurchaseItemsTx(ctx, tx, order.ID, order.Items); err != nil {
				return err
			}
		}
		return ps.store.UpdatePurchaseOrderTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Send moves BORRADOR to ENVIADO. The order needs at least one item.
func (ps *PurchaseService) Send(ctx context.Context, id int64, notes *string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Send")
	defer span.End()

	return ps.transition(ctx, id, models.PurchaseStatusSent, actor, func(order *models.PurchaseOrder) error {
		if len(order.Items) == 0 {
			return apperr.InvalidInput("purchase order %d has no items", id)
		}
		now := time.Now()
		order.SentAt = &now
		if notes != nil {
			order.Notes = *notes
		}
		return nil
	}, nil)
}

// Confirm moves ENVIADO to CONFIRMADO. The supplier may replace items with
// its own quantities and prices.
func (ps *PurchaseService) Confirm(ctx context.Context, id int64, items []PurchaseItemInput, notes *string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Confirm")
	defer span.End()

	if items != nil {
		if err := validatePurchaseItems(items); err != nil {
			return nil, err
		}
		if err := ps.inventory.checkVariants(ctx, purchaseVariantIDs(items)); err != nil {
			return nil, err
		}
	}

	return ps.transition(ctx, id, models.PurchaseStatusConfirmed, actor, func(order *models.PurchaseOrder) error {
		now := time.Now()
		order.ConfirmedAt = &now
		if notes != nil {
			order.Notes = *notes
		}
		if items != nil {
			order.Items = toPurchaseItems(items)
		}
		return nil
	}, func(ctx context.Context, tx *sqlx.Tx, order *models.PurchaseOrder) error {
		if items == nil {
			return nil
		}
		return ps.store.ReplacePurchaseItemsTx(ctx, tx, order.ID, order.Items)
	})
}

// Reject moves ENVIADO to RECHAZADO and stores the reason.
func (ps *PurchaseService) Reject(ctx context.Context, id int64, reason string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Reject")
	defer span.End()

	if reason == "" {
		return nil, apperr.InvalidInput("reject reason is required")
	}
	return ps.transition(ctx, id, models.PurchaseStatusRejected, actor, func(order *models.PurchaseOrder) error {
		order.RejectReason = &reason
		return nil
	}, nil)
}

// Receive moves CONFIRMADO (or ENVIADO, for suppliers that skip the
// confirmation step) to RECIBIDO. Items are replaced with what actually
// arrived and every line with a positive quantity is credited into the
// receiving warehouse in the same transaction. Any stock failure aborts the
// whole receive.
func (ps *PurchaseService) Receive(ctx context.Context, id int64, items []PurchaseItemInput, notes *string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Receive")
	defer span.End()

	if len(items) == 0 {
		return nil, apperr.InvalidInput("received items must not be empty")
	}
	for _, item := range items {
		if item.Quantity.IsNegative() {
			return nil, apperr.InvalidInput("received quantity must not be negative for variant %d", item.VariantID)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return nil, apperr.InvalidInput("unit price must not be negative for variant %d", item.VariantID)
		}
	}
	if err := ps.inventory.checkVariants(ctx, purchaseVariantIDs(items)); err != nil {
		return nil, err
	}
	if err := ps.inventory.checkWarehouse(ctx, ps.receivingWarehouse); err != nil {
		return nil, err
	}

	var moved []models.StockMovement
	order, err := ps.transition(ctx, id, models.PurchaseStatusReceived, actor, func(order *models.PurchaseOrder) error {
		now := time.Now()
		order.ReceivedAt = &now
		if notes != nil {
			order.Notes = *notes
		}
		order.Items = toPurchaseItems(items)
		return nil
	}, func(ctx context.Context, tx *sqlx.Tx, order *models.PurchaseOrder) error {
		moved = moved[:0]
		if err := ps.store.ReplacePurchaseItemsTx(ctx, tx, order.ID, order.Items); err != nil {
			return err
		}
		entries := make([]EntryItem, 0, len(items))
		for _, item := range items {
			if !item.Quantity.IsPositive() {
				continue
			}
			entries = append(entries, EntryItem{
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				UnitCost:  item.UnitPrice,
			})
		}
		if len(entries) == 0 {
			return nil
		}
		movements, err := ps.inventory.ProduceTx(ctx, tx, ps.receivingWarehouse, entries, actor.UserID, "purchase_receive")
		if err != nil {
			return err
		}
		moved = movements
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.inventory.AfterMovements(ctx, moved)
	return order, nil
}

// Invoice moves RECIBIDO to FACTURADO and records the supplier's invoice
// number.
func (ps *PurchaseService) Invoice(ctx context.Context, id int64, supplierInvoiceNo string, notes *string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Invoice")
	defer span.End()

	if supplierInvoiceNo == "" {
		return nil, apperr.InvalidInput("supplier invoice number is required")
	}
	return ps.transition(ctx, id, models.PurchaseStatusInvoiced, actor, func(order *models.PurchaseOrder) error {
		now := time.Now()
		order.InvoicedAt = &now
		order.SupplierInvoiceNo = &supplierInvoiceNo
		if notes != nil {
			order.Notes = *notes
		}
		return nil
	}, nil)
}

// Close moves FACTURADO to CERRADO.
func (ps *PurchaseService) Close(ctx context.Context, id int64, notes *string, actor models.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Close")
	defer span.End()

	return ps.transition(ctx, id, models.PurchaseStatusClosed, actor, func(order *models.PurchaseOrder) error {
		now := time.Now()
		order.ClosedAt = &now
		if notes != nil {
			order.Notes = *notes
		}
		return nil
	}, nil)
}

// transition locks the order, validates the edge, applies mutate on the
// header, runs extra (if any) for item/stock side effects, persists, and
// publishes the status event after commit. Legacy stored states are
// normalized before the edge check, so the first mutation rewrites them in
// canonical form.
func (ps *PurchaseService) transition(ctx context.Context, id int64, to string, actor models.Actor,
	mutate func(order *models.PurchaseOrder) error,
	extra func(ctx context.Context, tx *sqlx.Tx, order *models.PurchaseOrder) error) (*models.PurchaseOrder, error) {

	var order *models.PurchaseOrder
	var from string
	err := ps.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = ps.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if !models.CanTransitionPurchase(from, to) {
			return apperr.InvalidState("purchase order %d cannot go from %s to %s", id, from, to)
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
		return ps.store.UpdatePurchaseOrderTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	util.PurchaseTransitionsTotal.WithLabelValues(to).Inc()
	ps.logger.Info("Purchase order transitioned",
		zap.Int64("order_id", id),
		zap.String("from", from),
		zap.String("to", to))
	if ps.eventPublisher != nil {
		if err := ps.eventPublisher.PublishPurchaseStatus(ctx, order, from); err != nil {
			ps.logger.Error("Failed to publish PurchaseOrderStatusChanged event", zap.Error(err))
		}
	}
	return order, nil
}

// lockOrder fetches the order FOR UPDATE and normalizes a legacy state.
func (ps *PurchaseService) lockOrder(ctx context.Context, tx *sqlx.Tx, id int64) (*models.PurchaseOrder, error) {
	order, err := ps.store.GetPurchaseOrderForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("purchase order %d not found", id)
	}
	if canonical, legacy := models.NormalizePurchaseStatus(order.Status); legacy {
		order.Status = canonical
	}
	return order, nil
}

func validatePurchaseItems(items []PurchaseItemInput) error {
	if len(items) == 0 {
		return apperr.InvalidInput("items must not be empty")
	}
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return apperr.InvalidInput("quantity must be positive for variant %d", item.VariantID)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return apperr.InvalidInput("unit price must not be negative for variant %d", item.VariantID)
		}
	}
	return nil
}

func purchaseVariantIDs(items []PurchaseItemInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	return ids
}

func toPurchaseItems(items []PurchaseItemInput) []models.PurchaseOrderItem {
	out := make([]models.PurchaseOrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.PurchaseOrderItem{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}
