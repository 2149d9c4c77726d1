package service

import (
	"context"
	"sort"
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

// InventoryService is the stock engine. It is the sole writer of
// stock_balances and stock_movements: every balance change pairs with an
// append-only ledger entry inside one transaction.
type InventoryService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store *store.Store, eventPublisher *broker.EventPublisher) *InventoryService {
	return &InventoryService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// EntryItem is one credited line of a stock entry.
type EntryItem struct {
	VariantID int64            `json:"variant_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

// MoveItem is one line of a transfer or consumption.
type MoveItem struct {
	VariantID int64           `json:"variant_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// AdjustItem sets an absolute quantity for one balance.
type AdjustItem struct {
	VariantID   int64           `json:"variant_id" binding:"required"`
	WarehouseID int64           `json:"warehouse_id" binding:"required"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
}

// RegisterEntry credits stock into a warehouse, updating the moving-average
// cost for lines that carry a unit cost.
func (is *InventoryService) RegisterEntry(ctx context.Context, warehouseID int64, items []EntryItem, actor models.Actor, reason string) ([]models.StockBalance, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.RegisterEntry")
	defer span.End()

	if err := validateEntryItems(items); err != nil {
		util.StockOperationsFailed.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	if err := is.checkWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	if err := is.checkVariants(ctx, entryVariantIDs(items)); err != nil {
		return nil, err
	}

	var balances []models.StockBalance
	var moved []models.StockMovement
	err := is.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		balances = balances[:0]
		moved = moved[:0]
		for _, item := range items {
			balance, movement, err := is.creditTx(ctx, tx, warehouseID, item, actor.UserID, reason)
			if err != nil {
				return err
			}
			balances = append(balances, *balance)
			moved = append(moved, *movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	is.afterMovements(ctx, moved)
	return balances, nil
}

// Transfer moves stock between two warehouses. All lines commit or none;
// the destination inherits the source moving-average cost.
func (is *InventoryService) Transfer(ctx context.Context, sourceID, destID int64, items []MoveItem, actor models.Actor, reason string) (*models.StockTransfer, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Transfer")
	defer span.End()

	if sourceID == destID {
		return nil, apperr.InvalidInput("source and destination warehouses must differ")
	}
	coalesced, err := CoalesceMoveItems(items)
	if err != nil {
		util.StockOperationsFailed.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	if err := is.checkWarehouse(ctx, sourceID); err != nil {
		return nil, err
	}
	if err := is.checkWarehouse(ctx, destID); err != nil {
		return nil, err
	}
	if err := is.checkVariants(ctx, moveVariantIDs(coalesced)); err != nil {
		return nil, err
	}

	transfer := &models.StockTransfer{
		SourceID:      sourceID,
		DestinationID: destID,
		Reason:        reason,
		ActorID:       actor.UserID,
	}
	var moved []models.StockMovement
	err = is.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		moved = moved[:0]
		transfer.Items = transfer.Items[:0]
		for _, item := range coalesced {
			source, outMove, err := is.debitTx(ctx, tx, sourceID, item, actor.UserID, reason)
			if err != nil {
				return err
			}

			credit := EntryItem{VariantID: item.VariantID, Quantity: item.Quantity, UnitCost: &source.AvgCost}
			_, inMove, err := is.creditTx(ctx, tx, destID, credit, actor.UserID, reason)
			if err != nil {
				return err
			}

			moved = append(moved, *outMove, *inMove)
			transfer.Items = append(transfer.Items, models.StockTransferItem{
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
		}
		return is.store.CreateTransferTx(ctx, tx, transfer)
	})
	if err != nil {
		return nil, err
	}

	is.afterMovements(ctx, moved)
	return transfer, nil
}

// Adjust sets absolute quantities, recording before/after per balance. The
// moving-average cost is left untouched.
func (is *InventoryService) Adjust(ctx context.Context, items []AdjustItem, actor models.Actor, reason string) (*models.StockAdjustment, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Adjust")
	defer span.End()

	if len(items) == 0 {
		return nil, apperr.InvalidInput("adjustment items must not be empty")
	}
	for _, item := range items {
		if item.NewQuantity.IsNegative() {
			return nil, apperr.InvalidInput("new quantity must not be negative for variant %d", item.VariantID)
		}
	}

	adj := &models.StockAdjustment{Reason: reason, ActorID: actor.UserID}
	var moved []models.StockMovement
	err := is.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		moved = moved[:0]
		adj.Items = adj.Items[:0]
		for _, item := range items {
			balance, err := is.store.GetBalanceForUpdateTx(ctx, tx, item.VariantID, item.WarehouseID)
			if err != nil {
				return err
			}
			if balance == nil {
				balance = &models.StockBalance{
					VariantID:   item.VariantID,
					WarehouseID: item.WarehouseID,
					Quantity:    decimal.Zero,
					AvgCost:     decimal.Zero,
				}
				if err := is.store.CreateBalanceTx(ctx, tx, balance); err != nil {
					return err
				}
			}

			before := balance.Quantity
			delta := item.NewQuantity.Sub(before)
			if delta.IsZero() {
				adj.Items = append(adj.Items, models.StockAdjustmentItem{
					VariantID: item.VariantID, WarehouseID: item.WarehouseID,
					QtyBefore: before, QtyAfter: item.NewQuantity,
				})
				continue
			}

			kind := models.MovementIn
			if delta.IsNegative() {
				kind = models.MovementOut
			}
			movement := &models.StockMovement{
				VariantID:   item.VariantID,
				WarehouseID: item.WarehouseID,
				Kind:        kind,
				Quantity:    delta.Abs(),
				Reason:      reason,
				ActorID:     actor.UserID,
			}
			if err := is.store.InsertMovementTx(ctx, tx, movement); err != nil {
				return err
			}

			balance.Quantity = item.NewQuantity
			if err := is.store.UpdateBalanceTx(ctx, tx, balance); err != nil {
				return err
			}

			moved = append(moved, *movement)
			adj.Items = append(adj.Items, models.StockAdjustmentItem{
				VariantID: item.VariantID, WarehouseID: item.WarehouseID,
				QtyBefore: before, QtyAfter: item.NewQuantity,
			})
		}
		return is.store.CreateAdjustmentTx(ctx, tx, adj)
	})
	if err != nil {
		return nil, err
	}

	is.afterMovements(ctx, moved)
	return adj, nil
}

// ConsumeTx debits stock inside the caller's transaction. Used by the sales
// workflow at ship/ready-for-pickup so state change and stock commit share
// one transaction.
func (is *InventoryService) ConsumeTx(ctx context.Context, tx *sqlx.Tx, warehouseID int64, items []MoveItem, actorID int64, reason string) ([]models.StockMovement, error) {
	coalesced, err := CoalesceMoveItems(items)
	if err != nil {
		return nil, err
	}

	moved := make([]models.StockMovement, 0, len(coalesced))
	for _, item := range coalesced {
		_, movement, err := is.debitTx(ctx, tx, warehouseID, item, actorID, reason)
		if err != nil {
			return nil, err
		}
		moved = append(moved, *movement)
	}
	return moved, nil
}

// ProduceTx credits stock inside the caller's transaction. Used by the
// purchase workflow at receive and by sales cancellation restock.
func (is *InventoryService) ProduceTx(ctx context.Context, tx *sqlx.Tx, warehouseID int64, items []EntryItem, actorID int64, reason string) ([]models.StockMovement, error) {
	if err := validateEntryItems(items); err != nil {
		return nil, err
	}

	moved := make([]models.StockMovement, 0, len(items))
	for _, item := range items {
		_, movement, err := is.creditTx(ctx, tx, warehouseID, item, actorID, reason)
		if err != nil {
			return nil, err
		}
		moved = append(moved, *movement)
	}
	return moved, nil
}

// Availability reports per-warehouse stock, the quantity pinned by open
// reservations, and the net available quantity for a variant.
func (is *InventoryService) Availability(ctx context.Context, variantID int64) (*models.VariantAvailability, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Availability")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockCheckLatency.Observe(time.Since(start).Seconds())
	}()

	if err := is.checkVariants(ctx, []int64{variantID}); err != nil {
		return nil, err
	}

	var availability *models.VariantAvailability
	err := is.store.RunTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		availability, err = is.AvailabilityTx(ctx, tx, variantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return availability, nil
}

// AvailabilityTx computes availability inside the caller's transaction,
// locking the stock and reservation rows of the variant. The reservation
// workflow relies on those locks to prevent oversell under concurrent
// checkout.
func (is *InventoryService) AvailabilityTx(ctx context.Context, tx *sqlx.Tx, variantID int64) (*models.VariantAvailability, error) {
	balances, err := is.store.GetBalancesByVariantTx(ctx, tx, variantID)
	if err != nil {
		return nil, err
	}

	availability := &models.VariantAvailability{
		VariantID:   variantID,
		TotalOnHand: decimal.Zero,
	}
	for _, b := range balances {
		availability.PerWarehouse = append(availability.PerWarehouse, models.WarehouseStock{
			WarehouseID: b.WarehouseID,
			Quantity:    b.Quantity,
		})
		availability.TotalOnHand = availability.TotalOnHand.Add(b.Quantity)
	}

	pinned, err := is.store.SumPinnedByVariantTx(ctx, tx, variantID)
	if err != nil {
		return nil, err
	}
	availability.Pinned = pinned
	availability.Available = availability.TotalOnHand.Sub(pinned)
	return availability, nil
}

// creditTx locks (or creates) a balance, adds the quantity, recomputes the
// moving-average cost when a unit cost is supplied, and appends the IN
// ledger entry.
func (is *InventoryService) creditTx(ctx context.Context, tx *sqlx.Tx, warehouseID int64, item EntryItem, actorID int64, reason string) (*models.StockBalance, *models.StockMovement, error) {
	balance, err := is.store.GetBalanceForUpdateTx(ctx, tx, item.VariantID, warehouseID)
	if err != nil {
		return nil, nil, err
	}
	if balance == nil {
		balance = &models.StockBalance{
			VariantID:   item.VariantID,
			WarehouseID: warehouseID,
			Quantity:    decimal.Zero,
			AvgCost:     decimal.Zero,
		}
		if err := is.store.CreateBalanceTx(ctx, tx, balance); err != nil {
			return nil, nil, err
		}
	}

	if item.UnitCost != nil {
		balance.AvgCost = movingAverage(balance.Quantity, balance.AvgCost, item.Quantity, *item.UnitCost)
	}
	balance.Quantity = balance.Quantity.Add(item.Quantity)
	if err := is.store.UpdateBalanceTx(ctx, tx, balance); err != nil {
		return nil, nil, err
	}

	movement := &models.StockMovement{
		VariantID:   item.VariantID,
		WarehouseID: warehouseID,
		Kind:        models.MovementIn,
		Quantity:    item.Quantity,
		Reason:      reason,
		ActorID:     actorID,
	}
	if err := is.store.InsertMovementTx(ctx, tx, movement); err != nil {
		return nil, nil, err
	}
	return balance, movement, nil
}

// debitTx locks a balance, requires sufficient quantity, subtracts, and
// appends the OUT ledger entry. A missing balance row fails as a zero
// balance would.
func (is *InventoryService) debitTx(ctx context.Context, tx *sqlx.Tx, warehouseID int64, item MoveItem, actorID int64, reason string) (*models.StockBalance, *models.StockMovement, error) {
	balance, err := is.store.GetBalanceForUpdateTx(ctx, tx, item.VariantID, warehouseID)
	if err != nil {
		return nil, nil, err
	}
	if balance == nil {
		util.StockOperationsFailed.WithLabelValues("insufficient_stock").Inc()
		return nil, nil, apperr.InsufficientStock(item.VariantID, item.Quantity)
	}
	if balance.Quantity.LessThan(item.Quantity) {
		util.StockOperationsFailed.WithLabelValues("insufficient_stock").Inc()
		return nil, nil, apperr.InsufficientStock(item.VariantID, item.Quantity.Sub(balance.Quantity))
	}

	balance.Quantity = balance.Quantity.Sub(item.Quantity)
	if err := is.store.UpdateBalanceTx(ctx, tx, balance); err != nil {
		return nil, nil, err
	}

	movement := &models.StockMovement{
		VariantID:   item.VariantID,
		WarehouseID: warehouseID,
		Kind:        models.MovementOut,
		Quantity:    item.Quantity,
		Reason:      reason,
		ActorID:     actorID,
	}
	if err := is.store.InsertMovementTx(ctx, tx, movement); err != nil {
		return nil, nil, err
	}
	return balance, movement, nil
}

// Movements returns a variant's recent ledger entries, newest first.
func (is *InventoryService) Movements(ctx context.Context, variantID int64, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if err := is.checkVariants(ctx, []int64{variantID}); err != nil {
		return nil, err
	}
	return is.store.GetMovementsByVariant(ctx, variantID, limit)
}

// afterMovements records metrics and publishes ledger events after commit.
// Publishing failures are logged, never propagated.
func (is *InventoryService) afterMovements(ctx context.Context, moved []models.StockMovement) {
	for _, m := range moved {
		util.StockMovementsTotal.WithLabelValues(m.Kind, m.Reason).Inc()
		if is.eventPublisher == nil {
			continue
		}
		if err := is.eventPublisher.PublishStockMoved(ctx, &m); err != nil {
			is.logger.Error("Failed to publish StockMoved event",
				zap.Int64("variant_id", m.VariantID),
				zap.Error(err))
		}
	}
}

// AfterMovements is the post-commit hook exposed to the workflows that move
// stock inside their own transactions.
func (is *InventoryService) AfterMovements(ctx context.Context, moved []models.StockMovement) {
	is.afterMovements(ctx, moved)
}

func (is *InventoryService) checkWarehouse(ctx context.Context, id int64) error {
	wh, err := is.store.GetWarehouse(ctx, id)
	if err != nil {
		return err
	}
	if wh == nil {
		return apperr.NotFound("warehouse %d not found", id)
	}
	return nil
}

func (is *InventoryService) checkVariants(ctx context.Context, ids []int64) error {
	variants, err := is.store.GetVariantsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(variants) == len(ids) {
		return nil
	}

	found := make(map[int64]bool, len(variants))
	for _, v := range variants {
		found[v.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return apperr.NotFound("variant %d not found", id)
		}
	}
	return nil
}

// CoalesceMoveItems merges duplicate variant lines (quantities summed) and
// orders the result by variant id so concurrent operations lock balances in
// the same order. Rejects non-positive quantities.
func CoalesceMoveItems(items []MoveItem) ([]MoveItem, error) {
	if len(items) == 0 {
		return nil, apperr.InvalidInput("items must not be empty")
	}

	byVariant := make(map[int64]decimal.Decimal, len(items))
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, apperr.InvalidInput("quantity must be positive for variant %d", item.VariantID)
		}
		byVariant[item.VariantID] = byVariant[item.VariantID].Add(item.Quantity)
	}

	coalesced := make([]MoveItem, 0, len(byVariant))
	for variantID, qty := range byVariant {
		coalesced = append(coalesced, MoveItem{VariantID: variantID, Quantity: qty})
	}
	sort.Slice(coalesced, func(i, j int) bool {
		return coalesced[i].VariantID < coalesced[j].VariantID
	})
	return coalesced, nil
}

func validateEntryItems(items []EntryItem) error {
	if len(items) == 0 {
		return apperr.InvalidInput("items must not be empty")
	}
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return apperr.InvalidInput("quantity must be positive for variant %d", item.VariantID)
		}
		if item.UnitCost != nil && item.UnitCost.IsNegative() {
			return apperr.InvalidInput("unit cost must not be negative for variant %d", item.VariantID)
		}
	}
	return nil
}

// movingAverage recomputes the weighted average cost after crediting qty at
// unitCost. A zero prior quantity takes the incoming cost directly.
func movingAverage(oldQty, oldCost, qty, unitCost decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(qty)
	if oldQty.IsZero() || newQty.IsZero() {
		return unitCost
	}
	total := oldQty.Mul(oldCost).Add(qty.Mul(unitCost))
	return total.DivRound(newQty, 4)
}

func entryVariantIDs(items []EntryItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.VariantID
	}
	return ids
}

func moveVariantIDs(items []MoveItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.VariantID
	}
	return ids
}
