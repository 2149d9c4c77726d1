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

// ReservationService drives the reservation lifecycle. A reservation in
// PENDING, DEPOSITED or CONFIRMED pins its quantities against availability;
// completing hands the items over to a freshly spawned sales order.
type ReservationService struct {
	store          *store.Store
	inventory      *InventoryService
	sales          *SalesService
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewReservationService creates a new reservation service
func NewReservationService(store *store.Store, inventory *InventoryService, sales *SalesService, eventPublisher *broker.EventPublisher) *ReservationService {
	return &ReservationService{
		store:          store,
		inventory:      inventory,
		sales:          sales,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ReservationItemInput is one requested line on a reservation.
type ReservationItemInput struct {
	VariantID int64           `json:"variant_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// Create opens a reservation in PENDING after checking, under lock, that
// every requested line fits inside the variant's available quantity
// (on-hand minus already pinned reservations).
func (rs *ReservationService) Create(ctx context.Context, customerID int64, items []ReservationItemInput, reserveAt *time.Time, notes string, actor models.Actor) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Create")
	defer span.End()

	coalesced, err := coalesceReservationItems(items)
	if err != nil {
		return nil, err
	}
	if err := rs.inventory.checkVariants(ctx, reservationVariantIDs(coalesced)); err != nil {
		return nil, err
	}
	customer, err := rs.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperr.NotFound("customer %d not found", customerID)
	}

	reservation := &models.Reservation{
		CustomerID: customerID,
		Status:     models.ReservationStatusPending,
		ReserveAt:  reserveAt,
		Notes:      notes,
		CreatedBy:  actor.UserID,
		Items:      coalesced,
	}
	err = rs.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		// The availability read locks the stock balances and the pinned
		// reservation headers, so concurrent creates serialize here and
		// cannot jointly oversell.
		for _, item := range coalesced {
			avail, err := rs.inventory.AvailabilityTx(ctx, tx, item.VariantID)
			if err != nil {
				return err
			}
			if item.Quantity.GreaterThan(avail.Available) {
				util.StockOperationsFailed.WithLabelValues("insufficient_availability").Inc()
				return apperr.InsufficientAvailability(item.VariantID, item.Quantity.Sub(avail.Available))
			}
		}
		return rs.store.CreateReservationTx(ctx, tx, reservation)
	})
	if err != nil {
		return nil, err
	}

	rs.logger.Info("Reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("customer_id", customerID))
	return reservation, nil
}

// Get retrieves a reservation with its items.
func (rs *ReservationService) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := rs.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("reservation %d not found", id)
	}
	return r, nil
}

// ListByCustomer returns a customer's reservations, newest first.
func (rs *ReservationService) ListByCustomer(ctx context.Context, customerID int64) ([]models.Reservation, error) {
	return rs.store.GetReservationsByCustomer(ctx, customerID)
}

// Deposit records the customer's deposit and moves PENDING to DEPOSITED.
func (rs *ReservationService) Deposit(ctx context.Context, id int64, amount decimal.Decimal, method string, receipt *string, actor models.Actor) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Deposit")
	defer span.End()

	if !amount.IsPositive() {
		return nil, apperr.InvalidInput("deposit amount must be positive")
	}
	if !validPaymentInstrument(method) {
		return nil, apperr.InvalidInput("unknown payment instrument %q", method)
	}

	return rs.transition(ctx, id, models.ReservationStatusDeposited, actor, func(r *models.Reservation) error {
		now := time.Now()
		r.DepositAmount = &amount
		r.DepositMethod = &method
		r.DepositReceipt = receipt
		r.DepositedAt = &now
		return nil
	}, nil)
}

// Confirm moves DEPOSITED to CONFIRMED, optionally scheduling a reminder
// timestamp. The reminder is observable data only; nothing in the core
// acts on it.
func (rs *ReservationService) Confirm(ctx context.Context, id int64, reminderAt *time.Time, actor models.Actor) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Confirm")
	defer span.End()

	return rs.transition(ctx, id, models.ReservationStatusConfirmed, actor, func(r *models.Reservation) error {
		now := time.Now()
		r.ConfirmedAt = &now
		r.ReminderAt = reminderAt
		return nil
	}, nil)
}

// Complete moves CONFIRMED to COMPLETED, spawning a sales order for the
// reservation's customer and items in the same transaction. Stock stays
// untouched until the sales order ships or goes ready-for-pickup; the pin
// is released by leaving the pinned states.
func (rs *ReservationService) Complete(ctx context.Context, id int64, paymentMethod string, deliveryAddress, pickupBranch *string, actor models.Actor) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Complete")
	defer span.End()

	var spawned *models.SalesOrder
	var invoice *models.Invoice
	r, err := rs.transition(ctx, id, models.ReservationStatusCompleted, actor, nil,
		func(ctx context.Context, tx *sqlx.Tx, r *models.Reservation) error {
			variants, err := rs.store.GetVariantsByIDs(ctx, reservationVariantIDs(r.Items))
			if err != nil {
				return err
			}
			prices := make(map[int64]decimal.Decimal, len(variants))
			for _, v := range variants {
				if v.UnitPrice != nil {
					prices[v.ID] = *v.UnitPrice
				}
			}

			items := make([]SalesItemInput, 0, len(r.Items))
			for _, item := range r.Items {
				items = append(items, SalesItemInput{
					VariantID: item.VariantID,
					Quantity:  item.Quantity,
					UnitPrice: prices[item.VariantID],
				})
			}
			spawned, invoice, err = rs.sales.CreateTx(ctx, tx, &CreateSalesOrderRequest{
				Customer:        CustomerRef{CustomerID: &r.CustomerID},
				Items:           items,
				PaymentMethod:   paymentMethod,
				DeliveryAddress: deliveryAddress,
				PickupBranch:    pickupBranch,
			}, actor)
			if err != nil {
				return err
			}
			r.SalesOrderID = &spawned.ID
			return nil
		})
	if err != nil {
		return nil, err
	}

	rs.logger.Info("Reservation completed",
		zap.Int64("reservation_id", id),
		zap.Int64("sales_order_id", *r.SalesOrderID))
	if invoice != nil {
		rs.sales.billing.AfterInvoiceIssued(ctx, invoice)
	}
	return r, nil
}

// Cancel moves any pinned state to CANCELLED, releasing the pin.
func (rs *ReservationService) Cancel(ctx context.Context, id int64, reason *string, actor models.Actor) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Cancel")
	defer span.End()

	return rs.transition(ctx, id, models.ReservationStatusCancelled, actor, func(r *models.Reservation) error {
		r.CancelReason = reason
		return nil
	}, nil)
}

// transition locks the reservation, validates the edge, applies mutate and
// extra, persists, and publishes the status event after commit.
func (rs *ReservationService) transition(ctx context.Context, id int64, to string, actor models.Actor,
	mutate func(r *models.Reservation) error,
	extra func(ctx context.Context, tx *sqlx.Tx, r *models.Reservation) error) (*models.Reservation, error) {

	var r *models.Reservation
	var from string
	err := rs.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		r, err = rs.store.GetReservationForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return apperr.NotFound("reservation %d not found", id)
		}
		from = r.Status
		if !models.CanTransitionReservation(from, to) {
			return apperr.InvalidState("reservation %d cannot go from %s to %s", id, from, to)
		}
		r.Status = to
		if mutate != nil {
			if err := mutate(r); err != nil {
				return err
			}
		}
		if extra != nil {
			if err := extra(ctx, tx, r); err != nil {
				return err
			}
		}
		return rs.store.UpdateReservationTx(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}

	util.ReservationTransitionsTotal.WithLabelValues(to).Inc()
	rs.logger.Info("Reservation transitioned",
		zap.Int64("reservation_id", id),
		zap.String("from", from),
		zap.String("to", to))
	if rs.eventPublisher != nil {
		if err := rs.eventPublisher.PublishReservationStatus(ctx, r, from); err != nil {
			rs.logger.Error("Failed to publish ReservationStatusChanged event", zap.Error(err))
		}
	}
	return r, nil
}

func reservationVariantIDs(items []models.ReservationItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	return ids
}

// coalesceReservationItems merges duplicate variant lines and orders them by
// variant id so availability checks lock balances in a stable order.
func coalesceReservationItems(items []ReservationItemInput) ([]models.ReservationItem, error) {
	moveItems := make([]MoveItem, 0, len(items))
	for _, item := range items {
		moveItems = append(moveItems, MoveItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	coalesced, err := CoalesceMoveItems(moveItems)
	if err != nil {
		return nil, err
	}
	out := make([]models.ReservationItem, 0, len(coalesced))
	for _, item := range coalesced {
		out = append(out, models.ReservationItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return out, nil
}
