package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"erp-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events. Events are published
// after the owning transaction commits; a publish failure never rolls the
// transaction back.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishStockMoved publishes one StockMoved event per committed movement,
// keyed by variant so per-variant ordering is preserved.
func (ep *EventPublisher) PublishStockMoved(ctx context.Context, movement *models.StockMovement) error {
	event := &models.StockMovedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeStockMoved),
		VariantID:   movement.VariantID,
		WarehouseID: movement.WarehouseID,
		Kind:        movement.Kind,
		Quantity:    movement.Quantity,
		Reason:      movement.Reason,
	}
	key := fmt.Sprintf("variant-%d", movement.VariantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPurchaseStatus publishes PurchaseOrderStatusChanged
func (ep *EventPublisher) PublishPurchaseStatus(ctx context.Context, order *models.PurchaseOrder, from string) error {
	event := &models.PurchaseStatusEvent{
		BaseEvent:  newBaseEvent(models.EventTypePurchaseStatus),
		OrderID:    order.ID,
		SupplierID: order.SupplierID,
		FromStatus: from,
		ToStatus:   order.Status,
	}
	key := fmt.Sprintf("purchase-%d", order.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSalesStatus publishes SalesOrderStatusChanged
func (ep *EventPublisher) PublishSalesStatus(ctx context.Context, order *models.SalesOrder, from string) error {
	event := &models.SalesStatusEvent{
		BaseEvent:  newBaseEvent(models.EventTypeSalesStatus),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		FromStatus: from,
		ToStatus:   order.Status,
	}
	key := fmt.Sprintf("sales-%d", order.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReservationStatus publishes ReservationStatusChanged
func (ep *EventPublisher) PublishReservationStatus(ctx context.Context, r *models.Reservation, from string) error {
	event := &models.ReservationStatusEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationStatus),
		ReservationID: r.ID,
		CustomerID:    r.CustomerID,
		FromStatus:    from,
		ToStatus:      r.Status,
	}
	key := fmt.Sprintf("reservation-%d", r.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInvoiceIssued publishes InvoiceIssued
func (ep *EventPublisher) PublishInvoiceIssued(ctx context.Context, invoice *models.Invoice) error {
	event := &models.InvoiceIssuedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeInvoiceIssued),
		InvoiceID:  invoice.ID,
		Number:     invoice.Number,
		CustomerID: invoice.CustomerID,
		Total:      invoice.Total,
	}
	key := fmt.Sprintf("invoice-%d", invoice.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentRecorded publishes PaymentRecorded
func (ep *EventPublisher) PublishPaymentRecorded(ctx context.Context, payment *models.Payment) error {
	event := &models.PaymentRecordedEvent{
		BaseEvent:  newBaseEvent(models.EventTypePaymentRecorded),
		PaymentID:  payment.ID,
		CustomerID: payment.CustomerID,
		InvoiceID:  payment.InvoiceID,
		Amount:     payment.Amount,
		Method:     payment.Method,
	}
	key := fmt.Sprintf("payment-%d", payment.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks.
type EventHandler struct {
	onStockMoved func(context.Context, *models.StockMovedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockMoved registers a handler for StockMoved events
func (eh *EventHandler) OnStockMoved(handler func(context.Context, *models.StockMovedEvent) error) {
	eh.onStockMoved = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeStockMoved:
		if eh.onStockMoved != nil {
			var event models.StockMovedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockMoved event: %w", err)
			}
			return eh.onStockMoved(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
