package worker

import (
	"context"
	"log"
	"time"

	"erp-service/internal/broker"
	"erp-service/internal/models"
	"erp-service/internal/redisclient"
	"erp-service/internal/service"
	"erp-service/internal/store"
)

// availabilityTTL bounds staleness if an invalidation event is lost.
const availabilityTTL = 10 * time.Minute

// ProjectionWorker rebuilds the Redis availability read model from stock
// events. Postgres stays authoritative; the projection only serves reads.
type ProjectionWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	inventory    *service.InventoryService
	cache        *redisclient.Client
}

// NewProjectionWorker creates a new projection worker
func NewProjectionWorker(
	consumer *broker.Consumer,
	inventory *service.InventoryService,
	cache *redisclient.Client,
) *ProjectionWorker {
	w := &ProjectionWorker{
		consumer:  consumer,
		inventory: inventory,
		cache:     cache,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockMoved(w.handleStockMoved)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ProjectionWorker) Start(ctx context.Context) error {
	log.Println("Starting stock projection worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ProjectionWorker) Stop() error {
	log.Println("Stopping stock projection worker...")
	return w.consumer.Close()
}

// handleStockMoved recomputes the moved variant's availability from the
// database and replaces the cached summary.
func (w *ProjectionWorker) handleStockMoved(ctx context.Context, event *models.StockMovedEvent) error {
	avail, err := w.inventory.Availability(ctx, event.VariantID)
	if err != nil {
		log.Printf("Failed to rebuild availability for variant %d: %v", event.VariantID, err)
		return err
	}

	if err := w.cache.SetAvailability(ctx, avail, availabilityTTL); err != nil {
		log.Printf("Failed to cache availability for variant %d: %v", event.VariantID, err)
		return err
	}
	return nil
}

// CleanupWorker purges expired idempotency records on a fixed interval.
type CleanupWorker struct {
	store    *store.Store
	interval time.Duration
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(store *store.Store, interval time.Duration) *CleanupWorker {
	return &CleanupWorker{store: store, interval: interval}
}

// Start starts the cleanup loop
func (cw *CleanupWorker) Start(ctx context.Context) error {
	log.Println("Starting idempotency cleanup worker...")

	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup worker context cancelled, stopping...")
			return ctx.Err()
		case <-ticker.C:
			purged, err := cw.store.PurgeExpiredIdempotencyRecords(ctx)
			if err != nil {
				log.Printf("Failed to purge idempotency records: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("Purged %d expired idempotency records", purged)
			}
		}
	}
}
