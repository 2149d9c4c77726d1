package api

import (
	"net/http"
	"strconv"
	"time"

	"erp-service/internal/apperr"
	"erp-service/internal/idempotency"
	"erp-service/internal/models"
	"erp-service/internal/redisclient"
	"erp-service/internal/service"
	"erp-service/internal/store"
	"erp-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	inventory    *service.InventoryService
	purchases    *service.PurchaseService
	sales        *service.SalesService
	reservations *service.ReservationService
	billing      *service.BillingService
	cache        *redisclient.Client
	idemStore    *store.Store
	idemTTL      time.Duration
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler. cache may be nil; availability
// reads then always hit the database.
func NewHandler(
	inventory *service.InventoryService,
	purchases *service.PurchaseService,
	sales *service.SalesService,
	reservations *service.ReservationService,
	billing *service.BillingService,
	cache *redisclient.Client,
	idemStore *store.Store,
	idemTTL time.Duration,
) *Handler {
	return &Handler{
		inventory:    inventory,
		purchases:    purchases,
		sales:        sales,
		reservations: reservations,
		billing:      billing,
		cache:        cache,
		idemStore:    idemStore,
		idemTTL:      idemTTL,
		logger:       util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(idempotency.Middleware(h.idemStore, h.idemTTL))
	{
		v1.POST("/stock/entries", h.registerEntry)
		v1.POST("/stock/transfers", h.transferStock)
		v1.POST("/stock/adjustments", h.adjustStock)
		v1.GET("/stock/availability/:variantId", h.getAvailability)
		v1.GET("/stock/movements/:variantId", h.getMovements)

		v1.POST("/purchases", h.createPurchase)
		v1.GET("/purchases/:id", h.getPurchase)
		v1.PUT("/purchases/:id", h.updatePurchaseDraft)
		v1.POST("/purchases/:id/send", h.sendPurchase)
		v1.POST("/purchases/:id/confirm", h.confirmPurchase)
		v1.POST("/purchases/:id/reject", h.rejectPurchase)
		v1.POST("/purchases/:id/receive", h.receivePurchase)
		v1.POST("/purchases/:id/invoice", h.invoicePurchase)
		v1.POST("/purchases/:id/close", h.closePurchase)
		v1.GET("/suppliers/:id/purchases", h.listSupplierPurchases)

		v1.POST("/sales", h.createSalesOrder)
		v1.GET("/sales/:id", h.getSalesOrder)
		v1.POST("/sales/:id/status", h.updateSalesStatus)
		v1.POST("/sales/:id/ship", h.shipSalesOrder)
		v1.POST("/sales/:id/deliver", h.deliverSalesOrder)
		v1.POST("/sales/:id/ready", h.readySalesOrder)
		v1.POST("/sales/:id/pickup", h.pickupSalesOrder)
		v1.POST("/sales/:id/cancel", h.cancelSalesOrder)
		v1.GET("/customers/:id/sales", h.listCustomerSales)

		v1.POST("/reservations", h.createReservation)
		v1.GET("/reservations/:id", h.getReservation)
		v1.POST("/reservations/:id/deposit", h.depositReservation)
		v1.POST("/reservations/:id/confirm", h.confirmReservation)
		v1.POST("/reservations/:id/complete", h.completeReservation)
		v1.POST("/reservations/:id/cancel", h.cancelReservation)
		v1.GET("/customers/:id/reservations", h.listCustomerReservations)

		v1.POST("/invoices", h.issueInvoice)
		v1.GET("/invoices/:id", h.getInvoice)
		v1.GET("/invoices/:id/payments", h.listInvoicePayments)
		v1.POST("/payments", h.recordPayment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError translates a domain error into an HTTP error envelope.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{
		"error": err.Error(),
		"kind":  string(apperr.KindOf(err)),
	}
	if e, ok := apperr.AsError(err); ok {
		if e.VariantID != 0 {
			body["variant_id"] = e.VariantID
			body["shortfall"] = e.Shortfall
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// actorFrom extracts the acting user from headers. Token verification is an
// upstream concern; the gateway forwards the resolved user id.
func actorFrom(c *gin.Context) models.Actor {
	userID, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	return models.Actor{UserID: userID}
}

// ---- inventory ----

type registerEntryRequest struct {
	WarehouseID int64               `json:"warehouse_id" binding:"required"`
	Items       []service.EntryItem `json:"items" binding:"required,min=1"`
	Reason      string              `json:"reason"`
}

func (h *Handler) registerEntry(c *gin.Context) {
	var req registerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	balances, err := h.inventory.RegisterEntry(c.Request.Context(), req.WarehouseID, req.Items, actorFrom(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"balances": balances})
}

type transferRequest struct {
	SourceWarehouseID int64              `json:"source_warehouse_id" binding:"required"`
	DestWarehouseID   int64              `json:"dest_warehouse_id" binding:"required"`
	Items             []service.MoveItem `json:"items" binding:"required,min=1"`
	Reason            string             `json:"reason"`
}

func (h *Handler) transferStock(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	transfer, err := h.inventory.Transfer(c.Request.Context(), req.SourceWarehouseID, req.DestWarehouseID, req.Items, actorFrom(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transfer)
}

type adjustRequest struct {
	Items  []service.AdjustItem `json:"items" binding:"required,min=1"`
	Reason string               `json:"reason"`
}

func (h *Handler) adjustStock(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	adjustment, err := h.inventory.Adjust(c.Request.Context(), req.Items, actorFrom(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adjustment)
}

// getAvailability serves the cached summary when fresh, falling back to the
// authoritative database computation on a miss.
func (h *Handler) getAvailability(c *gin.Context) {
	variantID, ok := pathID(c, "variantId")
	if !ok {
		return
	}

	if h.cache != nil {
		if avail, err := h.cache.GetAvailability(c.Request.Context(), variantID); err == nil && avail != nil {
			c.JSON(http.StatusOK, avail)
			return
		}
	}

	avail, err := h.inventory.Availability(c.Request.Context(), variantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *Handler) getMovements(c *gin.Context) {
	variantID, ok := pathID(c, "variantId")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	movements, err := h.inventory.Movements(c.Request.Context(), variantID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

// ---- purchases ----

type createPurchaseRequest struct {
	SupplierID int64                       `json:"supplier_id" binding:"required"`
	Items      []service.PurchaseItemInput `json:"items" binding:"required,min=1"`
	Notes      string                      `json:"notes"`
}

func (h *Handler) createPurchase(c *gin.Context) {
	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Create(c.Request.Context(), req.SupplierID, req.Items, actorFrom(c), req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) getPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.purchases.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updatePurchaseRequest struct {
	SupplierID *int64                      `json:"supplier_id,omitempty"`
	Items      []service.PurchaseItemInput `json:"items,omitempty"`
	Notes      *string                     `json:"notes,omitempty"`
}

func (h *Handler) updatePurchaseDraft(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.UpdateDraft(c.Request.Context(), id, req.SupplierID, req.Items, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type notesRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func (h *Handler) sendPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Send(c.Request.Context(), id, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type confirmPurchaseRequest struct {
	Items []service.PurchaseItemInput `json:"items,omitempty"`
	Notes *string                     `json:"notes,omitempty"`
}

func (h *Handler) confirmPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req confirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Confirm(c.Request.Context(), id, req.Items, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type rejectPurchaseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) rejectPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rejectPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Reject(c.Request.Context(), id, req.Reason, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type receivePurchaseRequest struct {
	Items []service.PurchaseItemInput `json:"items" binding:"required,min=1"`
	Notes *string                     `json:"notes,omitempty"`
}

func (h *Handler) receivePurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req receivePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Receive(c.Request.Context(), id, req.Items, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type invoicePurchaseRequest struct {
	SupplierInvoiceNo string  `json:"supplier_invoice_no" binding:"required"`
	Notes             *string `json:"notes,omitempty"`
}

func (h *Handler) invoicePurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req invoicePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Invoice(c.Request.Context(), id, req.SupplierInvoiceNo, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) closePurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.purchases.Close(c.Request.Context(), id, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listSupplierPurchases(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	orders, err := h.purchases.ListBySupplier(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ---- sales ----

func (h *Handler) createSalesOrder(c *gin.Context) {
	var req service.CreateSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.sales.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) getSalesOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.sales.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateSalesStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateSalesStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateSalesStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.sales.UpdateStatus(c.Request.Context(), id, req.Status, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type shipRequest struct {
	CourierUserID *int64  `json:"courier_user_id,omitempty"`
	Address       *string `json:"address,omitempty"`
}

func (h *Handler) shipSalesOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.sales.Ship(c.Request.Context(), id, req.CourierUserID, req.Address, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type deliverRequest struct {
	RecipientName string                `json:"recipient_name" binding:"required"`
	Notes         *string               `json:"notes,omitempty"`
	Payment       *service.CaptureInput `json:"payment,omitempty"`
}

func (h *Handler) deliverSalesOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.sales.Deliver(c.Request.Context(), id, req.RecipientName, req.Notes, req.Payment, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) readySalesOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.sales.ReadyForPickup(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) pickupSalesOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.sales.Pickup(c.Request.Context(), id, req.RecipientName, req.Notes, req.Payment, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelSalesOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.sales.Cancel(c.Request.Context(), id, req.Reason, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listCustomerSales(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	orders, err := h.sales.ListByCustomer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ---- reservations ----

type createReservationRequest struct {
	CustomerID int64                          `json:"customer_id" binding:"required"`
	Items      []service.ReservationItemInput `json:"items" binding:"required,min=1"`
	ReserveAt  *time.Time                     `json:"reserve_at,omitempty"`
	Notes      string                         `json:"notes"`
}

func (h *Handler) createReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	r, err := h.reservations.Create(c.Request.Context(), req.CustomerID, req.Items, req.ReserveAt, req.Notes, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) getReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.reservations.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type depositRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Method  string          `json:"method" binding:"required"`
	Receipt *string         `json:"receipt,omitempty"`
}

func (h *Handler) depositReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	r, err := h.reservations.Deposit(c.Request.Context(), id, req.Amount, req.Method, req.Receipt, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type confirmReservationRequest struct {
	ReminderAt *time.Time `json:"reminder_at,omitempty"`
}

func (h *Handler) confirmReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req confirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	r, err := h.reservations.Confirm(c.Request.Context(), id, req.ReminderAt, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type completeReservationRequest struct {
	PaymentMethod   string  `json:"payment_method" binding:"required"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	PickupBranch    *string `json:"pickup_branch,omitempty"`
}

func (h *Handler) completeReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req completeReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	r, err := h.reservations.Complete(c.Request.Context(), id, req.PaymentMethod, req.DeliveryAddress, req.PickupBranch, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type cancelReservationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (h *Handler) cancelReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	r, err := h.reservations.Cancel(c.Request.Context(), id, req.Reason, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) listCustomerReservations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reservations, err := h.reservations.ListByCustomer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// ---- billing ----

func (h *Handler) issueInvoice(c *gin.Context) {
	var req service.IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	invoice, err := h.billing.IssueInvoice(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.billing.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) listInvoicePayments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payments, err := h.billing.PaymentsByInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	total, err := h.billing.TotalPaid(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "total_paid": total})
}

func (h *Handler) recordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.billing.RecordPayment(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
