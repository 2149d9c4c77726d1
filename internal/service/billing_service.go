package service

import (
	"context"
	"fmt"
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

// BillingService issues invoices and posts payments. It is the sole emitter
// of invoice numbers.
type BillingService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	taxRate        decimal.Decimal
	logger         *zap.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(store *store.Store, eventPublisher *broker.EventPublisher, taxRate decimal.Decimal) *BillingService {
	return &BillingService{
		store:          store,
		eventPublisher: eventPublisher,
		taxRate:        taxRate,
		logger:         util.GetLogger(),
	}
}

// InvoiceLine is one billed line of an invoice request.
type InvoiceLine struct {
	VariantID int64           `json:"variant_id"`
	Detail    string          `json:"detail"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// IssueInvoiceRequest carries the fields needed to issue an invoice.
type IssueInvoiceRequest struct {
	CustomerID   int64         `json:"customer_id" binding:"required"`
	SalesOrderID *int64        `json:"sales_order_id,omitempty"`
	Lines        []InvoiceLine `json:"lines" binding:"required,min=1"`
	TaxID        string        `json:"tax_id,omitempty"`
	LegalName    string        `json:"legal_name,omitempty"`
	DueAt        *time.Time    `json:"due_at,omitempty"`
}

// FormatInvoiceNumber renders a sequence number as FAC-NNNNNN.
func FormatInvoiceNumber(seq int64) string {
	return fmt.Sprintf("FAC-%06d", seq)
}

// ComputeInvoiceTotals derives the header amounts from the lines. Each line
// subtotal is qty·unit price − discount; the header subtotal already nets
// line discounts, so the total is subtotal + tax. The discount column is
// informational and does not subtract again. Money rounds half away from
// zero to two decimals.
func ComputeInvoiceTotals(lines []InvoiceLine, taxRate decimal.Decimal) (items []models.InvoiceItem, subtotal, discount, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	discount = decimal.Zero
	items = make([]models.InvoiceItem, 0, len(lines))

	for _, line := range lines {
		lineSubtotal := line.Quantity.Mul(line.UnitPrice).Sub(line.Discount).Round(2)
		items = append(items, models.InvoiceItem{
			VariantID: line.VariantID,
			Detail:    line.Detail,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
			Subtotal:  lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
		discount = discount.Add(line.Discount)
	}

	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Add(tax).Round(2)
	return items, subtotal, discount, tax, total
}

// IssueInvoiceTx issues an invoice inside the caller's transaction. The
// sequence read serializes number allocation; numbers are strictly
// increasing among issued invoices.
func (bs *BillingService) IssueInvoiceTx(ctx context.Context, tx *sqlx.Tx, req *IssueInvoiceRequest, actor models.Actor) (*models.Invoice, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.InvalidInput("invoice lines must not be empty")
	}
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return nil, apperr.InvalidInput("quantity must be positive for variant %d", line.VariantID)
		}
		if line.UnitPrice.IsNegative() || line.Discount.IsNegative() {
			return nil, apperr.InvalidInput("negative amounts are not allowed for variant %d", line.VariantID)
		}
	}

	customer, err := bs.store.GetCustomerTx(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperr.NotFound("customer %d not found", req.CustomerID)
	}

	taxID := req.TaxID
	if taxID == "" {
		taxID = customer.TaxID
	}
	legalName := req.LegalName
	if legalName == "" {
		legalName = customer.Name
	}

	seq, err := bs.store.NextInvoiceSeqTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	items, subtotal, discount, tax, total := ComputeInvoiceTotals(req.Lines, bs.taxRate)
	invoice := &models.Invoice{
		Number:       FormatInvoiceNumber(seq),
		Seq:          seq,
		SalesOrderID: req.SalesOrderID,
		CustomerID:   req.CustomerID,
		TaxID:        taxID,
		LegalName:    legalName,
		DueAt:        req.DueAt,
		Subtotal:     subtotal,
		Discount:     discount,
		Tax:          tax,
		Total:        total,
		Status:       models.InvoiceStatusIssued,
		CreatedBy:    actor.UserID,
		Items:        items,
	}
	if err := bs.store.CreateInvoiceTx(ctx, tx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// IssueInvoice issues a standalone invoice in its own transaction.
func (bs *BillingService) IssueInvoice(ctx context.Context, req *IssueInvoiceRequest, actor models.Actor) (*models.Invoice, error) {
	ctx, span := util.StartSpan(ctx, "BillingService.IssueInvoice")
	defer span.End()

	var invoice *models.Invoice
	err := bs.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		invoice, err = bs.IssueInvoiceTx(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	bs.AfterInvoiceIssued(ctx, invoice)
	return invoice, nil
}

// RecordPaymentRequest carries the fields needed to post a payment.
type RecordPaymentRequest struct {
	CustomerID   int64           `json:"customer_id" binding:"required"`
	InvoiceID    *int64          `json:"invoice_id,omitempty"`
	SalesOrderID *int64          `json:"sales_order_id,omitempty"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Method       string          `json:"method" binding:"required"`
	Receipt      *string         `json:"receipt,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	Status       string          `json:"status,omitempty"`
}

// RecordPaymentTx posts a payment inside the caller's transaction. State
// defaults to CONFIRMED. Posting never changes invoice state.
func (bs *BillingService) RecordPaymentTx(ctx context.Context, tx *sqlx.Tx, req *RecordPaymentRequest, actor models.Actor) (*models.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.InvalidInput("payment amount must be positive")
	}
	if req.Method == "" {
		return nil, apperr.InvalidInput("payment method is required")
	}

	status := req.Status
	if status == "" {
		status = models.PaymentStatusConfirmed
	}
	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	payment := &models.Payment{
		CustomerID:   req.CustomerID,
		InvoiceID:    req.InvoiceID,
		SalesOrderID: req.SalesOrderID,
		Amount:       req.Amount,
		Method:       req.Method,
		Receipt:      req.Receipt,
		PaidAt:       paidAt,
		Status:       status,
		CreatedBy:    actor.UserID,
	}
	if err := bs.store.CreatePaymentTx(ctx, tx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// RecordPayment posts a standalone payment in its own transaction.
func (bs *BillingService) RecordPayment(ctx context.Context, req *RecordPaymentRequest, actor models.Actor) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "BillingService.RecordPayment")
	defer span.End()

	customer, err := bs.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperr.NotFound("customer %d not found", req.CustomerID)
	}

	var payment *models.Payment
	err = bs.store.RunTxRetry(ctx, func(tx *sqlx.Tx) error {
		var err error
		payment, err = bs.RecordPaymentTx(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	bs.AfterPaymentRecorded(ctx, payment)
	return payment, nil
}

// PaymentsByInvoice returns the payments posted against an invoice.
func (bs *BillingService) PaymentsByInvoice(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	return bs.store.GetPaymentsByInvoice(ctx, invoiceID)
}

// TotalPaid sums the confirmed payments against an invoice.
func (bs *BillingService) TotalPaid(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	return bs.store.TotalPaid(ctx, invoiceID)
}

// GetInvoice retrieves an invoice with items.
func (bs *BillingService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	invoice, err := bs.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperr.NotFound("invoice %d not found", id)
	}
	return invoice, nil
}

// AfterInvoiceIssued records metrics and publishes the issued event after
// the owning transaction commits.
func (bs *BillingService) AfterInvoiceIssued(ctx context.Context, invoice *models.Invoice) {
	util.InvoicesIssuedTotal.Inc()
	bs.logger.Info("Invoice issued",
		zap.String("number", invoice.Number),
		zap.Int64("customer_id", invoice.CustomerID),
		zap.String("total", invoice.Total.String()))

	if bs.eventPublisher == nil {
		return
	}
	if err := bs.eventPublisher.PublishInvoiceIssued(ctx, invoice); err != nil {
		bs.logger.Error("Failed to publish InvoiceIssued event", zap.Error(err))
	}
}

// AfterPaymentRecorded records metrics and publishes the payment event after
// the owning transaction commits.
func (bs *BillingService) AfterPaymentRecorded(ctx context.Context, payment *models.Payment) {
	util.PaymentsRecordedTotal.WithLabelValues(payment.Method).Inc()

	if bs.eventPublisher == nil {
		return
	}
	if err := bs.eventPublisher.PublishPaymentRecorded(ctx, payment); err != nil {
		bs.logger.Error("Failed to publish PaymentRecorded event", zap.Error(err))
	}
}
