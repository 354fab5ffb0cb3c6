package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"invoiceapi/internal/logger"
	"invoiceapi/internal/metrics"
	"invoiceapi/internal/model"
	"invoiceapi/internal/notification"
	"invoiceapi/internal/payment"
	"invoiceapi/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// numberAttempts bounds how many random invoice numbers are tried before
// giving up and letting the unique index reject a collision.
const numberAttempts = 5

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) (bool, error)
	CreatePaymentLink(ctx context.Context, id string) (payment.LinkResult, error)
	SendInvoice(ctx context.Context, id string) (notification.Result, error)
	SendPaymentReminder(ctx context.Context, id string) (notification.Result, error)
	HandlePaymentWebhook(ctx context.Context, event payment.WebhookEvent) error
	ListPayments(ctx context.Context, invoiceID string) ([]model.Payment, bool, error)
}

type Option func(*invoiceService)

func WithPublisher(publisher EventPublisher) Option {
	return func(s *invoiceService) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *invoiceService) { s.metrics = m }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *invoiceService) { s.now = now }
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	email       notification.EmailSender
	sms         notification.SMSSender
	gateway     payment.Gateway
	publisher   EventPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	email notification.EmailSender,
	sms notification.SMSSender,
	gateway payment.Gateway,
	opts ...Option,
) InvoiceService {
	s := &invoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		email:       email,
		sms:         sms,
		gateway:     gateway,
		publisher:   NopPublisher{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*model.Invoice, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkAmounts(req.LineItems, req.TaxRate); err != nil {
		return nil, err
	}

	invoiceNumber, err := s.generateInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	now := s.clock()
	invoice := &model.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: invoiceNumber,
		Client:        toClient(req.Client),
		LineItems:     toLineItems(req.LineItems),
		Status:        model.InvoiceStatusDraft,
		IssueDate:     now,
		DueDate:       req.DueDate.UTC(),
		Notes:         req.Notes,
		CreatedAt:     now,
	}
	if req.TaxRate != nil {
		invoice.TaxRate = *req.TaxRate
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.metrics.RecordInvoiceCreated()
	logger.FromContext(ctx).Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.Total().StringFixed(2)),
	)
	s.publish(ctx, EventInvoiceCreated, invoice)
	return invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*model.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	repoFilter := repository.InvoiceListFilter{
		FromDate:    filter.FromDate,
		ToDate:      filter.ToDate,
		ClientEmail: filter.ClientEmail,
		Skip:        filter.Skip,
		Take:        filter.Take,
	}
	if filter.Status != "" {
		status, ok := model.ParseInvoiceStatus(filter.Status)
		if !ok {
			return nil, &ValidationError{Field: "status", Message: "is not a known invoice status"}
		}
		repoFilter.Status = &status
	}

	invoices, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	return invoices, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (*model.Invoice, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkAmounts(req.LineItems, req.TaxRate); err != nil {
		return nil, err
	}
	var status model.InvoiceStatus
	if req.Status != nil {
		parsed, ok := model.ParseInvoiceStatus(*req.Status)
		if !ok {
			return nil, &ValidationError{Field: "status", Message: "is not a known invoice status"}
		}
		status = parsed
	}

	invoice, err := s.GetInvoice(ctx, id)
	if err != nil || invoice == nil {
		return nil, err
	}

	previous := invoice.Status
	if req.Client != nil {
		invoice.Client = toClient(*req.Client)
	}
	if req.LineItems != nil {
		invoice.LineItems = toLineItems(req.LineItems)
	}
	if req.TaxRate != nil {
		invoice.TaxRate = *req.TaxRate
	}
	if req.DueDate != nil {
		invoice.DueDate = req.DueDate.UTC()
	}
	if req.Status != nil {
		invoice.Status = status
	}
	if req.Notes != nil {
		invoice.Notes = req.Notes
	}
	invoice.Touch(s.clock())

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	if invoice.Status != previous {
		s.metrics.RecordStatusTransition(string(invoice.Status))
		logger.FromContext(ctx).Info("invoice status overwritten",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(invoice.Status)),
		)
	}
	s.publish(ctx, EventInvoiceUpdated, invoice)
	return invoice, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) (bool, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	deleted, err := s.invoiceRepo.Delete(ctx, invoiceID)
	if err != nil {
		return false, fmt.Errorf("failed to delete invoice: %w", err)
	}
	if deleted {
		logger.FromContext(ctx).Info("invoice deleted", zap.String("invoice_id", id))
		s.publisher.Publish(ctx, InvoiceEvent{Type: EventInvoiceDeleted, InvoiceID: invoiceID.String(), OccurredAt: s.clock()})
	}
	return deleted, nil
}

func (s *invoiceService) CreatePaymentLink(ctx context.Context, id string) (payment.LinkResult, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return payment.LinkResult{}, err
	}
	if invoice == nil {
		return payment.LinkFailure(MsgInvoiceNotFound), nil
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return payment.LinkFailure(MsgInvoiceAlreadyPaid), nil
	}

	result := s.gateway.CreatePaymentLink(ctx, invoice)
	s.metrics.RecordPaymentLink(result.Success)
	if !result.Success {
		logger.FromContext(ctx).Warn("payment link not created",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("reason", result.ErrorMessage),
		)
		return result, nil
	}

	linkID, linkURL := result.PaymentLinkID, result.PaymentLinkURL
	invoice.PaymentLinkID = &linkID
	invoice.PaymentLinkURL = &linkURL
	invoice.Touch(s.clock())
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return payment.LinkResult{}, fmt.Errorf("failed to store payment link: %w", err)
	}

	s.publish(ctx, EventInvoicePaymentLinkCreated, invoice)
	return result, nil
}

func (s *invoiceService) SendInvoice(ctx context.Context, id string) (notification.Result, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return notification.Result{}, err
	}
	if invoice == nil {
		return notification.Failure(MsgInvoiceNotFound), nil
	}

	result := s.email.SendInvoice(ctx, invoice)
	s.metrics.RecordNotification("email", "invoice", result.Success)
	if !result.Success {
		logger.FromContext(ctx).Warn("invoice email not sent",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("reason", result.ErrorMessage),
		)
		return result, nil
	}

	now := s.clock()
	invoice.Status = model.InvoiceStatusSent
	invoice.SentAt = &now
	invoice.Touch(now)
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return notification.Result{}, fmt.Errorf("failed to mark invoice sent: %w", err)
	}

	s.metrics.RecordStatusTransition(string(model.InvoiceStatusSent))
	s.publish(ctx, EventInvoiceSent, invoice)
	return result, nil
}

func (s *invoiceService) SendPaymentReminder(ctx context.Context, id string) (notification.Result, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return notification.Result{}, err
	}
	if invoice == nil {
		return notification.Failure(MsgInvoiceNotFound), nil
	}
	if !invoice.Client.HasPhone() {
		return notification.Failure(notification.ErrNoPhone), nil
	}

	result := s.sms.SendPaymentReminder(ctx, invoice)
	s.metrics.RecordNotification("sms", "reminder", result.Success)
	return result, nil
}

// HandlePaymentWebhook marks the referenced invoice paid for completed
// checkouts and ignores every other event. Notification and payment-record
// failures are logged and never undo the status change.
func (s *invoiceService) HandlePaymentWebhook(ctx context.Context, event payment.WebhookEvent) error {
	log := logger.FromContext(ctx)
	if event.Type != payment.EventCheckoutSessionCompleted || event.InvoiceID == "" {
		s.metrics.RecordWebhook("ignored")
		return nil
	}

	invoice, err := s.GetInvoice(ctx, event.InvoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		s.metrics.RecordWebhook("unknown_invoice")
		log.Warn("webhook references unknown invoice", zap.String("invoice_id", event.InvoiceID))
		return nil
	}

	now := s.clock()
	invoice.Status = model.InvoiceStatusPaid
	invoice.PaidAt = &now
	invoice.Touch(now)
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	s.metrics.RecordStatusTransition(string(model.InvoiceStatusPaid))
	s.metrics.RecordWebhook("processed")
	log.Info("invoice paid",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("checkout_session_id", event.CheckoutSessionID),
	)

	s.recordPayment(ctx, invoice, event, now)
	s.publish(ctx, EventInvoicePaid, invoice)

	emailResult := s.email.SendPaymentConfirmation(ctx, invoice)
	s.metrics.RecordNotification("email", "confirmation", emailResult.Success)
	if !emailResult.Success {
		log.Warn("payment confirmation email not sent",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("reason", emailResult.ErrorMessage),
		)
	}

	if invoice.Client.HasPhone() {
		smsResult := s.sms.SendPaymentConfirmation(ctx, invoice)
		s.metrics.RecordNotification("sms", "confirmation", smsResult.Success)
		if !smsResult.Success {
			log.Warn("payment confirmation sms not sent",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("reason", smsResult.ErrorMessage),
			)
		}
	}
	return nil
}

func (s *invoiceService) recordPayment(ctx context.Context, invoice *model.Invoice, event payment.WebhookEvent, now time.Time) {
	amount := invoice.Total()
	if event.AmountPaid != nil {
		amount = *event.AmountPaid
	}

	record := &model.Payment{
		ID:                uuid.New(),
		InvoiceID:         invoice.ID,
		Amount:            amount,
		PaymentIntentID:   event.PaymentIntentID,
		CheckoutSessionID: event.CheckoutSessionID,
		Status:            model.PaymentStatusCompleted,
		CreatedAt:         now,
		CompletedAt:       &now,
	}
	if err := s.paymentRepo.Create(ctx, record); err != nil {
		logger.FromContext(ctx).Error("failed to record payment",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *invoiceService) ListPayments(ctx context.Context, invoiceID string) ([]model.Payment, bool, error) {
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil || invoice == nil {
		return nil, false, err
	}

	payments, err := s.paymentRepo.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, true, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return payments, true, nil
}

// --- Helpers ---

// generateInvoiceNumber builds INV-<UTC yyyymmdd>-<1000..9999>, skipping
// numbers that are already taken.
func (s *invoiceService) generateInvoiceNumber(ctx context.Context) (string, error) {
	prefix := "INV-" + s.clock().Format("20060102") + "-"

	var candidate string
	for attempt := 0; attempt < numberAttempts; attempt++ {
		candidate = fmt.Sprintf("%s%d", prefix, 1000+rand.IntN(9000))
		existing, err := s.invoiceRepo.FindByInvoiceNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
	}
	return candidate, nil
}

func (s *invoiceService) clock() time.Time {
	return s.now().UTC()
}

func (s *invoiceService) publish(ctx context.Context, eventType string, invoice *model.Invoice) {
	s.publisher.Publish(ctx, newInvoiceEvent(eventType, invoice, s.clock()))
}

func checkAmounts(items []LineItemRequest, taxRate *decimal.Decimal) error {
	for i, item := range items {
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d].unit_price", i), Message: "must not be negative"}
		}
	}
	if taxRate != nil && taxRate.IsNegative() {
		return &ValidationError{Field: "tax_rate", Message: "must not be negative"}
	}
	return nil
}
