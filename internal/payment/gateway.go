// Package payment creates hosted payment links for invoices and interprets
// the payment provider's webhook callbacks.
package payment

import (
	"context"

	"invoiceapi/internal/model"

	"github.com/shopspring/decimal"
)

// EventCheckoutSessionCompleted is the only webhook event the service acts on.
const EventCheckoutSessionCompleted = "checkout.session.completed"

type LinkResult struct {
	Success        bool   `json:"success"`
	PaymentLinkID  string `json:"payment_link_id,omitempty"`
	PaymentLinkURL string `json:"payment_link_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// LinkFailure builds an unsuccessful LinkResult.
func LinkFailure(message string) LinkResult {
	return LinkResult{Success: false, ErrorMessage: message}
}

// WebhookEvent is the provider-neutral view of a payment callback.
type WebhookEvent struct {
	Type              string
	InvoiceID         string
	PaymentIntentID   string
	CheckoutSessionID string
	AmountPaid        *decimal.Decimal
}

type Gateway interface {
	CreatePaymentLink(ctx context.Context, invoice *model.Invoice) LinkResult
	ValidateWebhook(payload []byte, signature string) bool
	// ParseWebhook returns nil for payloads that are malformed or not actionable.
	ParseWebhook(payload []byte) *WebhookEvent
}
