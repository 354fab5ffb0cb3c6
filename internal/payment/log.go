package payment

import (
	"context"
	"fmt"

	"invoiceapi/internal/model"

	"go.uber.org/zap"
)

// LogGateway is used when no Stripe key is configured. Links point at a
// local placeholder and no webhook signature is ever accepted, but unsigned
// Stripe-shaped payloads are still parsed so the paid flow can be driven locally.
type LogGateway struct {
	baseURL string
	log     *zap.Logger
}

func NewLogGateway(baseURL string, log *zap.Logger) *LogGateway {
	return &LogGateway{baseURL: baseURL, log: log.Named("payment")}
}

func (g *LogGateway) CreatePaymentLink(_ context.Context, invoice *model.Invoice) LinkResult {
	id := "local_" + invoice.ID.String()
	link := fmt.Sprintf("%s/checkout/%s", g.baseURL, invoice.ID)
	g.log.Info("payment link",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("url", link),
		zap.String("amount", invoice.Total().StringFixed(2)),
	)
	return LinkResult{Success: true, PaymentLinkID: id, PaymentLinkURL: link}
}

func (g *LogGateway) ValidateWebhook(_ []byte, _ string) bool {
	return false
}

func (g *LogGateway) ParseWebhook(payload []byte) *WebhookEvent {
	return parseCheckoutEvent(payload, g.log)
}
