package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"invoiceapi/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ReturnBaseURL string
}

type StripeGateway struct {
	sessions      session.Client
	webhookSecret string
	currency      string
	returnBaseURL string
	log           *zap.Logger
}

func NewStripeGateway(cfg StripeConfig, log *zap.Logger) *StripeGateway {
	return newStripeGateway(cfg, stripe.GetBackend(stripe.APIBackend), log)
}

func newStripeGateway(cfg StripeConfig, backend stripe.Backend, log *zap.Logger) *StripeGateway {
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{
		sessions:      session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		returnBaseURL: cfg.ReturnBaseURL,
		log:           log.Named("stripe"),
	}
}

func (g *StripeGateway) CreatePaymentLink(ctx context.Context, invoice *model.Invoice) LinkResult {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.returnURL("success", invoice)),
		CancelURL:     stripe.String(g.returnURL("cancel", invoice)),
		CustomerEmail: stripe.String(invoice.Client.Email),
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", invoice.ID.String())
	params.AddMetadata("invoice_number", invoice.InvoiceNumber)

	for _, li := range invoice.LineItems {
		params.LineItems = append(params.LineItems, g.lineItem(li.Description, li.UnitPrice, int64(li.Quantity)))
	}
	if invoice.TaxRate.IsPositive() {
		name := fmt.Sprintf("Tax (%s%%)", invoice.TaxRate.String())
		params.LineItems = append(params.LineItems, g.lineItem(name, invoice.TaxAmount(), 1))
	}

	s, err := g.sessions.New(params)
	if err != nil {
		g.log.Warn("checkout session failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Msg != "" {
			return LinkFailure(stripeErr.Msg)
		}
		return LinkFailure(err.Error())
	}

	g.log.Info("checkout session created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("session_id", s.ID),
	)
	return LinkResult{Success: true, PaymentLinkID: s.ID, PaymentLinkURL: s.URL}
}

func (g *StripeGateway) lineItem(name string, amount decimal.Decimal, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(g.currency),
			UnitAmount: stripe.Int64(toMinorUnits(amount)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
		Quantity: stripe.Int64(quantity),
	}
}

func (g *StripeGateway) returnURL(outcome string, invoice *model.Invoice) string {
	return fmt.Sprintf("%s/%s?invoice_id=%s", g.returnBaseURL, outcome, url.QueryEscape(invoice.ID.String()))
}

func (g *StripeGateway) ValidateWebhook(payload []byte, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}
	if err := webhook.ValidatePayload(payload, signature, g.webhookSecret); err != nil {
		g.log.Debug("webhook signature rejected", zap.Error(err))
		return false
	}
	return true
}

func (g *StripeGateway) ParseWebhook(payload []byte) *WebhookEvent {
	return parseCheckoutEvent(payload, g.log)
}

// parseCheckoutEvent reads a Stripe event envelope and extracts the completed
// checkout session it carries.
func parseCheckoutEvent(payload []byte, log *zap.Logger) *WebhookEvent {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Debug("webhook payload unreadable", zap.Error(err))
		return nil
	}
	if string(event.Type) != EventCheckoutSessionCompleted || event.Data == nil {
		return nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		log.Debug("checkout session unreadable", zap.Error(err))
		return nil
	}

	parsed := &WebhookEvent{
		Type:              EventCheckoutSessionCompleted,
		InvoiceID:         cs.Metadata["invoice_id"],
		CheckoutSessionID: cs.ID,
	}
	if cs.PaymentIntent != nil {
		parsed.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.AmountTotal > 0 {
		amount := decimal.New(cs.AmountTotal, -2)
		parsed.AmountPaid = &amount
	}
	return parsed
}

// toMinorUnits converts a dollar amount to cents, rounding half away from zero.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
