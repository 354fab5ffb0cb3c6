package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoiceapi/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func testInvoice() *model.Invoice {
	return &model.Invoice{
		ID:            uuid.MustParse("6f1c2a5e-3a54-4c1b-9d9e-0c3f2b7a8e11"),
		InvoiceNumber: "INV-20260115-4821",
		Client:        model.Client{Name: "Grace Hopper", Email: "grace@example.com"},
		LineItems: []model.LineItem{
			{Description: "Consulting", Quantity: 40, UnitPrice: decimal.NewFromInt(150)},
			{Description: "Hosting", Quantity: 1, UnitPrice: decimal.RequireFromString("4.445")},
		},
		TaxRate:   decimal.NewFromInt(10),
		Status:    model.InvoiceStatusDraft,
		IssueDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}
}

func testGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return newStripeGateway(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Currency:      "usd",
		ReturnBaseURL: "https://billing.example.com/payment",
	}, backend, zap.NewNop())
}

func TestStripeGateway_CreatePaymentLink(t *testing.T) {
	gateway := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "grace@example.com", r.PostForm.Get("customer_email"))
		assert.Equal(t, "6f1c2a5e-3a54-4c1b-9d9e-0c3f2b7a8e11", r.PostForm.Get("metadata[invoice_id]"))
		assert.Equal(t, "INV-20260115-4821", r.PostForm.Get("metadata[invoice_number]"))
		assert.Equal(t,
			"https://billing.example.com/payment/success?invoice_id=6f1c2a5e-3a54-4c1b-9d9e-0c3f2b7a8e11",
			r.PostForm.Get("success_url"))
		assert.Equal(t, "15000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "40", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "445", r.PostForm.Get("line_items[1][price_data][unit_amount]"))
		assert.Equal(t, "Tax (10%)", r.PostForm.Get("line_items[2][price_data][product_data][name]"))
		assert.Equal(t, "60044", r.PostForm.Get("line_items[2][price_data][unit_amount]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	})

	res := gateway.CreatePaymentLink(context.Background(), testInvoice())
	assert.True(t, res.Success)
	assert.Equal(t, "cs_test_1", res.PaymentLinkID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", res.PaymentLinkURL)
}

func TestStripeGateway_CreatePaymentLinkNoTax(t *testing.T) {
	gateway := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Empty(t, r.PostForm.Get("line_items[2][price_data][unit_amount]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_2","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_2"}`))
	})

	inv := testInvoice()
	inv.TaxRate = decimal.Zero
	res := gateway.CreatePaymentLink(context.Background(), inv)
	assert.True(t, res.Success)
}

func TestStripeGateway_CreatePaymentLinkFailure(t *testing.T) {
	gateway := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid email address"}}`))
	})

	res := gateway.CreatePaymentLink(context.Background(), testInvoice())
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email address", res.ErrorMessage)
	assert.Empty(t, res.PaymentLinkURL)
}

const completedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "amount_total": 880000,
      "payment_intent": "pi_123",
      "metadata": {"invoice_id": "6f1c2a5e-3a54-4c1b-9d9e-0c3f2b7a8e11", "invoice_number": "INV-20260115-4821"}
    }
  }
}`

func TestStripeGateway_ValidateWebhook(t *testing.T) {
	gateway := testGateway(t, nil)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(completedPayload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	assert.True(t, gateway.ValidateWebhook(signed.Payload, signed.Header))

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(completedPayload),
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})
	assert.False(t, gateway.ValidateWebhook(forged.Payload, forged.Header))
	assert.False(t, gateway.ValidateWebhook([]byte(completedPayload), ""))
	assert.False(t, gateway.ValidateWebhook([]byte(completedPayload), "garbage"))
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	gateway := testGateway(t, nil)

	event := gateway.ParseWebhook([]byte(completedPayload))
	require.NotNil(t, event)
	assert.Equal(t, EventCheckoutSessionCompleted, event.Type)
	assert.Equal(t, "6f1c2a5e-3a54-4c1b-9d9e-0c3f2b7a8e11", event.InvoiceID)
	assert.Equal(t, "cs_test_1", event.CheckoutSessionID)
	assert.Equal(t, "pi_123", event.PaymentIntentID)
	require.NotNil(t, event.AmountPaid)
	assert.Equal(t, "8800.00", event.AmountPaid.StringFixed(2))

	assert.Nil(t, gateway.ParseWebhook([]byte(`{"id":"evt_2","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)))
	assert.Nil(t, gateway.ParseWebhook([]byte(`not json`)))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(15000), toMinorUnits(decimal.NewFromInt(150)))
	assert.Equal(t, int64(445), toMinorUnits(decimal.RequireFromString("4.445")))
	assert.Equal(t, int64(1), toMinorUnits(decimal.RequireFromString("0.005")))
}

func TestLogGateway(t *testing.T) {
	gateway := NewLogGateway("http://localhost:8080", zap.NewNop())
	inv := testInvoice()

	res := gateway.CreatePaymentLink(context.Background(), inv)
	assert.True(t, res.Success)
	assert.Equal(t, "http://localhost:8080/checkout/"+inv.ID.String(), res.PaymentLinkURL)
	assert.False(t, gateway.ValidateWebhook([]byte(completedPayload), "t=1,v1=abc"))

	event := gateway.ParseWebhook([]byte(completedPayload))
	require.NotNil(t, event)
	assert.Equal(t, inv.ID.String(), event.InvoiceID)
}
