package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoiceapi/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleInvoice() *model.Invoice {
	url := "https://checkout.example.com/c/pay_123"
	return &model.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-20260115-4821",
		Client:        model.Client{Name: "Grace Hopper", Email: "grace@example.com", Phone: "+15551234567", Company: "Navy"},
		LineItems: []model.LineItem{
			{Description: "Consulting", Quantity: 40, UnitPrice: decimal.NewFromInt(150)},
			{Description: "Support", Quantity: 20, UnitPrice: decimal.NewFromInt(100)},
		},
		TaxRate:        decimal.NewFromInt(10),
		Status:         model.InvoiceStatusSent,
		IssueDate:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		PaymentLinkURL: &url,
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "$0.00",
		"4.88":       "$4.88",
		"999.999":    "$1,000.00",
		"8800":       "$8,800.00",
		"1234567.5":  "$1,234,567.50",
		"-1500.25":   "-$1,500.25",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestRenderedMessages(t *testing.T) {
	inv := sampleInvoice()

	email := invoiceEmail(inv)
	assert.Equal(t, "Invoice INV-20260115-4821 - Payment Due Feb 14, 2026", email.Subject)
	assert.Contains(t, email.Text, "Consulting: 40 x $150.00 = $6,000.00")
	assert.Contains(t, email.Text, "Total Due: $8,800.00")
	assert.Contains(t, email.Text, "Pay online: https://checkout.example.com/c/pay_123")

	assert.Equal(t, "Payment Reminder - Invoice INV-20260115-4821", paymentReminderEmail(inv).Subject)
	assert.Equal(t, "Payment Received - Invoice INV-20260115-4821", paymentConfirmationEmail(inv).Subject)

	assert.Equal(t,
		"Reminder: Invoice INV-20260115-4821 for $8,800.00 is due on Feb 14, 2026. Pay now: https://checkout.example.com/c/pay_123",
		paymentReminderSMS(inv))
	assert.Equal(t,
		"Payment received! Thank you for paying $8,800.00 for invoice INV-20260115-4821.",
		paymentConfirmationSMS(inv))

	inv.PaymentLinkURL = nil
	assert.Equal(t, "Reminder: Invoice INV-20260115-4821 for $8,800.00 is due on Feb 14, 2026.", paymentReminderSMS(inv))
	assert.NotContains(t, invoiceSMS(inv), "Pay now")
}

func TestLogSenders(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	ctx := context.Background()
	inv := sampleInvoice()

	email := NewLogEmailSender(log)
	res := email.SendInvoice(ctx, inv)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, 1, logs.FilterMessage("email").Len())

	sms := NewLogSMSSender(log)
	assert.True(t, sms.SendPaymentReminder(ctx, inv).Success)

	inv.Client.Phone = "  "
	res = sms.SendPaymentConfirmation(ctx, inv)
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoPhone, res.ErrorMessage)
	assert.Equal(t, 1, logs.FilterMessage("sms").Len())
}

func TestSendGridEmailSender(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("X-Message-Id", "sg-msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewSendGridEmailSender("SG.test", "billing@example.com", "Invoice System", zap.NewNop()).WithHost(server.URL)
	res := sender.SendInvoice(context.Background(), sampleInvoice())

	assert.True(t, res.Success)
	assert.Equal(t, "sg-msg-1", res.MessageID)
	assert.Equal(t, "Invoice INV-20260115-4821 - Payment Due Feb 14, 2026", captured["subject"])
}

func TestSendGridEmailSender_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	sender := NewSendGridEmailSender("SG.bad", "billing@example.com", "Invoice System", zap.NewNop()).WithHost(server.URL)
	res := sender.SendPaymentReminder(context.Background(), sampleInvoice())

	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "401")
}

type fakeMessageCreator struct {
	params *twilioApi.CreateMessageParams
	resp   *twilioApi.ApiV2010Message
	err    error
}

func (f *fakeMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return f.resp, f.err
}

func TestTwilioSMSSender(t *testing.T) {
	sid, status := "SM123", "queued"
	api := &fakeMessageCreator{resp: &twilioApi.ApiV2010Message{Sid: &sid, Status: &status}}
	sender := newTwilioSMSSender(api, "+15550000000", zap.NewNop())

	res := sender.SendPaymentConfirmation(context.Background(), sampleInvoice())
	assert.True(t, res.Success)
	assert.Equal(t, "SM123", res.MessageID)
	require.NotNil(t, api.params)
	assert.Equal(t, "+15551234567", *api.params.To)
	assert.Equal(t, "+15550000000", *api.params.From)
	assert.Contains(t, *api.params.Body, "Payment received!")
}

func TestTwilioSMSSender_Failures(t *testing.T) {
	ctx := context.Background()

	api := &fakeMessageCreator{err: errors.New("invalid number")}
	sender := newTwilioSMSSender(api, "+15550000000", zap.NewNop())
	res := sender.SendInvoice(ctx, sampleInvoice())
	assert.False(t, res.Success)
	assert.Equal(t, "invalid number", res.ErrorMessage)

	failed, reason := "failed", "unreachable"
	api = &fakeMessageCreator{resp: &twilioApi.ApiV2010Message{Status: &failed, ErrorMessage: &reason}}
	sender = newTwilioSMSSender(api, "+15550000000", zap.NewNop())
	res = sender.SendInvoice(ctx, sampleInvoice())
	assert.False(t, res.Success)
	assert.Equal(t, "unreachable", res.ErrorMessage)

	inv := sampleInvoice()
	inv.Client.Phone = ""
	api = &fakeMessageCreator{}
	sender = newTwilioSMSSender(api, "+15550000000", zap.NewNop())
	res = sender.SendPaymentReminder(ctx, inv)
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoPhone, res.ErrorMessage)
	assert.Nil(t, api.params)
}
