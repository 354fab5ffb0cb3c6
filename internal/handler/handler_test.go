package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoiceapi/internal/database"
	"invoiceapi/internal/metrics"
	"invoiceapi/internal/middleware"
	"invoiceapi/internal/notification"
	"invoiceapi/internal/payment"
	"invoiceapi/internal/repository"
	"invoiceapi/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type testServer struct {
	router  *gin.Engine
	metrics *metrics.Metrics
	key     []byte
}

func newTestServer(t *testing.T, requireSignature bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zap.NewNop()
	m := metrics.New()
	gateway := payment.NewLogGateway("http://localhost:8080", log)
	audit := service.NewAuditService(repository.NewAuditRepository(db))
	svc := service.NewInvoiceService(
		repository.NewInvoiceRepository(db, repository.NewTransactionManager(db)),
		repository.NewPaymentRepository(db),
		notification.NewLogEmailSender(log),
		notification.NewLogSMSSender(log),
		gateway,
		service.WithMetrics(m),
		service.WithPublisher(audit),
	)

	key := middleware.SigningKey("handler-test")
	r := gin.New()
	public := r.Group("")
	NewHealthHandler("1.0.0").RegisterRoutes(public)
	NewWebhookHandler(svc, gateway, m, requireSignature).RegisterRoutes(public)

	protected := r.Group("", middleware.RequireAPIKey("test-key", ""))
	NewInvoiceHandler(svc).RegisterRoutes(protected)
	NewAuditHandler(audit).RegisterRoutes(protected)
	NewAuthHandler(key).RegisterRoutes(protected)

	return &testServer{router: r, metrics: m, key: key}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.APIKeyHeader, "test-key")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

const createBody = `{
  "client": {"name": "Acme Corp", "email": "billing@acme.test", "company": "Acme"},
  "line_items": [
    {"description": "Consulting", "quantity": 40, "unit_price": "150.00"},
    {"description": "Support", "quantity": 20, "unit_price": "100.00"}
  ],
  "tax_rate": "10",
  "due_date": "2026-04-13T00:00:00Z"
}`

func (s *testServer) createInvoice(t *testing.T) service.InvoiceResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/invoices", createBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv service.InvoiceResponse
	decode(t, w, &inv)
	return inv
}

func TestCreateInvoice(t *testing.T) {
	s := newTestServer(t, false)

	inv := s.createInvoice(t)
	assert.Regexp(t, `^INV-\d{8}-\d{4}$`, inv.InvoiceNumber)
	assert.Equal(t, "8000.00", inv.Subtotal)
	assert.Equal(t, "800.00", inv.TaxAmount)
	assert.Equal(t, "8800.00", inv.Total)
	assert.Equal(t, "DRAFT", inv.Status)
	assert.Len(t, inv.LineItems, 2)
	count, err := testutil.GatherAndCount(s.metrics.Registry(), "invoice_api_invoices_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateInvoice_Invalid(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"client":`, "Invalid request payload"},
		{"bad email", strings.Replace(createBody, "billing@acme.test", "not-an-email", 1), "client.email must be a valid email address"},
		{"missing due date", `{"client": {"name": "A", "email": "a@b.test"}, "line_items": []}`, "due_date is required"},
		{"zero quantity", strings.Replace(createBody, `"quantity": 40`, `"quantity": 0`, 1), "line_items[0].quantity must be at least 1"},
		{"negative price", strings.Replace(createBody, `"150.00"`, `"-1"`, 1), "line_items[0].unit_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/invoices", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w, nil)
			assert.Contains(t, env.Error, tt.want)
		})
	}
}

func TestInvoiceRoutes_RequireAPIKey(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetInvoice(t *testing.T) {
	s := newTestServer(t, false)
	created := s.createInvoice(t)

	w := s.do(t, http.MethodGet, "/invoices/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got service.InvoiceResponse
	decode(t, w, &got)
	assert.Equal(t, created.InvoiceNumber, got.InvoiceNumber)

	w = s.do(t, http.MethodGet, "/invoices/number/"+created.InvoiceNumber, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, created.ID, got.ID)

	for _, path := range []string{
		"/invoices/00000000-0000-0000-0000-000000000000",
		"/invoices/not-a-uuid",
		"/invoices/number/INV-19990101-0000",
	} {
		w = s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, service.MsgInvoiceNotFound, decode(t, w, nil).Error)
	}
}

func TestListInvoices(t *testing.T) {
	s := newTestServer(t, false)
	s.createInvoice(t)
	s.createInvoice(t)

	w := s.do(t, http.MethodGet, "/invoices?clientEmail=billing@acme.test&take=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []service.InvoiceResponse
	decode(t, w, &list)
	assert.Len(t, list, 1)

	w = s.do(t, http.MethodGet, "/invoices?fromDate=2000-01-01&status=DRAFT", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Len(t, list, 2)

	for _, query := range []string{"fromDate=yesterday", "take=ten", "status=ARCHIVED"} {
		w = s.do(t, http.MethodGet, "/invoices?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestUpdateAndDeleteInvoice(t *testing.T) {
	s := newTestServer(t, false)
	created := s.createInvoice(t)

	w := s.do(t, http.MethodPut, "/invoices/"+created.ID, `{"line_items": [], "notes": "net 30"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated service.InvoiceResponse
	decode(t, w, &updated)
	assert.Empty(t, updated.LineItems)
	assert.Equal(t, "0.00", updated.Total)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "net 30", *updated.Notes)
	assert.NotNil(t, updated.UpdatedAt)

	w = s.do(t, http.MethodPut, "/invoices/"+created.ID, `{"status": "ARCHIVED"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/invoices/00000000-0000-0000-0000-000000000000", `{"notes": "x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/invoices/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/invoices/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendInvoiceAndReminder(t *testing.T) {
	s := newTestServer(t, false)
	created := s.createInvoice(t)

	w := s.do(t, http.MethodPost, "/invoices/"+created.ID+"/send", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent SendInvoiceResponse
	decode(t, w, &sent)
	assert.True(t, strings.HasPrefix(sent.MessageID, "log-"))

	w = s.do(t, http.MethodGet, "/invoices/"+created.ID, "")
	var got service.InvoiceResponse
	decode(t, w, &got)
	assert.Equal(t, "SENT", got.Status)
	assert.NotNil(t, got.SentAt)

	w = s.do(t, http.MethodPost, "/invoices/00000000-0000-0000-0000-000000000000/send", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/invoices/"+created.ID+"/remind", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, notification.ErrNoPhone, decode(t, w, nil).Error)

	w = s.do(t, http.MethodPut, "/invoices/"+created.ID, `{"client": {"name": "Acme Corp", "email": "billing@acme.test", "phone": "+15551234567"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/invoices/"+created.ID+"/remind", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reminded ReminderResponse
	decode(t, w, &reminded)
	assert.NotEmpty(t, reminded.MessageSID)
}

func checkoutCompleted(invoiceID string, amountCents int) string {
	return fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "amount_total": %d,
    "payment_intent": "pi_123",
    "metadata": {"invoice_id": %q}
  }}
}`, amountCents, invoiceID)
}

func TestPaymentLinkAndWebhook(t *testing.T) {
	s := newTestServer(t, false)
	created := s.createInvoice(t)

	w := s.do(t, http.MethodPost, "/invoices/"+created.ID+"/payment-link", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var link PaymentLinkResponse
	decode(t, w, &link)
	assert.Equal(t, "http://localhost:8080/checkout/"+created.ID, link.PaymentLinkURL)

	w = s.do(t, http.MethodPost, "/webhooks/stripe", checkoutCompleted(created.ID, 880000))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/invoices/"+created.ID, "")
	var got service.InvoiceResponse
	decode(t, w, &got)
	assert.Equal(t, "PAID", got.Status)
	assert.NotNil(t, got.PaidAt)

	w = s.do(t, http.MethodGet, "/invoices/"+created.ID+"/payments", "")
	require.Equal(t, http.StatusOK, w.Code)
	var payments []service.PaymentResponse
	decode(t, w, &payments)
	require.Len(t, payments, 1)
	assert.Equal(t, "8800.00", payments[0].Amount)
	assert.Equal(t, "pi_123", payments[0].PaymentIntentID)

	w = s.do(t, http.MethodPost, "/invoices/"+created.ID+"/payment-link", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.MsgInvoiceAlreadyPaid, decode(t, w, nil).Error)

	w = s.do(t, http.MethodGet, "/invoices/00000000-0000-0000-0000-000000000000/payments", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStripeWebhook_Signatures(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/webhooks/stripe", `{}`, "Stripe-Signature", "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Invalid signature"}`, w.Body.String())
	count, err := testutil.GatherAndCount(s.metrics.Registry(), "invoice_api_webhooks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// unknown invoices and non-actionable events are still acknowledged
	for _, body := range []string{
		checkoutCompleted("00000000-0000-0000-0000-000000000000", 100),
		`{"type": "payment_intent.created", "data": {"object": {}}}`,
		`not json`,
	} {
		w = s.do(t, http.MethodPost, "/webhooks/stripe", body)
		assert.Equal(t, http.StatusOK, w.Code, body)
	}

	strict := newTestServer(t, true)
	w = strict.do(t, http.MethodPost, "/webhooks/stripe", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhook_PayloadTooLarge(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(t, http.MethodPost, "/webhooks/stripe", strings.Repeat("x", maxWebhookBody+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.0.0", body.Version)
	assert.WithinDuration(t, time.Now(), body.Timestamp, time.Minute)
}

func TestIssueEventToken(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/auth/ws-token", `{"subject": "ops-dashboard"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok EventTokenResponse
	decode(t, w, &tok)

	claims, err := middleware.ParseEventToken(s.key, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops-dashboard", claims.Subject)

	w = s.do(t, http.MethodPost, "/auth/ws-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &tok)
	claims, err = middleware.ParseEventToken(s.key, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "api-client", claims.Subject)
}

func TestGetInvoiceActivity(t *testing.T) {
	s := newTestServer(t, false)
	created := s.createInvoice(t)

	w := s.do(t, http.MethodPost, "/invoices/"+created.ID+"/send", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/invoices/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/invoices/"+created.ID+"/activity", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var activity ActivityResponse
	decode(t, w, &activity)

	assert.Equal(t, int64(3), activity.Total)
	actions := make([]string, 0, len(activity.Logs))
	for _, l := range activity.Logs {
		actions = append(actions, l.Action)
		assert.Equal(t, created.ID, l.InvoiceID)
	}
	assert.ElementsMatch(t, []string{service.EventInvoiceCreated, service.EventInvoiceSent, service.EventInvoiceDeleted}, actions)

	w = s.do(t, http.MethodGet, "/invoices/"+created.ID+"/activity?take=1", "")
	decode(t, w, &activity)
	assert.Len(t, activity.Logs, 1)
	assert.Equal(t, int64(3), activity.Total)
}
