package handler

import (
	"errors"
	"io"
	"net/http"

	"invoiceapi/internal/logger"
	"invoiceapi/internal/metrics"
	"invoiceapi/internal/payment"
	"invoiceapi/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxWebhookBody     = 64 << 10
	stripeSignatureHdr = "Stripe-Signature"
)

type WebhookHandler struct {
	invoiceService   service.InvoiceService
	gateway          payment.Gateway
	metrics          *metrics.Metrics
	requireSignature bool
}

// NewWebhookHandler builds the payment provider callback endpoint. With
// requireSignature set, unsigned payloads are rejected as well as badly
// signed ones.
func NewWebhookHandler(invoiceService service.InvoiceService, gateway payment.Gateway, m *metrics.Metrics, requireSignature bool) *WebhookHandler {
	return &WebhookHandler{
		invoiceService:   invoiceService,
		gateway:          gateway,
		metrics:          m,
		requireSignature: requireSignature,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/stripe", h.StripeWebhook)
}

// StripeWebhook receives checkout events from Stripe
// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header when present and marks the invoice paid on checkout.session.completed
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  false  "Stripe signature"
// @Success      200               {object}  map[string]bool
// @Failure      400               {object}  map[string]string
// @Router       /webhooks/stripe [post]
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.RecordWebhook("too_large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
			return
		}
		log.Warn("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable payload"})
		return
	}

	signature := c.GetHeader(stripeSignatureHdr)
	if signature != "" || h.requireSignature {
		if !h.gateway.ValidateWebhook(payload, signature) {
			log.Warn("invalid stripe webhook signature")
			h.metrics.RecordWebhook("invalid_signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
	}

	event := h.gateway.ParseWebhook(payload)
	if event == nil {
		h.metrics.RecordWebhook("unparsed")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	log.Info("processing stripe webhook",
		zap.String("type", event.Type),
		zap.String("invoice_id", event.InvoiceID),
	)
	if err := h.invoiceService.HandlePaymentWebhook(c.Request.Context(), *event); err != nil {
		// acknowledged anyway so Stripe does not retry
		log.Error("webhook processing failed", zap.Error(err), zap.String("invoice_id", event.InvoiceID))
		h.metrics.RecordWebhook("error")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
