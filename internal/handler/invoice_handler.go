package handler

import (
	"net/http"
	"time"

	"invoiceapi/internal/service"
	"invoiceapi/pkg/pagination"
	"invoiceapi/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// SendInvoiceResponse is returned when the invoice email went out.
type SendInvoiceResponse struct {
	Message   string `json:"message" example:"Invoice sent successfully"`
	MessageID string `json:"message_id,omitempty"`
}

// ReminderResponse is returned when the reminder SMS went out.
type ReminderResponse struct {
	Message    string `json:"message" example:"Payment reminder sent successfully"`
	MessageSID string `json:"message_sid,omitempty"`
}

type PaymentLinkResponse struct {
	PaymentLinkURL string `json:"payment_link_url"`
	PaymentLinkID  string `json:"payment_link_id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/number/:invoiceNumber", h.GetInvoiceByNumber)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", h.UpdateInvoice)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.POST("/:id/send", h.SendInvoice)
		invoices.POST("/:id/remind", h.SendReminder)
		invoices.POST("/:id/payment-link", h.CreatePaymentLink)
		invoices.GET("/:id/payments", h.ListPayments)
	}
}

// CreateInvoice creates a draft invoice
// @Summary      Create invoice
// @Description  Creates a DRAFT invoice with a generated invoice number and computed totals
// @Tags         invoices
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err, "failed to create invoice")
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, service.ToInvoiceResponse(*invoice)))
}

// ListInvoices returns invoices matching the query filters
// @Summary      List invoices
// @Description  Filters compose with AND; fromDate/toDate are inclusive bounds on the issue date
// @Tags         invoices
// @Security     ApiKeyAuth
// @Produce      json
// @Param        status       query     string  false  "DRAFT, SENT, VIEWED, PAID, OVERDUE or CANCELLED"
// @Param        fromDate     query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        toDate       query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        clientEmail  query     string  false  "Exact client email"
// @Param        skip         query     int     false  "Records to skip (default 0)"
// @Param        take         query     int     false  "Records to return (default 50, max 100)"
// @Success      200          {object}  response.Response{data=[]service.InvoiceResponse}
// @Failure      400          {object}  response.Response
// @Failure      500          {object}  response.Response
// @Router       /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	page, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	filter := service.InvoiceFilter{
		Status:      c.Query("status"),
		ClientEmail: c.Query("clientEmail"),
		Skip:        page.Skip,
		Take:        page.Take,
	}
	if filter.FromDate, err = queryDate(c, "fromDate"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.ToDate, err = queryDate(c, "toDate"); err != nil {
		badRequest(c, err.Error())
		return
	}

	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		serviceError(c, err, "failed to list invoices")
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToInvoiceResponses(invoices)))
}

// GetInvoice returns a single invoice
// @Summary      Get invoice
// @Tags         invoices
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, "failed to fetch invoice")
		return
	}
	if invoice == nil {
		notFound(c, service.MsgInvoiceNotFound)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToInvoiceResponse(*invoice)))
}

// GetInvoiceByNumber returns the invoice with the given human-readable number
// @Summary      Get invoice by number
// @Tags         invoices
// @Security     ApiKeyAuth
// @Produce      json
// @Param        invoiceNumber  path      string  true  "Invoice number, e.g. INV-20260314-1234"
// @Success      200            {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404            {object}  response.Response
// @Router       /invoices/number/{invoiceNumber} [get]
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoiceByNumber(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		serviceError(c, err, "failed to fetch invoice by number")
		return
	}
	if invoice == nil {
		notFound(c, service.MsgInvoiceNotFound)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToInvoiceResponse(*invoice)))
}

// UpdateInvoice replaces the supplied fields of an invoice
// @Summary      Update invoice
// @Description  Every supplied field replaces the stored value; line_items replaces the whole list
// @Tags         invoices
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Update Invoice Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		serviceError(c, err, "failed to update invoice")
		return
	}
	if invoice == nil {
		notFound(c, service.MsgInvoiceNotFound)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToInvoiceResponse(*invoice)))
}

// DeleteInvoice removes an invoice
// @Summary      Delete invoice
// @Tags         invoices
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=MessageResponse}
// @Failure      404  {object}  response.Response
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	deleted, err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, "failed to delete invoice")
		return
	}
	if !deleted {
		notFound(c, service.MsgInvoiceNotFound)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, MessageResponse{Message: "Invoice deleted successfully"}))
}

// SendInvoice emails the invoice to the client and marks it SENT
// @Summary      Send invoice
// @Tags         notifications
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=SendInvoiceResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	result, err := h.invoiceService.SendInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, "failed to send invoice")
		return
	}
	if !result.Success {
		if result.ErrorMessage == service.MsgInvoiceNotFound {
			notFound(c, result.ErrorMessage)
			return
		}
		badRequest(c, result.ErrorMessage)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, SendInvoiceResponse{
		Message:   "Invoice sent successfully",
		MessageID: result.MessageID,
	}))
}

// SendReminder texts a payment reminder to the client
// @Summary      Send payment reminder
// @Tags         notifications
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=ReminderResponse}
// @Failure      400  {object}  response.Response
// @Router       /invoices/{id}/remind [post]
func (h *InvoiceHandler) SendReminder(c *gin.Context) {
	result, err := h.invoiceService.SendPaymentReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, "failed to send reminder")
		return
	}
	if !result.Success {
		badRequest(c, result.ErrorMessage)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ReminderResponse{
		Message:    "Payment reminder sent successfully",
		MessageSID: result.MessageID,
	}))
}

// CreatePaymentLink creates a hosted checkout link for the invoice
// @Summary      Create payment link
// @Tags         payments
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=PaymentLinkResponse}
// @Failure      400  {object}  response.Response
// @Router       /invoices/{id}/payment-link [post]
func (h *InvoiceHandler) CreatePaymentLink(c *gin.Context) {
	result, err := h.invoiceService.CreatePaymentLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, "failed to create payment link")
		return
	}
	if !result.Success {
		badRequest(c, result.ErrorMessage)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, PaymentLinkResponse{
		PaymentLinkURL: result.PaymentLinkURL,
		PaymentLinkID:  result.PaymentLinkID,
	}))
}

// ListPayments returns the recorded payments of an invoice
// @Summary      List invoice payments
// @Tags         payments
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	payments, found, err := h.invoiceService.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, "failed to list payments")
		return
	}
	if !found {
		notFound(c, service.MsgInvoiceNotFound)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToPaymentResponses(payments)))
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := pagination.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
