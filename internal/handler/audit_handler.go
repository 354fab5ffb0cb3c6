package handler

import (
	"net/http"

	"invoiceapi/internal/service"
	"invoiceapi/pkg/pagination"
	"invoiceapi/pkg/response"

	"github.com/gin-gonic/gin"
)

type ActivityResponse struct {
	Logs  []service.AuditLogResponse `json:"logs"`
	Total int64                      `json:"total"`
	Skip  int                        `json:"skip"`
	Take  int                        `json:"take"`
}

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/invoices/:id/activity", h.GetInvoiceActivity)
}

// GetInvoiceActivity lists the lifecycle events recorded for an invoice
// @Summary      Get invoice activity
// @Description  Newest first; remains available after the invoice is deleted
// @Tags         audit
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id    path      string  true   "Invoice ID"
// @Param        skip  query     int     false  "Records to skip (default 0)"
// @Param        take  query     int     false  "Records to return (default 50, max 100)"
// @Success      200   {object}  response.Response{data=ActivityResponse}
// @Failure      400   {object}  response.Response
// @Router       /invoices/{id}/activity [get]
func (h *AuditHandler) GetInvoiceActivity(c *gin.Context) {
	page, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	logs, total, err := h.auditService.GetInvoiceActivity(c.Request.Context(), c.Param("id"), page.Skip, page.Take)
	if err != nil {
		serviceError(c, err, "failed to retrieve invoice activity")
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ActivityResponse{
		Logs:  logs,
		Total: total,
		Skip:  page.Skip,
		Take:  page.Take,
	}))
}
