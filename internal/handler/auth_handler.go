package handler

import (
	"net/http"
	"time"

	"invoiceapi/internal/logger"
	"invoiceapi/internal/middleware"
	"invoiceapi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventTokenRequest struct {
	Subject string `json:"subject" example:"ops-dashboard"`
}

type EventTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthHandler struct {
	signingKey []byte
}

func NewAuthHandler(signingKey []byte) *AuthHandler {
	return &AuthHandler{signingKey: signingKey}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/ws-token", h.IssueEventToken)
}

// IssueEventToken issues a short-lived token for the /ws event feed
// @Summary      Issue event feed token
// @Description  Returns an HS256 token accepted by GET /ws?token=
// @Tags         auth
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      EventTokenRequest  false  "Token subject"
// @Success      200      {object}  response.Response{data=EventTokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/ws-token [post]
func (h *AuthHandler) IssueEventToken(c *gin.Context) {
	var req EventTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.Subject == "" {
		req.Subject = "api-client"
	}

	token, expiresAt, err := middleware.IssueEventToken(h.signingKey, req.Subject, time.Now())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("failed to sign event token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, EventTokenResponse{Token: token, ExpiresAt: expiresAt}))
}
