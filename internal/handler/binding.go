package handler

import (
	"errors"
	"net/http"

	"invoiceapi/internal/logger"
	"invoiceapi/internal/repository"
	"invoiceapi/internal/service"
	"invoiceapi/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// Request bodies are checked by the service validator so binding failures
// name JSON fields ("client.email") rather than Go fields.
func init() {
	binding.Validator = structValidator{}
}

type structValidator struct{}

func (structValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	return service.Validate(obj)
}

func (structValidator) Engine() any {
	return service.ValidatorEngine()
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, msg))
}

// bindError answers a failed ShouldBindJSON.
func bindError(c *gin.Context, err error) {
	if service.IsValidationError(err) {
		badRequest(c, err.Error())
		return
	}
	badRequest(c, "Invalid request payload: "+err.Error())
}

// serviceError maps validation failures to 400 and everything else to a
// generic 500, logging the detail.
func serviceError(c *gin.Context, err error, msg string) {
	if service.IsValidationError(err) {
		badRequest(c, err.Error())
		return
	}

	fields := []zap.Field{zap.Error(err), zap.String("path", c.FullPath())}
	var storageErr *repository.StorageError
	if errors.As(err, &storageErr) {
		fields = append(fields, zap.String("storage_op", storageErr.Op))
	}
	logger.FromContext(c.Request.Context()).Error(msg, fields...)
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
}
