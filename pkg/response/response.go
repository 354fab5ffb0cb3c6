package response

import "github.com/gin-gonic/gin"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope every JSON endpoint of the API answers with.
type Response struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Success(statusCode int, data any) Response {
	return Response{Status: StatusSuccess, StatusCode: statusCode, Data: data}
}

func Error(statusCode int, msg string) Response {
	return Response{Status: StatusError, StatusCode: statusCode, Error: msg}
}

// Abort stops the handler chain and writes an error envelope.
func Abort(c *gin.Context, statusCode int, msg string) {
	c.AbortWithStatusJSON(statusCode, Error(statusCode, msg))
}
