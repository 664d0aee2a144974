package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the envelope of every failed request.
// Error carries the underlying error text on 5xx responses only.
type ErrorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RespondWithError writes the envelope and aborts the handler chain.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Message: message,
		Code:    errorCode,
	})
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Please log in to continue"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "You do not have permission to do this"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

// InternalError reports a 500 and includes err's text.
func InternalError(c *gin.Context, errorCode string, message string, err error) {
	if errorCode == "" {
		errorCode = InternalServerError
	}
	if message == "" {
		message = "Something went wrong on our side. Please try again later"
	}
	resp := ErrorResponse{Message: message, Code: errorCode}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Message: "The given data was invalid",
		Code:    ValidationInvalidInput,
		Fields:  fields,
	})
}
