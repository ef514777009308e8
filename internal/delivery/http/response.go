package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError picks the status from the error code carried by err.
func RespondDomainError(c *gin.Context, err error) {
	code := entity.CodeOf(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		// Internal details stay in the logs.
		c.Error(err)
		err = errors.New(strings.ToLower(http.StatusText(status)))
	}
	RespondError(c, status, string(code), err)
}

func StatusFor(code entity.ErrorCode) int {
	switch code {
	case entity.CodeValidation, entity.CodeInvalidArgument:
		return http.StatusBadRequest
	case entity.CodeNotFound:
		return http.StatusNotFound
	case entity.CodeConflict, entity.CodeInvalidStateTransition, entity.CodeInsufficientStock, entity.CodeOverCommit:
		return http.StatusConflict
	case entity.CodeInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
