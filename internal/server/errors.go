package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/downstream"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

// PolicyError is the body of a 403 answer.
type PolicyError struct {
	ErrorCode    domain.Code `json:"errorCode"`
	ErrorMessage string      `json:"errorMessage"`
}

// StatusError is the body of every other non-2xx answer.
type StatusError struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

var internalErrorBody = StatusError{
	ErrorCode:    http.StatusInternalServerError,
	ErrorMessage: "Internal server error",
}

// errorRenderer maps failures to responses.
type errorRenderer struct {
	logger  observability.Logger
	auditor audit.Logger
}

func (r *errorRenderer) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, StatusError{
		ErrorCode:    http.StatusBadRequest,
		ErrorMessage: message,
	})
}

func (r *errorRenderer) render(c *gin.Context, err error) {
	ctx := c.Request.Context()
	_ = c.Error(err)

	if code, ok := domain.CodeOf(err); ok {
		r.logger.WithContext(ctx).Warn("request rejected",
			observability.String("code", string(code)),
			observability.Error(err),
		)
		r.auditor.LogEvent(ctx, audit.AccessDeniedEvent(string(code), c.RemoteIP(), c.Request.URL.Path))
		c.AbortWithStatusJSON(code.HTTPStatus(), PolicyError{
			ErrorCode:    code,
			ErrorMessage: code.PublicMessage(),
		})
		return
	}

	var restErr *downstream.RestError
	if errors.As(err, &restErr) {
		c.AbortWithStatusJSON(restErr.Status, StatusError{
			ErrorCode:    restErr.ErrorCode,
			ErrorMessage: restErr.ErrorMessage,
		})
		return
	}

	if errors.Is(err, downstream.ErrUnavailable) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, StatusError{
			ErrorCode:    http.StatusServiceUnavailable,
			ErrorMessage: "Service unavailable",
		})
		return
	}

	r.logger.WithContext(ctx).Error("request failed", observability.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, internalErrorBody)
}
