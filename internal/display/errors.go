package display

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/ordering"
	"github.com/roach88/liftoff/internal/protest"
)

// Codes for failures that are not command rejections.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnavailable      = "UNAVAILABLE"
	CodeUnknownEventType = "UNKNOWN_EVENT_TYPE"
	CodeNotFound         = "NOT_FOUND"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

// classify maps a command error to an HTTP status and body.
func classify(err error) (int, ErrorBody) {
	var (
		ve *ordering.ValidationError
		pe *protest.Error
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ErrorBody{Error: ve.Reason, Code: string(ve.Code)}
	case errors.As(err, &pe):
		if pe.Code == protest.CodeNotFound {
			return http.StatusNotFound, ErrorBody{Error: pe.Reason, Code: string(pe.Code)}
		}
		return http.StatusUnprocessableEntity, ErrorBody{Error: pe.Reason, Code: string(pe.Code)}
	case engine.IsRetryable(err):
		return http.StatusServiceUnavailable, ErrorBody{Error: err.Error(), Code: engine.CodePersistence, Retryable: true}
	case errors.Is(err, engine.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorBody{Error: err.Error(), Code: CodeUnavailable}
	}
	if code := engine.CodeOf(err); code != "" {
		return http.StatusConflict, ErrorBody{Error: err.Error(), Code: code}
	}
	return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeBadRequest}
}

func abort(c *gin.Context, err error) {
	status, body := classify(err)
	c.AbortWithStatusJSON(status, body)
}
