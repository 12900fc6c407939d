package storeapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/resilience"
)

// AsAppError maps a store API failure onto the terminal's HTTP error shape.
// The upstream message is passed through because it is meant for operators.
func AsAppError(err error) *common.AppError {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var apiErr *Error
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		return common.NewAppError("UPSTREAM_UNAVAILABLE", "store service is unavailable, try again shortly", http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError("UPSTREAM_TIMEOUT", "store service did not respond in time", http.StatusGatewayTimeout, err)
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		switch {
		case errors.Is(err, ErrUnauthorized):
			if msg == "" {
				msg = "not authorised"
			}
			return common.NewAppError("UNAUTHORIZED", msg, http.StatusUnauthorized, err)
		case errors.Is(err, ErrNotFound):
			if msg == "" {
				msg = "not found"
			}
			return common.NewAppError("NOT_FOUND", msg, http.StatusNotFound, err)
		case apiErr.Status >= http.StatusInternalServerError:
			return common.NewAppError("UPSTREAM_ERROR", "store service failed", http.StatusBadGateway, err)
		default:
			if msg == "" {
				msg = "request rejected by store service"
			}
			return common.NewAppError("UPSTREAM_REJECTED", msg, http.StatusUnprocessableEntity, err)
		}
	default:
		return common.NewAppError("UPSTREAM_ERROR", "store service request failed", http.StatusBadGateway, err)
	}
}
