package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/handlers/render"
	"github.com/nkiryanov/campuswallet/internal/handlers/sessionctx"
	"github.com/nkiryanov/campuswallet/internal/logger"
)

// Status and safe message for the service error
// fallback is used for unexpected errors
func errorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrEmailMismatch):
		return http.StatusForbidden, "Email does not match session"
	case errors.Is(err, apperrors.ErrBalanceInsufficient):
		return http.StatusPaymentRequired, "Insufficient Balance"
	case errors.Is(err, apperrors.ErrItemNotFound):
		return http.StatusUnprocessableEntity, "Unknown vending item"
	case errors.Is(err, apperrors.ErrPaymentOrderNotFound):
		return http.StatusNotFound, "Payment order not found"
	case errors.Is(err, apperrors.ErrGateway):
		return http.StatusBadGateway, "Payment gateway error"
	case errors.Is(err, apperrors.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, fallback
	}
}

func serviceError(w http.ResponseWriter, l logger.Logger, err error, fallback string) {
	code, message := errorStatus(err, fallback)
	if code >= http.StatusInternalServerError {
		l.Error(fallback, "error", err)
	}
	render.ServiceError(w, message, code)
}

// sessionEmail returns the session email
// Body email is optional but must be the session one if present
func sessionEmail(r *http.Request, bodyEmail string) (string, error) {
	session, ok := sessionctx.FromContext(r.Context())
	if !ok {
		return "", apperrors.ErrUnauthorized
	}
	if bodyEmail != "" && bodyEmail != session.Email {
		return "", apperrors.ErrEmailMismatch
	}
	return session.Email, nil
}
