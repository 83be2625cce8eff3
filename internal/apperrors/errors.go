package apperrors

import (
	"errors"
)

var (
	// Input is missing or malformed
	ErrValidation = errors.New("validation error")

	// Store is unreachable or misconfigured
	ErrConfiguration = errors.New("store unreachable or misconfigured")

	// Store or gateway did not respond in time; caller may retry
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Write was not acknowledged by the store
	ErrPersistence = errors.New("failed to update balance")

	ErrGateway          = errors.New("payment gateway error")
	ErrSignatureInvalid = errors.New("payment signature is invalid")

	ErrPaymentOrderExists      = errors.New("payment order already exists")
	ErrPaymentOrderNotFound    = errors.New("payment order not found")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")

	ErrAccountNotFound     = errors.New("account not found")
	ErrBalanceInsufficient = errors.New("insufficient balance")
	ErrItemNotFound        = errors.New("vending item not found")

	ErrUnauthorized          = errors.New("unauthorized")
	ErrEmailDomainNotAllowed = errors.New("email domain is not allowed")
	ErrEmailMismatch         = errors.New("email does not match session")
)
