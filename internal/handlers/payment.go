package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/handlers/render"
	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
)

func handleCreateOrder(paymentService paymentService, l logger.Logger) http.Handler {
	type request struct {
		Amount   decimal.Decimal `json:"amount" validate:"required,gt=0"`
		Currency string          `json:"currency" validate:"omitempty,len=3"`
	}
	type response struct {
		OrderID  string  `json:"orderId"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Receipt  string  `json:"receipt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		email, err := sessionEmail(r, "")
		if err != nil {
			serviceError(w, l, err, "Failed to create order")
			return
		}

		order, err := paymentService.CreateOrder(r.Context(), email, data.Amount, data.Currency)
		if err != nil {
			serviceError(w, l, err, "Failed to create order")
			return
		}

		render.JSON(w, response{
			OrderID:  order.OrderID,
			Amount:   order.Amount.InexactFloat64(),
			Currency: order.Currency,
			Receipt:  order.Receipt,
		})
	})
}

func handleVerifyPayment(topUpService topUpService, l logger.Logger) http.Handler {
	type request struct {
		OrderCreationID string `json:"orderCreationId" validate:"required"`
		PaymentID       string `json:"paymentId" validate:"required"`
		OrderID         string `json:"orderId"`
		Signature       string `json:"signature" validate:"required"`
	}
	type response struct {
		IsOk       bool     `json:"isOk"`
		Message    string   `json:"message,omitempty"`
		NewBalance *float64 `json:"newBalance,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		email, err := sessionEmail(r, "")
		if err != nil {
			serviceError(w, l, err, "Failed to verify payment")
			return
		}

		topUp, err := topUpService.Confirm(r.Context(), email, models.PaymentCallback{
			OrderCreationID: data.OrderCreationID,
			PaymentID:       data.PaymentID,
			OrderID:         data.OrderID,
			Signature:       data.Signature,
		})
		newBalance := topUp.NewBalance.InexactFloat64()

		switch {
		case err == nil:
			render.JSON(w, response{IsOk: true, Message: "Payment verified", NewBalance: &newBalance})
		case errors.Is(err, apperrors.ErrPaymentAlreadyProcessed):
			render.JSON(w, response{IsOk: true, Message: "Payment already processed", NewBalance: &newBalance})
		case errors.Is(err, apperrors.ErrSignatureInvalid):
			l.Warn("Payment signature rejected", "email", email, "order_id", data.OrderCreationID)
			render.JSONStatus(w, response{IsOk: false, Message: "Payment verification failed"}, http.StatusBadRequest)
		default:
			code, message := errorStatus(err, "Failed to verify payment")
			if code >= http.StatusInternalServerError {
				l.Error("Failed to verify payment", "error", err)
			}
			render.JSONStatus(w, response{IsOk: false, Message: message}, code)
		}
	})
}
