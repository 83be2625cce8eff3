package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
)

// Gateway order created before checkout
type PaymentOrder struct {
	OrderID   string
	Email     string
	Amount    decimal.Decimal
	Currency  string
	Receipt   string
	Status    string
	PaymentID *string // nil until paid
	CreatedAt time.Time
	PaidAt    *time.Time
}

// Signed callback returned by the gateway checkout
type PaymentCallback struct {
	OrderCreationID string
	PaymentID       string
	OrderID         string
	Signature       string
}

// Credited top-up
type TopUp struct {
	Order      PaymentOrder
	NewBalance decimal.Decimal
}
