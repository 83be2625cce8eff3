package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

// MaxAmount bounds one mutation or payment order
// Money columns are NUMERIC(14,2), the cap leaves headroom for balances
var MaxAmount = decimal.RequireFromString("9999999999.99")

type Account struct {
	ID        uuid.UUID
	Email     string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one applied balance mutation.
// Amount is signed: positive for deposits, negative for withdrawals.
type Transaction struct {
	ID        uuid.UUID
	Seq       int64
	AccountID uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Type of the transaction derived from the sign of the applied amount
func (t Transaction) Type() string {
	return TransactionTypeOf(t.Amount)
}

// Absolute amount of the transaction, never negative
func (t Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// TransactionTypeOf returns deposit for positive amounts and withdrawal otherwise
func TransactionTypeOf(amount decimal.Decimal) string {
	if amount.IsPositive() {
		return TransactionTypeDeposit
	}
	return TransactionTypeWithdrawal
}

// History of account transactions in chronological order
// Found is false when no account exists for the email
type History struct {
	Found        bool
	Transactions []Transaction
}

// Result of the applied balance mutation
type BalanceUpdate struct {
	Account     Account
	Transaction Transaction
}
