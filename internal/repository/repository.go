package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/models"
)

type Storage interface {
	Account() AccountRepo
	Payment() PaymentRepo
	Outbox() OutboxRepo

	// Ping checks the store is reachable
	Ping(ctx context.Context) error

	// Run fn in transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Mutation applied to account balance
type Mutation struct {
	Email     string
	Amount    decimal.Decimal
	AppliedAt time.Time

	// Apply only if the resulting balance is not negative
	// Missing account counts as zero balance
	RequireFunds bool
}

// Ledger repository interface
type AccountRepo interface {
	// Get account by email
	// If account not found must return apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, email string) (models.Account, error)

	// List account transactions in the order they were applied
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)

	// Atomically increment balance (creating the account if absent) and append the transaction
	// If funds are required but balance is insufficient must return apperrors.ErrBalanceInsufficient
	// If the store does not acknowledge the write must return apperrors.ErrPersistence
	ApplyMutation(ctx context.Context, m Mutation) (models.BalanceUpdate, error)
}

// Payment orders repository interface
type PaymentRepo interface {
	// Save new order
	// If order with the same id exists must return apperrors.ErrPaymentOrderExists
	CreateOrder(ctx context.Context, order models.PaymentOrder) (models.PaymentOrder, error)

	// If order not found must return apperrors.ErrPaymentOrderNotFound
	GetOrder(ctx context.Context, orderID string) (models.PaymentOrder, error)

	// Mark created order as paid
	// Order has to be created by the email owner, otherwise apperrors.ErrPaymentOrderNotFound
	// If order already paid must return apperrors.ErrPaymentAlreadyProcessed
	MarkPaid(ctx context.Context, orderID string, email string, paymentID string, paidAt time.Time) (models.PaymentOrder, error)
}

// Outbox repository interface
type OutboxRepo interface {
	Add(ctx context.Context, event models.Event) error

	// List not published events, oldest first
	ListPending(ctx context.Context, limit int) ([]models.Event, error)

	MarkPublished(ctx context.Context, eventID uuid.UUID, publishedAt time.Time) error
}
