package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
)

type PaymentRepo struct {
	DB DBTX
}

const createPaymentOrder = `-- name: CreatePaymentOrder
INSERT INTO payment_orders (order_id, email, amount, currency, receipt, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING order_id, email, amount, currency, receipt, status, payment_id, created_at, paid_at
`

func (r *PaymentRepo) CreateOrder(ctx context.Context, o models.PaymentOrder) (models.PaymentOrder, error) {
	rows, _ := r.DB.Query(ctx, createPaymentOrder, o.OrderID, o.Email, o.Amount, o.Currency, o.Receipt, o.Status, o.CreatedAt)
	order, err := pgx.CollectOneRow(rows, rowToPaymentOrder)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return order, fmt.Errorf("order %s: %w", o.OrderID, apperrors.ErrPaymentOrderExists)
		}
		return order, dbError(err)
	}

	return order, nil
}

const getPaymentOrder = `-- name: GetPaymentOrder
SELECT order_id, email, amount, currency, receipt, status, payment_id, created_at, paid_at
FROM payment_orders
WHERE order_id = $1
`

func (r *PaymentRepo) GetOrder(ctx context.Context, orderID string) (models.PaymentOrder, error) {
	rows, _ := r.DB.Query(ctx, getPaymentOrder, orderID)
	order, err := pgx.CollectOneRow(rows, rowToPaymentOrder)

	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, pgx.ErrNoRows):
		return order, apperrors.ErrPaymentOrderNotFound
	default:
		return order, dbError(err)
	}
}

// Transition created -> paid happens once; concurrent callers wait for the row lock
const markPaymentOrderPaid = `-- name: MarkPaymentOrderPaid
UPDATE payment_orders
SET status = $4, payment_id = $3, paid_at = $5
WHERE order_id = $1 AND email = $2 AND status = $6
RETURNING order_id, email, amount, currency, receipt, status, payment_id, created_at, paid_at
`

func (r *PaymentRepo) MarkPaid(ctx context.Context, orderID string, email string, paymentID string, paidAt time.Time) (models.PaymentOrder, error) {
	rows, _ := r.DB.Query(ctx, markPaymentOrderPaid,
		orderID, email, paymentID, models.PaymentStatusPaid, paidAt, models.PaymentStatusCreated,
	)
	order, err := pgx.CollectOneRow(rows, rowToPaymentOrder)

	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either order is not the email owner's or it was paid already
		existing, getErr := r.GetOrder(ctx, orderID)
		if getErr != nil {
			return order, getErr
		}
		if existing.Email != email {
			return order, apperrors.ErrPaymentOrderNotFound
		}
		return existing, apperrors.ErrPaymentAlreadyProcessed
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Payment id was used to pay another order
			return order, fmt.Errorf("payment %s: %w", paymentID, apperrors.ErrPaymentAlreadyProcessed)
		}
		return order, dbError(err)
	}
}

func rowToPaymentOrder(row pgx.CollectableRow) (models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := row.Scan(&o.OrderID, &o.Email, &o.Amount, &o.Currency, &o.Receipt, &o.Status, &o.PaymentID, &o.CreatedAt, &o.PaidAt)
	return o, err
}
