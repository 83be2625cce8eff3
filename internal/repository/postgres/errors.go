package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
)

// dbError classifies driver errors
// Timeouts are retryable, connection failures mean the store is unreachable
// Amount overflowing a money column is a validation error
func dbError(err error) error {
	var pgErr *pgconn.PgError
	var connectErr *pgconn.ConnectError

	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.NumericValueOutOfRange:
		return fmt.Errorf("%w: amount out of range: %w", apperrors.ErrValidation, err)
	case errors.As(err, &pgErr):
		return fmt.Errorf("db error: %w", err)
	case pgconn.Timeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	case errors.As(err, &connectErr):
		return fmt.Errorf("%w: %w", apperrors.ErrConfiguration, err)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
