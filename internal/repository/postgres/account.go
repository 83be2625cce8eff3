package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const getAccount = `-- name: GetAccount
SELECT id, email, balance, created_at, updated_at FROM accounts
WHERE email = $1
`

func (r *AccountRepo) GetAccount(ctx context.Context, email string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getAccount, email)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, dbError(err)
	}
}

const listTransactions = `-- name: ListTransactions
SELECT seq, id, account_id, amount, created_at FROM transactions
WHERE account_id = $1
ORDER BY seq
`

func (r *AccountRepo) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, accountID)
	transactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transaction, error) {
		var t models.Transaction
		err := row.Scan(&t.Seq, &t.ID, &t.AccountID, &t.Amount, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, dbError(err)
	}

	return transactions, nil
}

// Upsert the account incrementing balance and append the transaction in one statement
// The row lock taken by the upsert holds concurrent mutations of the account until commit,
// so transactions seq follows the order balance changes were applied
const applyMutation = `-- name: ApplyMutation
WITH account AS (
	INSERT INTO accounts AS a (id, email, balance, created_at, updated_at)
	VALUES ($1::uuid, $2::text, $3::numeric, $4::timestamptz, $4::timestamptz)
	ON CONFLICT (email) DO UPDATE
	SET balance = a.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	RETURNING id, email, balance, created_at, updated_at
), entry AS (
	INSERT INTO transactions (id, account_id, amount, created_at)
	SELECT $5::uuid, account.id, $3::numeric, $4::timestamptz FROM account
	RETURNING seq, id, account_id, amount, created_at
)
SELECT
	account.id, account.email, account.balance, account.created_at, account.updated_at,
	entry.seq, entry.id, entry.account_id, entry.amount, entry.created_at
FROM account, entry
`

// Debit the account only if the resulting balance is not negative
// Missing account never has enough funds for a debit
const applyFundedMutation = `-- name: ApplyFundedMutation
WITH account AS (
	UPDATE accounts
	SET balance = balance + $2::numeric, updated_at = $3::timestamptz
	WHERE email = $1::text AND balance + $2::numeric >= 0
	RETURNING id, email, balance, created_at, updated_at
), entry AS (
	INSERT INTO transactions (id, account_id, amount, created_at)
	SELECT $4::uuid, account.id, $2::numeric, $3::timestamptz FROM account
	RETURNING seq, id, account_id, amount, created_at
)
SELECT
	account.id, account.email, account.balance, account.created_at, account.updated_at,
	entry.seq, entry.id, entry.account_id, entry.amount, entry.created_at
FROM account, entry
`

func (r *AccountRepo) ApplyMutation(ctx context.Context, m repository.Mutation) (models.BalanceUpdate, error) {
	var rows pgx.Rows
	if m.RequireFunds {
		rows, _ = r.DB.Query(ctx, applyFundedMutation, m.Email, m.Amount, m.AppliedAt, uuid.New())
	} else {
		rows, _ = r.DB.Query(ctx, applyMutation, uuid.New(), m.Email, m.Amount, m.AppliedAt, uuid.New())
	}

	update, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.BalanceUpdate, error) {
		var u models.BalanceUpdate
		err := row.Scan(
			&u.Account.ID, &u.Account.Email, &u.Account.Balance, &u.Account.CreatedAt, &u.Account.UpdatedAt,
			&u.Transaction.Seq, &u.Transaction.ID, &u.Transaction.AccountID, &u.Transaction.Amount, &u.Transaction.CreatedAt,
		)
		return u, err
	})

	switch {
	case err == nil:
		return update, nil
	case errors.Is(err, pgx.ErrNoRows) && m.RequireFunds:
		return update, apperrors.ErrBalanceInsufficient
	case errors.Is(err, pgx.ErrNoRows):
		return update, fmt.Errorf("%w: mutation not acknowledged for %s", apperrors.ErrPersistence, m.Email)
	default:
		return update, dbError(err)
	}
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
