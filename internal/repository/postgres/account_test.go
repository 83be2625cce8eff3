package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
	"github.com/nkiryanov/campuswallet/internal/testutil"
)

func TestAccount(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	mutation := func(email string, amount int64) repository.Mutation {
		return repository.Mutation{Email: email, Amount: decimal.NewFromInt(amount), AppliedAt: time.Now()}
	}

	t.Run("GetAccount", func(t *testing.T) {
		t.Run("get existing account", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Account().ApplyMutation(t.Context(), mutation("student@mbcet.ac.in", 100))
				require.NoError(t, err)

				account, err := storage.Account().GetAccount(t.Context(), "student@mbcet.ac.in")

				require.NoError(t, err, "getting account should not fail")
				require.NotEqual(t, uuid.Nil, account.ID)
				require.Equal(t, "student@mbcet.ac.in", account.Email)
				require.True(t, account.Balance.Equal(decimal.NewFromInt(100)), "balance should be 100")
			})
		})

		t.Run("get nonexistent account", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Account().GetAccount(t.Context(), "nobody@mbcet.ac.in")

				require.Error(t, err, "getting nonexistent account should fail")
				require.ErrorIs(t, err, apperrors.ErrAccountNotFound, "should return well known error")
			})
		})

		t.Run("email is case sensitive", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Account().ApplyMutation(t.Context(), mutation("Student@mbcet.ac.in", 10))
				require.NoError(t, err)

				_, err = storage.Account().GetAccount(t.Context(), "student@mbcet.ac.in")

				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})
		})
	})

	t.Run("ApplyMutation", func(t *testing.T) {
		t.Run("create account on first deposit", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				update, err := storage.Account().ApplyMutation(t.Context(), mutation("new@mbcet.ac.in", 50))

				require.NoError(t, err, "first mutation should create account")
				require.True(t, update.Account.Balance.Equal(decimal.NewFromInt(50)), "new balance should be 50")
				require.Equal(t, update.Account.ID, update.Transaction.AccountID)
				require.True(t, update.Transaction.Amount.Equal(decimal.NewFromInt(50)))
				require.Equal(t, models.TransactionTypeDeposit, update.Transaction.Type())

				transactions, err := storage.Account().ListTransactions(t.Context(), update.Account.ID)
				require.NoError(t, err)
				require.Len(t, transactions, 1, "exactly one transaction should be recorded")
			})
		})

		t.Run("withdrawal from existing account", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Account().ApplyMutation(t.Context(), mutation("existing@mbcet.ac.in", 100))
				require.NoError(t, err)

				update, err := storage.Account().ApplyMutation(t.Context(), mutation("existing@mbcet.ac.in", -30))

				require.NoError(t, err)
				require.True(t, update.Account.Balance.Equal(decimal.NewFromInt(70)), "balance should be 70 after withdrawal")
				require.Equal(t, models.TransactionTypeWithdrawal, update.Transaction.Type())
				require.True(t, update.Transaction.AbsAmount().Equal(decimal.NewFromInt(30)))
			})
		})

		t.Run("withdrawal may create negative balance", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				update, err := storage.Account().ApplyMutation(t.Context(), mutation("debtor@mbcet.ac.in", -15))

				require.NoError(t, err)
				require.True(t, update.Account.Balance.Equal(decimal.NewFromInt(-15)))
			})
		})

		t.Run("balance overflowing money column is validation error", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Account().ApplyMutation(t.Context(), repository.Mutation{
					Email:     "rich@mbcet.ac.in",
					Amount:    decimal.RequireFromString("999999999999.99"),
					AppliedAt: time.Now(),
				})
				require.NoError(t, err)

				_, err = storage.Account().ApplyMutation(t.Context(), mutation("rich@mbcet.ac.in", 1))

				require.ErrorIs(t, err, apperrors.ErrValidation)
			})
		})

		t.Run("funded debit", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Account().ApplyMutation(t.Context(), mutation("buyer@mbcet.ac.in", 40))
				require.NoError(t, err)

				t.Run("enough funds", func(t *testing.T) {
					inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
						m := mutation("buyer@mbcet.ac.in", -40)
						m.RequireFunds = true

						update, err := storage.Account().ApplyMutation(t.Context(), m)

						require.NoError(t, err)
						require.True(t, update.Account.Balance.IsZero(), "whole balance may be spent")
					})
				})

				t.Run("insufficient funds", func(t *testing.T) {
					inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
						m := mutation("buyer@mbcet.ac.in", -41)
						m.RequireFunds = true

						_, err := storage.Account().ApplyMutation(t.Context(), m)
						require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

						account, err := storage.Account().GetAccount(t.Context(), "buyer@mbcet.ac.in")
						require.NoError(t, err)
						require.True(t, account.Balance.Equal(decimal.NewFromInt(40)), "balance must stay untouched")

						transactions, err := storage.Account().ListTransactions(t.Context(), account.ID)
						require.NoError(t, err)
						require.Len(t, transactions, 1, "no transaction should be appended")
					})
				})

				t.Run("missing account", func(t *testing.T) {
					inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
						m := mutation("ghost@mbcet.ac.in", -1)
						m.RequireFunds = true

						_, err := storage.Account().ApplyMutation(t.Context(), m)

						require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
					})
				})
			})
		})

		t.Run("balance reconciles with transactions", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				amounts := []int64{50, -20, 15, -5, 100, -40}
				sum := decimal.Zero
				for _, a := range amounts {
					_, err := storage.Account().ApplyMutation(t.Context(), mutation("ledger@mbcet.ac.in", a))
					require.NoError(t, err)
					sum = sum.Add(decimal.NewFromInt(a))
				}

				account, err := storage.Account().GetAccount(t.Context(), "ledger@mbcet.ac.in")
				require.NoError(t, err)
				transactions, err := storage.Account().ListTransactions(t.Context(), account.ID)
				require.NoError(t, err)

				require.True(t, account.Balance.Equal(sum), "balance %s should equal sum of mutations %s", account.Balance, sum)
				require.Len(t, transactions, len(amounts))

				logged := decimal.Zero
				for i, tr := range transactions {
					require.True(t, tr.Amount.Equal(decimal.NewFromInt(amounts[i])), "transactions should keep insertion order")
					logged = logged.Add(tr.Amount)
				}
				require.True(t, logged.Equal(account.Balance), "transaction log should reconcile with balance")
			})
		})
	})

	t.Run("ListTransactions", func(t *testing.T) {
		t.Run("unknown account", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				transactions, err := storage.Account().ListTransactions(t.Context(), uuid.New())

				require.NoError(t, err, "listing transactions for unknown account should not fail")
				require.Empty(t, transactions)
			})
		})
	})

	// Run against the pool: concurrent mutations need their own connections
	t.Run("concurrent mutations are not lost", func(t *testing.T) {
		storage := NewStorage(pg.Pool)
		email := "concurrent-" + uuid.NewString() + "@mbcet.ac.in"

		_, err := storage.Account().ApplyMutation(t.Context(), mutation(email, 100))
		require.NoError(t, err)

		const workers = 10
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := storage.Account().ApplyMutation(t.Context(), mutation(email, 10))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		account, err := storage.Account().GetAccount(t.Context(), email)
		require.NoError(t, err)
		require.True(t, account.Balance.Equal(decimal.NewFromInt(100+10*workers)), "every mutation should be applied, got %s", account.Balance)

		transactions, err := storage.Account().ListTransactions(t.Context(), account.ID)
		require.NoError(t, err)
		require.Len(t, transactions, workers+1)
	})

	t.Run("concurrent first mutations create one account", func(t *testing.T) {
		storage := NewStorage(pg.Pool)
		email := "race-" + uuid.NewString() + "@mbcet.ac.in"

		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := storage.Account().ApplyMutation(t.Context(), mutation(email, 10))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		account, err := storage.Account().GetAccount(t.Context(), email)
		require.NoError(t, err)
		require.True(t, account.Balance.Equal(decimal.NewFromInt(20)), "both first deposits should be applied")
	})
}
