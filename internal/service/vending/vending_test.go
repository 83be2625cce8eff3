package vending

import (
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
	"github.com/nkiryanov/campuswallet/internal/repository/postgres"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
	"github.com/nkiryanov/campuswallet/internal/testutil"
)

func TestVending_Purchase(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	catalog, err := NewCatalog(DefaultItems)
	require.NoError(t, err)

	inTx := func(t *testing.T, fn func(s *Service, w *wallet.Service, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			w := wallet.NewService(storage)
			fn(NewService(catalog, w), w, storage)
		})
	}

	t.Run("debits total", func(t *testing.T) {
		inTx(t, func(s *Service, w *wallet.Service, storage repository.Storage) {
			testutil.Fund(t, storage, "hungry@mbcet.ac.in", "100")

			purchase, err := s.Purchase(t.Context(), "hungry@mbcet.ac.in", []models.LineItem{
				{ItemID: "biriyani", Quantity: 2},
				{ItemID: "chicken-curry", Quantity: 1},
			})

			require.NoError(t, err)
			require.Equal(t, models.PurchaseStatusProcessing, purchase.Status)
			require.True(t, purchase.Total.Equal(decimal.NewFromInt(40)))
			require.True(t, purchase.NewBalance.Equal(decimal.NewFromInt(60)))

			history, err := w.GetTransactions(t.Context(), "hungry@mbcet.ac.in")
			require.NoError(t, err)
			require.Len(t, history.Transactions, 2)
			require.Equal(t, models.TransactionTypeWithdrawal, history.Transactions[1].Type())

			events, err := storage.Outbox().ListPending(t.Context(), 10)
			require.NoError(t, err)
			require.Len(t, events, 1)
			require.Equal(t, models.TopicPurchaseCompleted, events[0].Topic)

			var payload struct {
				Details purchaseEvent `json:"details"`
			}
			require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
			require.Equal(t, purchase.OrderID, payload.Details.OrderID)
			require.Len(t, payload.Details.Lines, 2)
		})
	})

	t.Run("exact balance", func(t *testing.T) {
		inTx(t, func(s *Service, _ *wallet.Service, storage repository.Storage) {
			testutil.Fund(t, storage, "exact@mbcet.ac.in", "50")

			purchase, err := s.Purchase(t.Context(), "exact@mbcet.ac.in", []models.LineItem{{ItemID: "meals", Quantity: 1}})

			require.NoError(t, err)
			require.True(t, purchase.NewBalance.IsZero())
		})
	})

	t.Run("insufficient balance", func(t *testing.T) {
		inTx(t, func(s *Service, w *wallet.Service, storage repository.Storage) {
			testutil.Fund(t, storage, "broke@mbcet.ac.in", "20")

			_, err := s.Purchase(t.Context(), "broke@mbcet.ac.in", []models.LineItem{{ItemID: "fish-curry", Quantity: 1}})
			require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

			balance, err := w.GetBalance(t.Context(), "broke@mbcet.ac.in")
			require.NoError(t, err)
			require.True(t, balance.Equal(decimal.NewFromInt(20)))

			events, err := storage.Outbox().ListPending(t.Context(), 10)
			require.NoError(t, err)
			require.Empty(t, events, "failed purchase should not be published")
		})
	})

	t.Run("no account", func(t *testing.T) {
		inTx(t, func(s *Service, _ *wallet.Service, _ repository.Storage) {
			_, err := s.Purchase(t.Context(), "new@mbcet.ac.in", []models.LineItem{{ItemID: "parotta", Quantity: 1}})

			require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
		})
	})

	t.Run("unknown item", func(t *testing.T) {
		inTx(t, func(s *Service, _ *wallet.Service, _ repository.Storage) {
			_, err := s.Purchase(t.Context(), "hungry@mbcet.ac.in", []models.LineItem{{ItemID: "pizza", Quantity: 1}})

			require.ErrorIs(t, err, apperrors.ErrItemNotFound)
		})
	})
}
