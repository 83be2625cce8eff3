package vending

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
)

func TestCatalog(t *testing.T) {
	catalog, err := NewCatalog(DefaultItems)
	require.NoError(t, err)

	t.Run("items in menu order", func(t *testing.T) {
		items := catalog.Items()

		require.Len(t, items, 8)
		require.Equal(t, "Parotta", items[0].Name)
		require.Equal(t, "Meals", items[7].Name)
	})

	t.Run("items returned are a copy", func(t *testing.T) {
		items := catalog.Items()
		items[0].Price = decimal.Zero

		require.True(t, catalog.Items()[0].Price.Equal(decimal.NewFromInt(15)), "menu price must not change")
	})

	t.Run("price order", func(t *testing.T) {
		lines, total, err := catalog.Price([]models.LineItem{
			{ItemID: "meals", Quantity: 2},
			{ItemID: "parotta", Quantity: 3},
		})

		require.NoError(t, err)
		require.Len(t, lines, 2)
		require.True(t, lines[0].Total.Equal(decimal.NewFromInt(100)))
		require.True(t, lines[1].Total.Equal(decimal.NewFromInt(45)))
		require.True(t, total.Equal(decimal.NewFromInt(145)), "total should be 145, got %s", total)
	})

	t.Run("same item lines merged", func(t *testing.T) {
		lines, total, err := catalog.Price([]models.LineItem{
			{ItemID: "veg-curry", Quantity: 1},
			{ItemID: " Veg-Curry ", Quantity: 2},
		})

		require.NoError(t, err)
		require.Len(t, lines, 1)
		require.Equal(t, 3, lines[0].Quantity)
		require.True(t, total.Equal(decimal.NewFromInt(45)))
	})

	t.Run("invalid orders", func(t *testing.T) {
		tests := []struct {
			name    string
			lines   []models.LineItem
			wantErr error
		}{
			{"empty", nil, apperrors.ErrValidation},
			{"unknown item", []models.LineItem{{ItemID: "pizza", Quantity: 1}}, apperrors.ErrItemNotFound},
			{"zero quantity", []models.LineItem{{ItemID: "meals", Quantity: 0}}, apperrors.ErrValidation},
			{"too many", []models.LineItem{{ItemID: "meals", Quantity: MaxQuantity + 1}}, apperrors.ErrValidation},
			{"too many after merge", []models.LineItem{{ItemID: "meals", Quantity: 15}, {ItemID: "meals", Quantity: 6}}, apperrors.ErrValidation},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := catalog.Price(tt.lines)

				require.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("bad catalog", func(t *testing.T) {
		_, err := NewCatalog([]models.VendingItem{
			{ID: "tea", Name: "Tea", Price: decimal.NewFromInt(5)},
			{ID: "tea", Name: "Tea again", Price: decimal.NewFromInt(6)},
		})
		require.Error(t, err)

		_, err = NewCatalog([]models.VendingItem{{ID: "free", Name: "Free", Price: decimal.Zero}})
		require.Error(t, err)
	})
}
