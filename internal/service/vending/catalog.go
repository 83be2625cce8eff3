package vending

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
)

// Menu of the canteen vending machine
var DefaultItems = []models.VendingItem{
	{ID: "parotta", Name: "Parotta", Price: decimal.NewFromInt(15)},
	{ID: "biriyani", Name: "Biriyani", Price: decimal.NewFromInt(10)},
	{ID: "chapatti", Name: "Chapatti", Price: decimal.NewFromInt(25)},
	{ID: "chicken-curry", Name: "Chicken Curry", Price: decimal.NewFromInt(20)},
	{ID: "beef-curry", Name: "Beef Curry", Price: decimal.NewFromInt(30)},
	{ID: "fish-curry", Name: "Fish Curry", Price: decimal.NewFromInt(30)},
	{ID: "veg-curry", Name: "Veg Curry", Price: decimal.NewFromInt(15)},
	{ID: "meals", Name: "Meals", Price: decimal.NewFromInt(50)},
}

const MaxQuantity = 20

type Catalog struct {
	items []models.VendingItem
	byID  map[string]models.VendingItem
}

func NewCatalog(items []models.VendingItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.VendingItem, 0, len(items)),
		byID:  make(map[string]models.VendingItem, len(items)),
	}

	for _, item := range items {
		if item.ID == "" || !item.Price.IsPositive() {
			return nil, fmt.Errorf("invalid vending item %q", item.ID)
		}
		if _, ok := c.byID[item.ID]; ok {
			return nil, fmt.Errorf("duplicate vending item %q", item.ID)
		}
		c.byID[item.ID] = item
		c.items = append(c.items, item)
	}

	return c, nil
}

// Items in menu order
func (c *Catalog) Items() []models.VendingItem {
	return slices.Clone(c.items)
}

// Price the order lines
// Lines of the same item are merged keeping the first occurrence order
func (c *Catalog) Price(lines []models.LineItem) ([]models.PurchaseLine, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: order is empty", apperrors.ErrValidation)
	}

	priced := make([]models.PurchaseLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		item, ok := c.byID[strings.ToLower(strings.TrimSpace(line.ItemID))]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %q", apperrors.ErrItemNotFound, line.ItemID)
		}
		if line.Quantity < 1 {
			return nil, decimal.Zero, fmt.Errorf("%w: quantity of %s must be positive", apperrors.ErrValidation, item.Name)
		}

		i, seen := index[item.ID]
		if !seen {
			i = len(priced)
			index[item.ID] = i
			priced = append(priced, models.PurchaseLine{Item: item})
		}

		priced[i].Quantity += line.Quantity
		if priced[i].Quantity > MaxQuantity {
			return nil, decimal.Zero, fmt.Errorf("%w: at most %d of %s per order", apperrors.ErrValidation, MaxQuantity, item.Name)
		}
		priced[i].Total = item.Price.Mul(decimal.NewFromInt(int64(priced[i].Quantity)))
	}

	for _, line := range priced {
		total = total.Add(line.Total)
	}

	return priced, total, nil
}
