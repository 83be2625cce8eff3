package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const PurchaseStatusProcessing = "Processing"

type VendingItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type LineItem struct {
	ItemID   string
	Quantity int
}

type PurchaseLine struct {
	Item     VendingItem
	Quantity int
	Total    decimal.Decimal
}

type Purchase struct {
	OrderID    uuid.UUID
	Email      string
	Lines      []PurchaseLine
	Total      decimal.Decimal
	NewBalance decimal.Decimal
	Status     string
}
