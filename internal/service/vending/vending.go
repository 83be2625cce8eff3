package vending

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
)

type walletService interface {
	UpdateBalance(ctx context.Context, email string, amount decimal.Decimal, opts ...wallet.MutationOption) (models.BalanceUpdate, error)
}

type Service struct {
	catalog *Catalog
	wallet  walletService
}

func NewService(catalog *Catalog, ws walletService) *Service {
	return &Service{catalog: catalog, wallet: ws}
}

func (s *Service) Items() []models.VendingItem {
	return s.catalog.Items()
}

type purchaseLine struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type purchaseEvent struct {
	OrderID uuid.UUID      `json:"orderId"`
	Lines   []purchaseLine `json:"items"`
}

// Purchase debits the order total if the balance covers it
// Vending machine dispenses on the purchase event
func (s *Service) Purchase(ctx context.Context, email string, lines []models.LineItem) (models.Purchase, error) {
	priced, total, err := s.catalog.Price(lines)
	if err != nil {
		return models.Purchase{}, err
	}

	orderID := uuid.New()
	event := purchaseEvent{OrderID: orderID, Lines: make([]purchaseLine, 0, len(priced))}
	for _, l := range priced {
		event.Lines = append(event.Lines, purchaseLine{ItemID: l.Item.ID, Name: l.Item.Name, Quantity: l.Quantity, Total: l.Total})
	}

	update, err := s.wallet.UpdateBalance(ctx, email, total.Neg(),
		wallet.RequireFunds(),
		wallet.WithEvent(models.TopicPurchaseCompleted, event),
	)
	if err != nil {
		return models.Purchase{}, fmt.Errorf("failed to pay for order: %w", err)
	}

	return models.Purchase{
		OrderID:    orderID,
		Email:      email,
		Lines:      priced,
		Total:      total,
		NewBalance: update.Account.Balance,
		Status:     models.PurchaseStatusProcessing,
	}, nil
}
