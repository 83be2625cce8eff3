package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/campuswallet/internal/handlers/render"
	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
)

type vendingItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func handleListItems(vendingService vendingService) http.Handler {
	type response struct {
		Items []vendingItem `json:"items"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := vendingService.Items()

		resp := response{Items: make([]vendingItem, 0, len(items))}
		for _, item := range items {
			resp.Items = append(resp.Items, vendingItem{ID: item.ID, Name: item.Name, Price: item.Price.InexactFloat64()})
		}

		render.JSON(w, resp)
	})
}

func handlePurchase(vendingService vendingService, l logger.Logger) http.Handler {
	type line struct {
		ID       string `json:"id" validate:"required"`
		Quantity int    `json:"quantity" validate:"required,min=1,max=20"`
	}
	type request struct {
		Items []line `json:"items" validate:"required,min=1,dive"`
	}
	type purchaseLine struct {
		vendingItem
		Quantity int     `json:"quantity"`
		Total    float64 `json:"total"`
	}
	type response struct {
		OrderID    uuid.UUID      `json:"orderId"`
		Items      []purchaseLine `json:"items"`
		Total      float64        `json:"total"`
		NewBalance float64        `json:"newBalance"`
		Status     string         `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		email, err := sessionEmail(r, "")
		if err != nil {
			serviceError(w, l, err, "Failed to place order")
			return
		}

		lines := make([]models.LineItem, 0, len(data.Items))
		for _, item := range data.Items {
			lines = append(lines, models.LineItem{ItemID: item.ID, Quantity: item.Quantity})
		}

		purchase, err := vendingService.Purchase(r.Context(), email, lines)
		if err != nil {
			serviceError(w, l, err, "Failed to place order")
			return
		}

		resp := response{
			OrderID:    purchase.OrderID,
			Items:      make([]purchaseLine, 0, len(purchase.Lines)),
			Total:      purchase.Total.InexactFloat64(),
			NewBalance: purchase.NewBalance.InexactFloat64(),
			Status:     purchase.Status,
		}
		for _, pl := range purchase.Lines {
			resp.Items = append(resp.Items, purchaseLine{
				vendingItem: vendingItem{ID: pl.Item.ID, Name: pl.Item.Name, Price: pl.Item.Price.InexactFloat64()},
				Quantity:    pl.Quantity,
				Total:       pl.Total.InexactFloat64(),
			})
		}

		render.JSON(w, resp)
	})
}
