package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/handlers/render"
	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
)

type walletRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

func handleGetBalance(walletService walletService, l logger.Logger) http.Handler {
	type response struct {
		Balance float64 `json:"balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[walletRequest](w, r)
		if err != nil {
			return
		}

		email, err := sessionEmail(r, data.Email)
		if err != nil {
			serviceError(w, l, err, "Failed to get balance")
			return
		}

		balance, err := walletService.GetBalance(r.Context(), email)
		if err != nil {
			serviceError(w, l, err, "Failed to get balance")
			return
		}

		render.JSON(w, response{Balance: balance.InexactFloat64()})
	})
}

func handleGetTransactions(walletService walletService, l logger.Logger) http.Handler {
	type transaction struct {
		ID                uuid.UUID `json:"id"`
		TransactionType   string    `json:"transactionType"`
		TransactionAmount float64   `json:"transactionAmount"`
		Timestamp         time.Time `json:"timestamp"`
	}
	type data struct {
		Transactions []transaction `json:"transactions"`
	}
	type response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    *data  `json:"data,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[walletRequest](w, r)
		if err != nil {
			return
		}

		email, err := sessionEmail(r, req.Email)
		if err != nil {
			serviceError(w, l, err, "Failed to retrieve transactions")
			return
		}

		history, err := walletService.GetTransactions(r.Context(), email)
		if err != nil {
			l.Error("Failed to retrieve transactions", "error", err)
			code, _ := errorStatus(err, "")
			render.JSONStatus(w, response{Success: false, Message: "Failed to retrieve transactions"}, code)
			return
		}

		transactions := make([]transaction, 0, len(history.Transactions))
		for _, t := range history.Transactions {
			transactions = append(transactions, transaction{
				ID:                t.ID,
				TransactionType:   t.Type(),
				TransactionAmount: t.AbsAmount().InexactFloat64(),
				Timestamp:         t.CreatedAt,
			})
		}

		message := "Transactions retrieved successfully"
		if !history.Found {
			message = "User not found"
		}

		render.JSON(w, response{Success: true, Message: message, Data: &data{Transactions: transactions}})
	})
}

// Wallet is credited only by verified payments, so the endpoint accepts debits only
// Deposits, including the first one creating an account, go through wallet.Service.UpdateBalance from top-up
func handleUpdateBalance(walletService walletService, l logger.Logger) http.Handler {
	type request struct {
		Email  string          `json:"email" validate:"omitempty,email"`
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}
	type response struct {
		Message    string  `json:"message"`
		NewBalance float64 `json:"newBalance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		email, err := sessionEmail(r, data.Email)
		if err != nil {
			serviceError(w, l, err, "Failed to update balance")
			return
		}

		if data.Amount.IsPositive() {
			render.ServiceError(w, "Deposits are credited by verified payments only", http.StatusForbidden)
			return
		}

		update, err := walletService.UpdateBalance(r.Context(), email, data.Amount,
			wallet.RequireFunds(),
			wallet.WithEvent(models.TopicBalanceUpdated, nil),
		)
		if err != nil {
			serviceError(w, l, err, "Failed to update balance")
			return
		}

		render.JSON(w, response{Message: "Wallet balance updated", NewBalance: update.Account.Balance.InexactFloat64()})
	})
}
