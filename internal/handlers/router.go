package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/handlers/middleware"
	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth    authService
	Wallet  walletService
	Payment paymentService
	TopUp   topUpService
	Vending vendingService
	Health  healthChecker

	// Bound for the health ping, 2 seconds if zero
	HealthTimeout time.Duration

	// Prometheus handler and request metrics middleware, both optional
	Metrics           http.Handler
	MetricsMiddleware func(http.Handler) http.Handler

	// Browser origins of the portal, any if empty
	AllowedOrigins []string

	// Per client request limit, disabled if nil
	RateLimiter *middleware.RateLimiter
}

func NewRouter(s Services, logger logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth)

	apiwallet := http.NewServeMux()
	apiwallet.Handle("POST /get-balance", withAuth(handleGetBalance(s.Wallet, logger)))
	apiwallet.Handle("POST /get-transactions", withAuth(handleGetTransactions(s.Wallet, logger)))
	apiwallet.Handle("POST /update-balance", withAuth(handleUpdateBalance(s.Wallet, logger)))

	apipayments := http.NewServeMux()
	apipayments.Handle("POST /create-order", withAuth(handleCreateOrder(s.Payment, logger)))
	apipayments.Handle("POST /verify", withAuth(handleVerifyPayment(s.TopUp, logger)))

	apivending := http.NewServeMux()
	apivending.Handle("GET /items", handleListItems(s.Vending))
	apivending.Handle("POST /purchase", withAuth(handlePurchase(s.Vending, logger)))

	root := http.NewServeMux()
	root.Handle("/api/wallet/", http.StripPrefix("/api/wallet", apiwallet))
	root.Handle("/api/payments/", http.StripPrefix("/api/payments", apipayments))
	root.Handle("/api/vending/", http.StripPrefix("/api/vending", apivending))
	root.Handle("GET /health", handleHealth(s.Health, s.HealthTimeout, logger))
	if s.Metrics != nil {
		root.Handle("GET /metrics", s.Metrics)
	}

	mds := []func(http.Handler) http.Handler{
		middleware.LoggerMiddleware(logger),
		middleware.CORSMiddleware(s.AllowedOrigins),
	}
	if s.MetricsMiddleware != nil {
		mds = append(mds, s.MetricsMiddleware)
	}
	if s.RateLimiter != nil {
		mds = append(mds, s.RateLimiter.Middleware())
	}

	return chain(root, mds...)
}

type authService interface {
	// Get request and return session if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.Session, error)
}

type walletService interface {
	GetBalance(ctx context.Context, email string) (decimal.Decimal, error)
	GetTransactions(ctx context.Context, email string) (models.History, error)
	UpdateBalance(ctx context.Context, email string, amount decimal.Decimal, opts ...wallet.MutationOption) (models.BalanceUpdate, error)
}

type paymentService interface {
	CreateOrder(ctx context.Context, email string, amount decimal.Decimal, currency string) (models.PaymentOrder, error)
}

type topUpService interface {
	// Has to return apperrors.ErrPaymentAlreadyProcessed with current balance if order already credited
	Confirm(ctx context.Context, email string, cb models.PaymentCallback) (models.TopUp, error)
}

type vendingService interface {
	Items() []models.VendingItem
	Purchase(ctx context.Context, email string, lines []models.LineItem) (models.Purchase, error)
}

type healthChecker interface {
	Ping(ctx context.Context) error
}
