package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/nkiryanov/campuswallet/internal/db"
	"github.com/nkiryanov/campuswallet/internal/events"
	"github.com/nkiryanov/campuswallet/internal/handlers"
	"github.com/nkiryanov/campuswallet/internal/handlers/middleware"
	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/metrics"
	"github.com/nkiryanov/campuswallet/internal/repository/postgres"
	"github.com/nkiryanov/campuswallet/internal/service/auth"
	"github.com/nkiryanov/campuswallet/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/campuswallet/internal/service/outbox"
	"github.com/nkiryanov/campuswallet/internal/service/payment"
	"github.com/nkiryanov/campuswallet/internal/service/payment/razorpay"
	"github.com/nkiryanov/campuswallet/internal/service/topup"
	"github.com/nkiryanov/campuswallet/internal/service/vending"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	pool      *pgxpool.Pool
	relay     *outbox.Relay
	publisher events.Publisher
	logger    logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, c.StoreTimeout)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	app, err := newServerApp(c, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return app, nil
}

func newServerApp(c *Config, pool *pgxpool.Pool, logger logger.Logger) (*ServerApp, error) {
	storage := postgres.NewStorage(pool)
	m := metrics.New()
	walletOpts := []wallet.Option{wallet.WithTimeout(c.StoreTimeout), wallet.WithRecorder(m)}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{AllowedDomain: c.AllowedEmailDomain}, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	gateway, err := razorpay.NewClient(razorpay.Config{
		URL:       c.RazorpayURL,
		KeyID:     c.RazorpayKeyID,
		KeySecret: c.RazorpayKeySecret,
		Timeout:   c.GatewayTimeout,
	}, logger.WithGroup("razorpay"))
	if err != nil {
		return nil, fmt.Errorf("error while creating gateway client. Err: %w", err)
	}

	catalog, err := vending.NewCatalog(vending.DefaultItems)
	if err != nil {
		return nil, fmt.Errorf("error while loading vending catalog. Err: %w", err)
	}

	walletService := wallet.NewService(storage, walletOpts...)
	paymentService := payment.NewService(gateway, storage, c.Currency, payment.WithTimeout(c.StoreTimeout))
	topUpService := topup.NewService(paymentService, storage, topup.WithTimeout(c.StoreTimeout), topup.WithRecorder(m))
	vendingService := vending.NewService(catalog, walletService)

	// Ledger events go to kafka if brokers configured, to the log otherwise
	var publisher events.Publisher = events.NewLogPublisher(logger.WithGroup("events"))
	if brokers := events.ParseBrokers(c.KafkaBrokers); len(brokers) > 0 {
		publisher, err = events.NewKafkaPublisher(brokers, logger.WithGroup("kafka"))
		if err != nil {
			return nil, fmt.Errorf("error while creating kafka publisher. Err: %w", err)
		}
	}
	relay := outbox.New(outbox.Config{Recorder: m}, storage.Outbox(), publisher, logger.WithGroup("outbox"))

	var limiter *middleware.RateLimiter
	if c.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(rate.Limit(c.RateLimit), c.RateBurst)
	}

	mux := handlers.NewRouter(handlers.Services{
		Auth:              authService,
		Wallet:            walletService,
		Payment:           paymentService,
		TopUp:             topUpService,
		Vending:           vendingService,
		Health:            storage,
		HealthTimeout:     c.StoreTimeout,
		Metrics:           m.Handler(),
		MetricsMiddleware: m.Middleware,
		AllowedOrigins:    c.AllowedOrigins(),
		RateLimiter:       limiter,
	}, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		pool:       pool,
		relay:      relay,
		publisher:  publisher,
		logger:     logger,
	}, nil
}

// Run starts http server and outbox relay and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	relayStopped := s.relay.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-relayStopped

	if closeErr := s.publisher.Close(); closeErr != nil {
		s.logger.Warn("Failed to close event publisher", "error", closeErr)
	}

	return err
}
