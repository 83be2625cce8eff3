package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
)

const (
	DefaultCurrency = "INR"

	defaultTimeout = 5 * time.Second
)

// Currency subunits in one unit (paise in rupee)
var subunits = decimal.NewFromInt(100)

type gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string, receipt string) (string, error)
	VerifySignature(orderID string, paymentID string, signature string) error
}

type Option func(*Service)

// Bound every store operation with the timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Service creates gateway orders and verifies checkout callbacks
// It never changes wallet balance
type Service struct {
	gateway  gateway
	storage  repository.Storage
	currency string
	timeout  time.Duration
}

func NewService(gw gateway, storage repository.Storage, currency string, opts ...Option) *Service {
	if currency == "" {
		currency = DefaultCurrency
	}

	s := &Service{
		gateway:  gw,
		storage:  storage,
		currency: strings.ToUpper(currency),
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateOrder mints gateway order for the top-up and remembers it for verification
// Empty currency means configured one
func (s *Service) CreateOrder(ctx context.Context, email string, amount decimal.Decimal, currency string) (models.PaymentOrder, error) {
	var order models.PaymentOrder

	if email == "" {
		return order, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if !amount.IsPositive() {
		return order, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if amount.GreaterThan(models.MaxAmount) {
		return order, fmt.Errorf("%w: amount must not exceed %s", apperrors.ErrValidation, models.MaxAmount)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return order, fmt.Errorf("%w: amount must have at most 2 decimal places", apperrors.ErrValidation)
	}
	if currency != "" && !strings.EqualFold(currency, s.currency) {
		return order, fmt.Errorf("%w: currency %s is not supported", apperrors.ErrValidation, currency)
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	orderID, err := s.gateway.CreateOrder(ctx, amount.Mul(subunits).IntPart(), s.currency, receipt)
	if err != nil {
		return order, fmt.Errorf("failed to create gateway order: %w", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err = s.storage.Payment().CreateOrder(storeCtx, models.PaymentOrder{
		OrderID:   orderID,
		Email:     email,
		Amount:    amount,
		Currency:  s.currency,
		Receipt:   receipt,
		Status:    models.PaymentStatusCreated,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return order, fmt.Errorf("failed to save payment order: %w", err)
	}

	return order, nil
}

// Verify checks the callback is signed by the gateway for the order created here
func (s *Service) Verify(cb models.PaymentCallback) error {
	if cb.OrderCreationID == "" || cb.PaymentID == "" || cb.Signature == "" {
		return fmt.Errorf("%w: callback is incomplete", apperrors.ErrValidation)
	}

	// Callback must be about the order which checkout was opened for
	if cb.OrderID != "" && cb.OrderID != cb.OrderCreationID {
		return fmt.Errorf("%w: order id does not match created order", apperrors.ErrSignatureInvalid)
	}

	if err := s.gateway.VerifySignature(cb.OrderCreationID, cb.PaymentID, cb.Signature); err != nil {
		return fmt.Errorf("failed to verify payment %s: %w", cb.PaymentID, err)
	}

	return nil
}
