package topup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
)

const defaultTimeout = 5 * time.Second

type verifier interface {
	Verify(cb models.PaymentCallback) error
}

type Option func(*Service)

// Bound the whole confirmation transaction with the timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Record credited top-ups once they are committed
func WithRecorder(r wallet.Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// Service credits the wallet for verified gateway payments
type Service struct {
	verifier verifier
	storage  repository.Storage
	timeout  time.Duration
	recorder wallet.Recorder
}

func NewService(v verifier, storage repository.Storage, opts ...Option) *Service {
	s := &Service{
		verifier: v,
		storage:  storage,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type topUpEvent struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Currency  string `json:"currency"`
}

// Confirm verifies the callback and then credits the order amount once
// Nothing is written if verification fails
// Second confirmation of the same order returns apperrors.ErrPaymentAlreadyProcessed with current balance
func (s *Service) Confirm(ctx context.Context, email string, cb models.PaymentCallback) (models.TopUp, error) {
	var topUp models.TopUp
	var update models.BalanceUpdate

	if err := s.verifier.Verify(cb); err != nil {
		return topUp, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		order, err := storage.Payment().MarkPaid(ctx, cb.OrderCreationID, email, cb.PaymentID, time.Now().UTC())
		if err != nil {
			topUp.Order = order
			return err
		}

		update, err = wallet.NewService(storage, wallet.WithTimeout(s.timeout)).UpdateBalance(ctx, email, order.Amount,
			wallet.WithEvent(models.TopicTopUpCompleted, topUpEvent{
				OrderID:   order.OrderID,
				PaymentID: cb.PaymentID,
				Currency:  order.Currency,
			}),
		)
		if err != nil {
			return err
		}

		topUp = models.TopUp{Order: order, NewBalance: update.Account.Balance}
		return nil
	})

	switch {
	case err == nil:
		if s.recorder != nil {
			s.recorder.ObserveMutation(update.Transaction.Type(), update.Transaction.AbsAmount())
		}
		return topUp, nil
	case errors.Is(err, apperrors.ErrPaymentAlreadyProcessed):
		balance, balanceErr := wallet.NewService(s.storage, wallet.WithTimeout(s.timeout)).GetBalance(ctx, email)
		if balanceErr != nil {
			return topUp, fmt.Errorf("failed to get balance: %w", balanceErr)
		}
		topUp.NewBalance = balance
		return topUp, err
	default:
		return models.TopUp{}, fmt.Errorf("failed to credit payment %s: %w", cb.PaymentID, err)
	}
}
