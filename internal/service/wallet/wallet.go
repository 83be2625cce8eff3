package wallet

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultTimeout = 5 * time.Second

	// Money is stored with 2 decimal places
	amountScale = 2
)

// Option configures the wallet service
type Option func(*Service)

// Bound every store operation with the timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Record applied mutations, e.g. in metrics
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

type Recorder interface {
	ObserveMutation(transactionType string, amount decimal.Decimal)
}

type mutationOptions struct {
	requireFunds bool
	eventTopic   string
	eventPayload any
}

type MutationOption func(*mutationOptions)

// Reject debit that makes balance negative
func RequireFunds() MutationOption {
	return func(o *mutationOptions) {
		o.requireFunds = true
	}
}

// Save event to outbox in the same transaction as the mutation
// Payload is encoded as JSON; balance fields are added to it
func WithEvent(topic string, payload any) MutationOption {
	return func(o *mutationOptions) {
		o.eventTopic = topic
		o.eventPayload = payload
	}
}

// Service is the only writer of account balances
type Service struct {
	storage  repository.Storage
	timeout  time.Duration
	recorder Recorder
	now      func() time.Time
}

func NewService(storage repository.Storage, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		timeout: defaultTimeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetBalance returns zero for unknown email
func (s *Service) GetBalance(ctx context.Context, email string) (decimal.Decimal, error) {
	if err := validateEmail(email); err != nil {
		return decimal.Zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.storage.Account().GetAccount(ctx, email)

	switch {
	case err == nil:
		return account.Balance, nil
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
}

// GetTransactions returns account transactions in chronological order
// Unknown email is not an error: history is empty and not found
func (s *Service) GetTransactions(ctx context.Context, email string) (models.History, error) {
	history := models.History{Transactions: []models.Transaction{}}

	if err := validateEmail(email); err != nil {
		return history, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.storage.Account().GetAccount(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return history, nil
	default:
		return history, fmt.Errorf("failed to get account: %w", err)
	}

	transactions, err := s.storage.Account().ListTransactions(ctx, account.ID)
	if err != nil {
		return history, fmt.Errorf("failed to list transactions: %w", err)
	}

	history.Found = true
	if len(transactions) > 0 {
		history.Transactions = transactions
	}

	return history, nil
}

// UpdateBalance adds signed amount to the balance and appends the transaction atomically
// Account is created on the first mutation
func (s *Service) UpdateBalance(ctx context.Context, email string, amount decimal.Decimal, opts ...MutationOption) (models.BalanceUpdate, error) {
	var update models.BalanceUpdate

	if err := validateEmail(email); err != nil {
		return update, err
	}
	if err := validateAmount(amount); err != nil {
		return update, err
	}

	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mutation := repository.Mutation{
		Email:        email,
		Amount:       amount,
		AppliedAt:    s.now().UTC(),
		RequireFunds: o.requireFunds,
	}

	// Without event single statement is atomic on its own
	if o.eventTopic == "" {
		update, err := s.storage.Account().ApplyMutation(ctx, mutation)
		if err != nil {
			return update, fmt.Errorf("failed to update balance: %w", err)
		}
		s.observe(update)
		return update, nil
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		update, err = storage.Account().ApplyMutation(ctx, mutation)
		if err != nil {
			return err
		}

		event, err := newBalanceEvent(o.eventTopic, o.eventPayload, update)
		if err != nil {
			return err
		}

		return storage.Outbox().Add(ctx, event)
	})
	if err != nil {
		return models.BalanceUpdate{}, fmt.Errorf("failed to update balance: %w", err)
	}

	s.observe(update)
	return update, nil
}

func (s *Service) observe(update models.BalanceUpdate) {
	if s.recorder != nil {
		s.recorder.ObserveMutation(update.Transaction.Type(), update.Transaction.AbsAmount())
	}
}

// validateAmount checks amount is non-zero, within models.MaxAmount and has at most 2 decimal places
func validateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", apperrors.ErrValidation)
	}
	if amount.Abs().GreaterThan(models.MaxAmount) {
		return fmt.Errorf("%w: amount must not exceed %s", apperrors.ErrValidation, models.MaxAmount)
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return fmt.Errorf("%w: amount must have at most %d decimal places", apperrors.ErrValidation, amountScale)
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	return nil
}

type balanceEvent struct {
	Email           string          `json:"email"`
	TransactionID   uuid.UUID       `json:"transactionId"`
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"transactionAmount"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Timestamp       time.Time       `json:"timestamp"`
	Details         any             `json:"details,omitempty"`
}

func newBalanceEvent(topic string, details any, update models.BalanceUpdate) (models.Event, error) {
	payload, err := json.Marshal(balanceEvent{
		Email:           update.Account.Email,
		TransactionID:   update.Transaction.ID,
		TransactionType: update.Transaction.Type(),
		Amount:          update.Transaction.AbsAmount(),
		NewBalance:      update.Account.Balance,
		Timestamp:       update.Transaction.CreatedAt,
		Details:         details,
	})
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return models.Event{
		ID:        uuid.New(),
		Topic:     topic,
		Key:       update.Account.Email,
		Payload:   payload,
		CreatedAt: update.Transaction.CreatedAt,
	}, nil
}
