package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/logger"
)

const (
	DefaultURL     = "https://api.razorpay.com"
	defaultTimeout = 10 * time.Second
)

const (
	CodeTimeout     = "timeout"
	CodeTransport   = "transport"
	CodeBadStatus   = "bad-status"
	CodeBadResponse = "bad-response"
)

// Error describes failed call to the gateway
// It always matches apperrors.ErrGateway
type Error struct {
	Code       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error, code: %s, status: %d, error: %v", e.Code, e.StatusCode, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{apperrors.ErrGateway, e.Err}
}

func newError(code string, status int, err error) *Error {
	return &Error{Code: code, StatusCode: status, Err: err}
}

type Config struct {
	// Gateway API address, DefaultURL if empty
	URL string

	// API key pair; key secret signs checkout callbacks too
	KeyID     string
	KeySecret string

	// Bound for one gateway call, default 10 seconds
	Timeout time.Duration
}

type Client struct {
	url       string
	keyID     string
	keySecret string
	timeout   time.Duration

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, l logger.Logger) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("gateway key id and secret must not be empty")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		url:       strings.TrimRight(cfg.URL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		timeout:   cfg.Timeout,
		client:    &http.Client{},
		logger:    l,
	}, nil
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder mints the gateway order
// amount is in the currency subunits (paise for INR)
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string, receipt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return "", newError(CodeTransport, 0, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", newError(CodeTransport, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", newError(CodeTimeout, 0, fmt.Errorf("gateway did not respond in %s: %w", c.timeout, err))
		}
		return "", newError(CodeTransport, 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Gateway rejected order", "status_code", resp.StatusCode, "receipt", receipt)
		return "", newError(CodeBadStatus, resp.StatusCode, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	var order createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		c.logger.Warn("Failed to decode gateway response", "error", err)
		return "", newError(CodeBadResponse, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if order.ID == "" {
		return "", newError(CodeBadResponse, resp.StatusCode, errors.New("order id is empty"))
	}

	c.logger.Debug("Gateway order created", "order_id", order.ID, "amount", order.Amount, "currency", order.Currency)
	return order.ID, nil
}

// VerifySignature checks the checkout callback signature
// The gateway signs "orderID|paymentID" with HMAC-SHA256 keyed by the key secret
func (c *Client) VerifySignature(orderID string, paymentID string, signature string) error {
	expected := Sign(c.keySecret, orderID, paymentID)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex encoded", apperrors.ErrSignatureInvalid)
	}

	if !hmac.Equal(expected, got) {
		return apperrors.ErrSignatureInvalid
	}

	return nil
}

// Sign returns raw signature for the order and payment
func Sign(secret string, orderID string, paymentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}
