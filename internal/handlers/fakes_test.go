package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/service/wallet"
)

const testEmail = "student@mbcet.ac.in"

// Trust token value as session email, empty header is unauthorized
type fakeAuth struct{}

func (fakeAuth) Auth(_ context.Context, r *http.Request) (models.Session, error) {
	email := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if email == "" {
		return models.Session{}, apperrors.ErrUnauthorized
	}
	return models.Session{Email: email}, nil
}

type fakeWallet struct {
	balance      decimal.Decimal
	history      models.History
	err          error
	gotEmail     string
	gotAmount    decimal.Decimal
	gotMutations int
}

func (f *fakeWallet) GetBalance(_ context.Context, email string) (decimal.Decimal, error) {
	f.gotEmail = email
	return f.balance, f.err
}

func (f *fakeWallet) GetTransactions(_ context.Context, email string) (models.History, error) {
	f.gotEmail = email
	return f.history, f.err
}

func (f *fakeWallet) UpdateBalance(_ context.Context, email string, amount decimal.Decimal, _ ...wallet.MutationOption) (models.BalanceUpdate, error) {
	f.gotEmail, f.gotAmount = email, amount
	f.gotMutations++
	if f.err != nil {
		return models.BalanceUpdate{}, f.err
	}
	return models.BalanceUpdate{Account: models.Account{Email: email, Balance: f.balance.Add(amount)}}, nil
}

type fakePayment struct {
	order    models.PaymentOrder
	err      error
	gotEmail string
}

func (f *fakePayment) CreateOrder(_ context.Context, email string, amount decimal.Decimal, currency string) (models.PaymentOrder, error) {
	f.gotEmail = email
	if f.err != nil {
		return models.PaymentOrder{}, f.err
	}
	if currency == "" {
		currency = "INR"
	}
	order := f.order
	order.Email, order.Amount, order.Currency = email, amount, currency
	return order, nil
}

type fakeTopUp struct {
	topUp models.TopUp
	err   error
	gotCb models.PaymentCallback
}

func (f *fakeTopUp) Confirm(_ context.Context, _ string, cb models.PaymentCallback) (models.TopUp, error) {
	f.gotCb = cb
	return f.topUp, f.err
}

type fakeVending struct {
	purchase models.Purchase
	err      error
	gotLines []models.LineItem
}

func (f *fakeVending) Items() []models.VendingItem {
	return []models.VendingItem{
		{ID: "parotta", Name: "Parotta", Price: decimal.NewFromInt(15)},
		{ID: "meals", Name: "Meals", Price: decimal.NewFromInt(50)},
	}
}

func (f *fakeVending) Purchase(_ context.Context, _ string, lines []models.LineItem) (models.Purchase, error) {
	f.gotLines = lines
	return f.purchase, f.err
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServices struct {
	wallet  *fakeWallet
	payment *fakePayment
	topUp   *fakeTopUp
	vending *fakeVending
	pingErr error
}

func newTestServer(t *testing.T, s *testServices) *httptest.Server {
	t.Helper()

	handler := NewRouter(Services{
		Auth:    fakeAuth{},
		Wallet:  s.wallet,
		Payment: s.payment,
		TopUp:   s.topUp,
		Vending: s.vending,
		Health:  pingFunc(func(context.Context) error { return s.pingErr }),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		}),
	}, logger.NewNoOpLogger())

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func defaultServices() *testServices {
	return &testServices{
		wallet:  &fakeWallet{},
		payment: &fakePayment{},
		topUp:   &fakeTopUp{},
		vending: &fakeVending{},
	}
}

// Send request as the session user and return status and body
func do(t *testing.T, method string, url string, email string, body string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+email)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, string(respBody)
}

var errBoom = errors.New("boom")

var testOrderID = uuid.MustParse("6f1c1a4e-2f59-4c9a-8f0e-2b0f2a7d9c11")
