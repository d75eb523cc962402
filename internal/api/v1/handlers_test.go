package apiv1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/paydeskhq/paydesk/app/models"
	"github.com/paydeskhq/paydesk/internal/pkg/ledger"
)

type stubEngine struct {
	result *ledger.ApplyResult
	err    error
	got    ledger.ApplyInput
}

func (s *stubEngine) Apply(ctx context.Context, in ledger.ApplyInput) (*ledger.ApplyResult, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubOrders struct {
	byKey   map[string]*models.Order
	created []*models.Order
}

func (s *stubOrders) Create(order *models.Order) error {
	order.ID = uint(len(s.created) + 1)
	s.created = append(s.created, order)
	if s.byKey == nil {
		s.byKey = map[string]*models.Order{}
	}
	s.byKey[order.ReferenceKey] = order
	return nil
}

func (s *stubOrders) GetByID(id uint) (*models.Order, error) {
	for _, o := range s.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrders) GetByReferenceKey(key string) (*models.Order, error) {
	if o, ok := s.byKey[key]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrders) List(offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	for _, o := range s.created {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (s *stubOrders) Count() (int64, error) {
	return int64(len(s.created)), nil
}

type stubApps struct {
	apps []models.PaymentApplication
}

func (s *stubApps) GetByIdempotencyKey(key string) (*models.PaymentApplication, error) {
	for i := range s.apps {
		if s.apps[i].IdempotencyKey == key {
			return &s.apps[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubApps) ListByOrder(orderID uint) ([]models.PaymentApplication, error) {
	var out []models.PaymentApplication
	for _, a := range s.apps {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApps) ListByOrderAndStatus(orderID uint, status string) ([]models.PaymentApplication, error) {
	var out []models.PaymentApplication
	for _, a := range s.apps {
		if a.OrderID == orderID && a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApps) SumSuccessfulAmounts(orderID uint) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, a := range s.apps {
		if a.OrderID == orderID && a.Status == models.ApplicationStatusSuccessful {
			sum = sum.Add(a.Payment.Amount)
		}
	}
	return sum, nil
}

func newTestApp(orders *stubOrders, apps *stubApps, engine Engine) *fiber.App {
	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(orders, apps, engine))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any, header map[string]string) (*http.Response, OrderEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var envelope OrderEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestGetPing(t *testing.T) {
	app := newTestApp(&stubOrders{}, &stubApps{}, &stubEngine{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostOrderCreatesOrder(t *testing.T) {
	orders := &stubOrders{}
	app := newTestApp(orders, &stubApps{}, &stubEngine{})

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v1/orders", CreateOrderRequest{
		Description: "office chairs",
		Total:       decimal.NewFromFloat(100.00),
	}, nil)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, envelope.Order)
	assert.NotEmpty(t, envelope.Order.ReferenceKey)
	assert.True(t, envelope.Order.BalanceDue.Equal(decimal.NewFromFloat(100.00)))
	assert.Empty(t, envelope.Errors)
	assert.Len(t, orders.created, 1)
}

func TestPostOrderRejectsNegativeTotal(t *testing.T) {
	app := newTestApp(&stubOrders{}, &stubApps{}, &stubEngine{})

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v1/orders", CreateOrderRequest{
		Description: "bad",
		Total:       decimal.NewFromFloat(-10.00),
	}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, envelope.Order)
	assert.NotEmpty(t, envelope.Errors)
}

func TestPostOrderPaymentAccepted(t *testing.T) {
	order := &models.Order{
		ID:           1,
		ReferenceKey: "ref-1",
		Description:  "office chairs",
		Total:        decimal.NewFromFloat(100.00),
		CreatedAt:    time.Now(),
	}
	engine := &stubEngine{
		result: &ledger.ApplyResult{
			Order:      order,
			BalanceDue: decimal.NewFromFloat(60.00),
			Successful: []models.PaymentApplication{
				{
					OrderID: 1,
					Status:  models.ApplicationStatusSuccessful,
					Payment: models.Payment{Amount: decimal.NewFromFloat(40.00), Note: "first"},
				},
			},
		},
	}
	app := newTestApp(&stubOrders{}, &stubApps{}, engine)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v1/orders/ref-1/payments", ApplyPaymentRequest{
		Amount: decimal.NewFromFloat(40.00),
		Note:   "first",
	}, map[string]string{"Idempotency-Key": "retry-123"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, envelope.Order)
	assert.True(t, envelope.Order.BalanceDue.Equal(decimal.NewFromFloat(60.00)))
	require.Len(t, envelope.Order.Successful, 1)
	assert.Empty(t, envelope.Errors)

	// The engine receives the caller's retry context, not a generated key.
	assert.Equal(t, "retry-123", engine.got.IdempotencyKey)
	assert.Equal(t, "ref-1", engine.got.ReferenceKey)
}

func TestPostOrderPaymentRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		engineErr  error
		wantStatus int
	}{
		{name: "duplicate application", engineErr: ledger.ErrDuplicateApplication, wantStatus: http.StatusConflict},
		{name: "order not found", engineErr: ledger.ErrOrderNotFound, wantStatus: http.StatusNotFound},
		{name: "balance verification failed", engineErr: ledger.ErrBalanceVerificationFailed, wantStatus: http.StatusUnprocessableEntity},
		{name: "validation failed", engineErr: &ledger.ValidationError{Messages: []string{"amount must be greater than zero"}}, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(&stubOrders{}, &stubApps{}, &stubEngine{err: tc.engineErr})

			resp, envelope := doJSON(t, app, http.MethodPost, "/api/v1/orders/ref-1/payments", ApplyPaymentRequest{
				Amount: decimal.NewFromFloat(40.00),
			}, map[string]string{"Idempotency-Key": "retry-123"})

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Nil(t, envelope.Order)
			assert.NotEmpty(t, envelope.Errors)
		})
	}
}

func TestGetOrderReturnsPartitionsAndBalance(t *testing.T) {
	orders := &stubOrders{}
	order, err := models.NewOrder("office chairs", decimal.NewFromFloat(100.00))
	require.NoError(t, err)
	require.NoError(t, orders.Create(order))

	apps := &stubApps{apps: []models.PaymentApplication{
		{
			OrderID: order.ID,
			Status:  models.ApplicationStatusSuccessful,
			Payment: models.Payment{Amount: decimal.NewFromFloat(40.00), Note: "first"},
		},
		{
			OrderID: order.ID,
			Status:  models.ApplicationStatusFailed,
			Payment: models.Payment{Amount: decimal.NewFromFloat(10.00)},
		},
	}}
	app := newTestApp(orders, apps, &stubEngine{})

	resp, envelope := doJSON(t, app, http.MethodGet, "/api/v1/orders/"+order.ReferenceKey, nil, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, envelope.Order)
	assert.True(t, envelope.Order.BalanceDue.Equal(decimal.NewFromFloat(60.00)))
	assert.Len(t, envelope.Order.Successful, 1)
	assert.Len(t, envelope.Order.Failed, 1)
	assert.Empty(t, envelope.Order.Pending)
}

func TestGetOrderNotFound(t *testing.T) {
	app := newTestApp(&stubOrders{}, &stubApps{}, &stubEngine{})

	resp, envelope := doJSON(t, app, http.MethodGet, "/api/v1/orders/missing", nil, nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Nil(t, envelope.Order)
	assert.NotEmpty(t, envelope.Errors)
}
