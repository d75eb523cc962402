package apiv1

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paydeskhq/paydesk/app/models"
)

// Pong is the response of the ping endpoint
type Pong struct {
	Ping string `json:"ping"`
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
}

// ApplyPaymentRequest is the payload for POST /orders/:reference_key/payments.
// The idempotency key travels in the Idempotency-Key header, not the body:
// it belongs to the caller's retry context, and the server never invents one.
type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// PaymentEntry is one payment inside a status partition of an order view.
type PaymentEntry struct {
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderView is the caller-facing order representation: the stored fields
// plus the projected balance and the three application partitions.
type OrderView struct {
	ReferenceKey string          `json:"reference_key"`
	Description  string          `json:"description"`
	Total        decimal.Decimal `json:"total"`
	BalanceDue   decimal.Decimal `json:"balance_due"`
	Successful   []PaymentEntry  `json:"successful_payments"`
	Pending      []PaymentEntry  `json:"pending_payments"`
	Failed       []PaymentEntry  `json:"failed_payments"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderEnvelope is the uniform mutation response: the order on acceptance,
// nil plus messages on rejection.
type OrderEnvelope struct {
	Order  *OrderView `json:"order"`
	Errors []string   `json:"errors"`
}

// OrderListResponse wraps GET /orders
type OrderListResponse struct {
	Orders []OrderView `json:"orders"`
	Total  int64       `json:"total"`
}

func paymentEntries(apps []models.PaymentApplication) []PaymentEntry {
	entries := make([]PaymentEntry, 0, len(apps))
	for _, app := range apps {
		entries = append(entries, PaymentEntry{
			Amount:    app.Payment.Amount,
			Note:      app.Payment.Note,
			Timestamp: app.CreatedAt,
		})
	}
	return entries
}
