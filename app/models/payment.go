package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeTotal     = errors.New("order total must not be negative")
	ErrNonPositiveAmount = errors.New("payment amount must be greater than zero")
)

// Payment is one monetary amount submitted against an order. Rows are
// immutable after creation; whether a payment counts toward the balance
// is tracked on its PaymentApplication, never here.
type Payment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Note           string          `gorm:"type:varchar(255);default:''" json:"note" validate:"max=255"`
	IdempotencyKey string          `gorm:"type:varchar(100);not null;index" json:"idempotency_key" validate:"required,max=100"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	v := validator.New()

	return v.Struct(p)
}

// NewPayment builds a payment carrying the caller-supplied idempotency key.
// The key identifies the logical attempt across retries; the engine never
// generates one itself.
func NewPayment(amount decimal.Decimal, note, idempotencyKey string) (*Payment, error) {
	p := &Payment{
		Amount:         amount,
		Note:           note,
		IdempotencyKey: idempotencyKey,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}
