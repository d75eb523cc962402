package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a customer order. BalanceDue is never stored: it is always
// projected from the set of successful payment applications (see
// internal/pkg/ledger), so there is no counter that can drift.
type Order struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ReferenceKey string          `gorm:"type:varchar(36);not null;uniqueIndex:ux_orders_reference_key" json:"reference_key" validate:"required,max=36"`
	Description  string          `gorm:"type:varchar(255);not null" json:"description" validate:"required,max=255"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Applications []PaymentApplication `gorm:"foreignKey:OrderID" json:"-"`
}

func (o *Order) Validate() error {
	if o.Total.IsNegative() {
		return ErrNegativeTotal
	}

	v := validator.New()

	return v.Struct(o)
}

// NewOrder builds an order with a fresh system-assigned reference key.
// The reference key is the only client-visible identity of an order.
func NewOrder(description string, total decimal.Decimal) (*Order, error) {
	o := &Order{
		ReferenceKey: uuid.NewString(),
		Description:  description,
		Total:        total,
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	return o, nil
}
