package models

import (
	"time"
)

// Application status constants. Successful is terminal; Failed may be
// retried by reusing the same row under the same idempotency key.
const (
	ApplicationStatusPending    = "Pending"
	ApplicationStatusSuccessful = "Successful"
	ApplicationStatusFailed     = "Failed"
)

// PaymentApplication links one Payment to one Order and records whether
// the payment counts toward the order's balance. It is the authoritative
// record for deduplication: the unique index on IdempotencyKey is what
// lets the store reject a concurrent second application of the same key.
type PaymentApplication struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	PaymentID      uint      `gorm:"not null;index" json:"payment_id"`
	IdempotencyKey string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_payment_applications_idempotency_key" json:"idempotency_key"`
	Status         string    `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Payment Payment `gorm:"foreignKey:PaymentID" json:"payment"`
}

// NewPaymentApplication starts an application attempt in Pending state.
func NewPaymentApplication(orderID, paymentID uint, idempotencyKey string) *PaymentApplication {
	return &PaymentApplication{
		OrderID:        orderID,
		PaymentID:      paymentID,
		IdempotencyKey: idempotencyKey,
		Status:         ApplicationStatusPending,
	}
}

// IsTerminal reports whether no further transition is allowed.
// Only Successful is terminal: a Failed application stays retriable.
func (a *PaymentApplication) IsTerminal() bool {
	return a.Status == ApplicationStatusSuccessful
}

// CanTransitionTo enforces the application state machine:
// Pending -> Successful, Pending -> Failed, Failed -> Successful (retry),
// Failed -> Failed. Successful has no outgoing transitions.
func (a *PaymentApplication) CanTransitionTo(status string) bool {
	if a.IsTerminal() {
		return false
	}

	switch status {
	case ApplicationStatusSuccessful, ApplicationStatusFailed:
		return true
	default:
		return false
	}
}
